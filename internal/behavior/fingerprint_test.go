package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDimensionOrder(t *testing.T) {
	m := &NormalizedMetrics{
		EngagementScore:   0.1,
		LoginFrequency:    0.2,
		FeatureUsage:      0.3,
		EmailOpenRate:     0.4,
		SupportTicketRate: 0.5,
		PaymentIssues:     0.6,
		SentimentScore:    -1, // maps to 0
		LoginTrend:        0,  // maps to 0.5
		FeatureTrend:      1,  // maps to 1
		EngagementTrend:   -0.5,
	}

	vec := Fingerprint(m, 768)
	require.Len(t, vec, 768)

	assert.InDelta(t, 0.1, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.2, float64(vec[1]), 1e-6)
	assert.InDelta(t, 0.3, float64(vec[2]), 1e-6)
	assert.InDelta(t, 0.4, float64(vec[3]), 1e-6)
	assert.InDelta(t, 0.5, float64(vec[4]), 1e-6)
	assert.InDelta(t, 0.6, float64(vec[5]), 1e-6)
	assert.InDelta(t, 0.0, float64(vec[6]), 1e-6)
	assert.InDelta(t, 0.5, float64(vec[7]), 1e-6)
	assert.InDelta(t, 1.0, float64(vec[8]), 1e-6)
	assert.InDelta(t, 0.25, float64(vec[9]), 1e-6)
}

func TestFingerprintZeroFillsTail(t *testing.T) {
	vec := Fingerprint(&NormalizedMetrics{EngagementScore: 1}, 64)
	require.Len(t, vec, 64)
	for i := MetricCount; i < len(vec); i++ {
		assert.Equal(t, float32(0), vec[i])
	}
}

func TestFingerprintCoercesTinyDimension(t *testing.T) {
	vec := Fingerprint(&NormalizedMetrics{}, 3)
	assert.Len(t, vec, MetricCount)
}

func TestFingerprintComponentsAlwaysInUnitRange(t *testing.T) {
	// Out-of-range inputs are clamped, never propagated.
	m := &NormalizedMetrics{
		EngagementScore: 4,
		LoginFrequency:  -2,
		SentimentScore:  -9,
		LoginTrend:      7,
	}

	for _, v := range Fingerprint(m, MetricCount) {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	m := &NormalizedMetrics{LoginFrequency: 0.42, SentimentScore: -0.13}
	assert.Equal(t, Fingerprint(m, 128), Fingerprint(m, 128))
}
