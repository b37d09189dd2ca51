package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnsight/backend/internal/behavior"
)

func analyze(t *testing.T, m behavior.NormalizedMetrics) *Insight {
	t.Helper()
	got, err := NewFallbackScorer().Analyze(context.Background(), Input{
		CustomerID: "c-1",
		Metrics:    &m,
	})
	require.NoError(t, err)
	return got
}

func TestFallbackHealthyCustomerScoresLow(t *testing.T) {
	got := analyze(t, behavior.NormalizedMetrics{
		EngagementScore:   0.85,
		LoginFrequency:    0.9,
		FeatureUsage:      0.8,
		EmailOpenRate:     0.7,
		SupportTicketRate: 0,
		PaymentIssues:     0,
		SentimentScore:    0.5,
		LoginTrend:        0.1,
		FeatureTrend:      0.05,
		EngagementTrend:   0.08,
	})

	// 50 - 10 - 10 - 5 - 5 - 5 = 15
	assert.Less(t, got.Score, 40.0)
	assert.Equal(t, "low", got.RiskLevel)
	assert.Equal(t, "low", got.Confidence)
	assert.NotEmpty(t, got.Concerns)
	assert.NotEmpty(t, got.RecommendedActions)
}

func TestFallbackDecliningLoginsWithNegativeSentiment(t *testing.T) {
	got := analyze(t, behavior.NormalizedMetrics{
		EngagementScore:   0.3,
		LoginFrequency:    0.2,
		FeatureUsage:      0.3,
		EmailOpenRate:     0.4,
		SupportTicketRate: 0.13,
		PaymentIssues:     0,
		SentimentScore:    -0.33,
		LoginTrend:        -0.78,
		FeatureTrend:      -0.2,
		EngagementTrend:   -0.49,
	})

	assert.GreaterOrEqual(t, got.Score, 50.0)
	assert.LessOrEqual(t, got.Score, 75.0)
	assert.Equal(t, "high", got.RiskLevel)
}

func TestFallbackScoreClampedToRange(t *testing.T) {
	got := analyze(t, behavior.NormalizedMetrics{
		SentimentScore: -1,
		LoginTrend:     -1,
		PaymentIssues:  1,
		FeatureTrend:   -1,
		EmailOpenRate:  0,
	})
	assert.LessOrEqual(t, got.Score, 100.0)
	assert.Equal(t, "critical", got.RiskLevel)

	got = analyze(t, behavior.NormalizedMetrics{
		EngagementScore:   1,
		LoginFrequency:    1,
		EmailOpenRate:     1,
		SentimentScore:    1,
		SupportTicketRate: 0,
	})
	assert.GreaterOrEqual(t, got.Score, 0.0)
}

func TestFallbackIsDeterministic(t *testing.T) {
	m := behavior.NormalizedMetrics{
		EngagementScore: 0.4,
		LoginFrequency:  0.5,
		SentimentScore:  -0.2,
		LoginTrend:      -0.3,
		PaymentIssues:   0.4,
	}
	a := analyze(t, m)
	b := analyze(t, m)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Concerns, b.Concerns)
	assert.Equal(t, a.RecommendedActions, b.RecommendedActions)
}

func TestFallbackNeverPredictsChurnDate(t *testing.T) {
	got := analyze(t, behavior.NormalizedMetrics{LoginTrend: -0.9, SentimentScore: -0.8})
	assert.Nil(t, got.PredictedChurnDate)
}

func TestFallbackListBounds(t *testing.T) {
	got := analyze(t, behavior.NormalizedMetrics{
		LoginTrend:     -0.9,
		SentimentScore: -0.8,
		PaymentIssues:  0.7,
		FeatureTrend:   -0.5,
		EmailOpenRate:  0.1,
	})
	assert.GreaterOrEqual(t, len(got.Concerns), 1)
	assert.LessOrEqual(t, len(got.Concerns), 5)
	assert.GreaterOrEqual(t, len(got.RecommendedActions), 1)
	assert.LessOrEqual(t, len(got.RecommendedActions), 5)
}
