package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnsight/backend/internal/storage/models"
)

var asOf = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func event(daysAgo int, et models.EventType, value float64, notes string) models.BehaviorEvent {
	return models.BehaviorEvent{
		CustomerID:  "c-1",
		EventDate:   asOf.AddDate(0, 0, -daysAgo),
		EventType:   et,
		MetricValue: value,
		Notes:       notes,
	}
}

func TestComputeMetricsEmptyWindow(t *testing.T) {
	_, err := ComputeMetrics(nil, asOf, 90)
	assert.ErrorIs(t, err, ErrNoBehaviorData)

	// Events outside the window do not count either.
	stale := []models.BehaviorEvent{event(120, models.EventLogin, 0, "")}
	_, err = ComputeMetrics(stale, asOf, 90)
	assert.ErrorIs(t, err, ErrNoBehaviorData)
}

func TestComputeMetricsLoginFrequency(t *testing.T) {
	var events []models.BehaviorEvent
	for i := 1; i <= 15; i++ {
		events = append(events, event(i*3, models.EventLogin, 0, ""))
	}
	// 15 logins, days 3..45: all in the recent half of a 90-day window.
	m, err := ComputeMetrics(events, asOf, 90)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, m.LoginFrequency, 1e-9)
	assert.Equal(t, 0.0, m.LoginTrend) // no prior logins, trend has no signal
	assert.GreaterOrEqual(t, m.EngagementScore, 0.0)
	assert.LessOrEqual(t, m.EngagementScore, 1.0)
}

func TestComputeMetricsBoundsHold(t *testing.T) {
	// Saturate every counter well past its cap.
	var events []models.BehaviorEvent
	for i := 0; i < 200; i++ {
		daysAgo := 1 + i%44
		events = append(events,
			event(daysAgo, models.EventLogin, 0, ""),
			event(daysAgo, models.EventFeatureUsage, 5, ""),
			event(daysAgo, models.EventEmailOpen, 0, ""),
			event(daysAgo, models.EventSupportTicket, 0, "broken and frustrated"),
			event(daysAgo, models.EventPaymentDelay, 90, ""),
		)
	}

	m, err := ComputeMetrics(events, asOf, 90)
	require.NoError(t, err)

	for name, v := range map[string]float64{
		"engagement_score":    m.EngagementScore,
		"login_frequency":     m.LoginFrequency,
		"feature_usage":       m.FeatureUsage,
		"email_open_rate":     m.EmailOpenRate,
		"support_ticket_rate": m.SupportTicketRate,
		"payment_issues":      m.PaymentIssues,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
	for name, v := range map[string]float64{
		"sentiment_score":  m.SentimentScore,
		"login_trend":      m.LoginTrend,
		"feature_trend":    m.FeatureTrend,
		"engagement_trend": m.EngagementTrend,
	} {
		assert.GreaterOrEqual(t, v, -1.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestComputeMetricsDecliningLoginTrend(t *testing.T) {
	var events []models.BehaviorEvent
	// 18 logins in the prior half, 4 in the recent half.
	for i := 0; i < 18; i++ {
		events = append(events, event(50+i*2, models.EventLogin, 0, ""))
	}
	for i := 0; i < 4; i++ {
		events = append(events, event(5+i*8, models.EventLogin, 0, ""))
	}

	m, err := ComputeMetrics(events, asOf, 90)
	require.NoError(t, err)

	// (4 - 18) / 18
	assert.InDelta(t, -0.7777, m.LoginTrend, 1e-3)
	assert.Less(t, m.EngagementTrend, 0.0)
}

func TestComputeMetricsRisingFeatureTrendClamped(t *testing.T) {
	events := []models.BehaviorEvent{
		event(60, models.EventFeatureUsage, 1, ""),
		event(10, models.EventFeatureUsage, 5, ""),
	}

	m, err := ComputeMetrics(events, asOf, 90)
	require.NoError(t, err)

	// (5 - 1) / 1 = 4, clamped to 1.
	assert.Equal(t, 1.0, m.FeatureTrend)
}

func TestComputeMetricsPaymentIssuesUsesWorstDelay(t *testing.T) {
	events := []models.BehaviorEvent{
		event(10, models.EventPaymentDelay, 6, ""),
		event(20, models.EventPaymentDelay, 15, ""),
	}

	m, err := ComputeMetrics(events, asOf, 90)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, m.PaymentIssues, 1e-9)
}

func TestComputeMetricsSentimentFromTicketNotes(t *testing.T) {
	positive := []models.BehaviorEvent{
		event(5, models.EventSupportTicket, 0, "Thanks, the quick fix was great and helpful"),
	}
	m, err := ComputeMetrics(positive, asOf, 90)
	require.NoError(t, err)
	assert.Greater(t, m.SentimentScore, 0.0)

	negative := []models.BehaviorEvent{
		event(5, models.EventSupportTicket, 0, "Frustrated, this is still broken and not working"),
	}
	m, err = ComputeMetrics(negative, asOf, 90)
	require.NoError(t, err)
	assert.Less(t, m.SentimentScore, 0.0)
}

func TestComputeMetricsDeterministic(t *testing.T) {
	events := []models.BehaviorEvent{
		event(5, models.EventLogin, 0, ""),
		event(30, models.EventFeatureUsage, 3, ""),
		event(60, models.EventLogin, 0, ""),
	}

	a, err := ComputeMetrics(events, asOf, 90)
	require.NoError(t, err)
	b, err := ComputeMetrics(events, asOf, 90)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestTenureMonths(t *testing.T) {
	signup := asOf.AddDate(-1, 0, 0)
	months := TenureMonths(signup, asOf)
	assert.InDelta(t, 12, months, 0.05)

	assert.Equal(t, 0.0, TenureMonths(asOf.AddDate(0, 0, 10), asOf))
}
