package behavior

import (
	"errors"
	"time"

	"github.com/churnsight/backend/internal/storage/models"
)

// ErrNoBehaviorData is returned when the event window is empty. Callers must
// treat this as "cannot assess", not as a zero score.
var ErrNoBehaviorData = errors.New("no behavior data in window")

const (
	// DefaultWindowDays is the trailing window analyzed per customer. The
	// window splits symmetrically into a recent half and a prior half for
	// the trend metrics.
	DefaultWindowDays = 90

	trendEpsilon = 1e-9
)

// NormalizedMetrics is the fixed record of behavioral scalars. Bounded fields
// stay in [0,1]; sentiment and the trend fields stay in [-1,1]. Every field is
// always populated; missing raw data maps to zero or neutral.
type NormalizedMetrics struct {
	EngagementScore   float64 `json:"engagement_score"`
	LoginFrequency    float64 `json:"login_frequency"`
	FeatureUsage      float64 `json:"feature_usage"`
	EmailOpenRate     float64 `json:"email_open_rate"`
	SupportTicketRate float64 `json:"support_ticket_rate"`
	PaymentIssues     float64 `json:"payment_issues"`
	SentimentScore    float64 `json:"sentiment_score"`
	LoginTrend        float64 `json:"login_trend"`
	FeatureTrend      float64 `json:"feature_trend"`
	EngagementTrend   float64 `json:"engagement_trend"`
}

// Fixed denominators of the raw-to-normalized mappings.
const (
	loginsPerMonthCap   = 30.0
	featuresPerWeekCap  = 20.0
	emailOpensPerWindow = 30.0
	ticketsPerWindowCap = 15.0
	paymentDelayDaysCap = 30.0
)

// ComputeMetrics converts a customer's event window into NormalizedMetrics.
// Events outside (asOf-windowDays, asOf] are ignored; the remaining window is
// split at asOf-windowDays/2 into recent and prior halves. Deterministic for
// the same inputs.
func ComputeMetrics(events []models.BehaviorEvent, asOf time.Time, windowDays int) (*NormalizedMetrics, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	windowStart := asOf.AddDate(0, 0, -windowDays)
	recentStart := asOf.AddDate(0, 0, -windowDays/2)

	var (
		recentLogins, priorLogins   float64
		recentFeature, priorFeature float64
		recentEmailOpens            float64
		recentTickets               float64
		maxPaymentDelay             float64
		ticketNotes                 []string
		inWindow                    int
	)

	for _, event := range events {
		if event.EventDate.Before(windowStart) || event.EventDate.After(asOf) {
			continue
		}
		inWindow++

		recent := !event.EventDate.Before(recentStart)

		switch event.EventType {
		case models.EventLogin:
			if recent {
				recentLogins++
			} else {
				priorLogins++
			}
		case models.EventFeatureUsage:
			if recent {
				recentFeature += event.MetricValue
			} else {
				priorFeature += event.MetricValue
			}
		case models.EventEmailOpen:
			if recent {
				recentEmailOpens++
			}
		case models.EventSupportTicket:
			if recent {
				recentTickets++
				if event.Notes != "" {
					ticketNotes = append(ticketNotes, event.Notes)
				}
			}
		case models.EventPaymentDelay:
			if recent && event.MetricValue > maxPaymentDelay {
				maxPaymentDelay = event.MetricValue
			}
		}
	}

	if inWindow == 0 {
		return nil, ErrNoBehaviorData
	}

	halfWeeks := float64(windowDays/2) / 7.0
	featurePerWeek := 0.0
	if halfWeeks > 0 {
		featurePerWeek = recentFeature / halfWeeks
	}

	metrics := &NormalizedMetrics{
		LoginFrequency:    clamp01(recentLogins / loginsPerMonthCap),
		FeatureUsage:      clamp01(featurePerWeek / featuresPerWeekCap),
		EmailOpenRate:     clamp01(recentEmailOpens / emailOpensPerWindow),
		SupportTicketRate: clamp01(recentTickets / ticketsPerWindowCap),
		PaymentIssues:     clamp01(maxPaymentDelay / paymentDelayDaysCap),
		SentimentScore:    ScoreSentiment(ticketNotes),
		LoginTrend:        trend(recentLogins, priorLogins),
		FeatureTrend:      trend(recentFeature, priorFeature),
	}

	metrics.EngagementScore = clamp01((metrics.LoginFrequency + metrics.FeatureUsage + metrics.EmailOpenRate) / 3.0)
	metrics.EngagementTrend = clampBipolar((metrics.LoginTrend + metrics.FeatureTrend) / 2.0)

	return metrics, nil
}

// TenureMonths returns whole and fractional months between signup and asOf,
// never negative.
func TenureMonths(signup, asOf time.Time) float64 {
	days := asOf.Sub(signup).Hours() / 24.0
	if days < 0 {
		return 0
	}
	return days / 30.44
}

// trend is (recent - prior) / prior clamped to [-1,1]. A zero prior means no
// signal, not infinity.
func trend(recent, prior float64) float64 {
	if prior <= 0 {
		return 0
	}
	return clampBipolar((recent - prior) / max(prior, trendEpsilon))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampBipolar(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
