package insight

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/churnsight/backend/pkg/logger"
)

// FallbackScorer is the deterministic, rule-based stand-in used when the
// model provider is down or its response cannot be parsed. It starts from a
// neutral baseline, adds penalties for decay signals, and subtracts credits
// for healthy ones.
type FallbackScorer struct{}

func NewFallbackScorer() *FallbackScorer {
	return &FallbackScorer{}
}

func (f *FallbackScorer) Analyze(_ context.Context, in Input) (*Insight, error) {
	m := in.Metrics
	score := 50.0

	var concerns []string
	var actions []string

	if m.LoginTrend < 0 {
		score += 25 * -m.LoginTrend
		concerns = append(concerns, fmt.Sprintf("Login activity is declining (trend %.2f)", m.LoginTrend))
		actions = append(actions, "Schedule a check-in call to understand reduced product usage")
	}
	if m.SentimentScore < 0 {
		score += 15 * -m.SentimentScore
		concerns = append(concerns, "Recent support interactions show negative sentiment")
		actions = append(actions, "Have a senior support engineer review and follow up on open issues")
	}
	if m.PaymentIssues > 0 {
		score += 20 * m.PaymentIssues
		concerns = append(concerns, "Payment delays observed in the recent window")
		actions = append(actions, "Contact billing to resolve outstanding payment friction")
	}

	if m.LoginFrequency >= 0.8 {
		score -= 10
	}
	if m.EngagementScore >= 0.7 {
		score -= 10
	}
	if m.SentimentScore > 0 {
		score -= 10 * m.SentimentScore
	}
	if m.PaymentIssues == 0 {
		score -= 5
	}
	if m.SupportTicketRate == 0 {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if m.FeatureTrend < -0.3 && len(concerns) < 5 {
		concerns = append(concerns, "Feature adoption is shrinking")
		if len(actions) < 5 {
			actions = append(actions, "Offer a tailored walkthrough of under-used features")
		}
	}
	if m.EmailOpenRate < 0.2 && len(concerns) < 5 {
		concerns = append(concerns, "Customer is no longer opening product emails")
	}

	if len(concerns) == 0 {
		concerns = []string{"No acute decay signals in the recent window"}
	}
	if len(actions) == 0 {
		actions = []string{"Continue routine engagement cadence"}
	}
	if len(concerns) > 5 {
		concerns = concerns[:5]
	}
	if len(actions) > 5 {
		actions = actions[:5]
	}

	logger.Debug("Fallback insight computed",
		zap.String("customer_id", in.CustomerID),
		zap.Float64("score", score),
	)

	return &Insight{
		Score:              score,
		RiskLevel:          RiskLevelForScore(score),
		Concerns:           concerns,
		RecommendedActions: actions,
		Confidence:         "low",
	}, nil
}
