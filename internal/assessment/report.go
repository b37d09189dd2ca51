package assessment

import (
	"encoding/json"
	"time"

	"github.com/churnsight/backend/internal/behavior"
	"github.com/churnsight/backend/internal/exemplar"
)

// RiskReport is the complete assessment for one customer. It is what the API
// returns and what gets persisted to assessment history.
type RiskReport struct {
	CustomerID             string                      `json:"customer_id"`
	CustomerName           string                      `json:"customer_name"`
	SubscriptionTier       string                      `json:"subscription_tier"`
	MonthlyValue           float64                     `json:"monthly_value"`
	ChurnRiskScore         float64                     `json:"churn_risk_score"`
	RiskLevel              string                      `json:"risk_level"`
	Concerns               []string                    `json:"concerns"`
	RecommendedActions     []string                    `json:"recommended_actions"`
	SimilarChurned         []exemplar.Match            `json:"similar_churned_customers"`
	PredictedChurnDate     *time.Time                  `json:"predicted_churn_date"`
	InterventionPriority   int                         `json:"intervention_priority"`
	EstimatedRevenueAtRisk float64                     `json:"estimated_revenue_at_risk"`
	ConfidenceLevel        string                      `json:"confidence_level"`
	FallbackUsed           bool                        `json:"fallback_used"`
	AnalysisTimestamp      time.Time                   `json:"analysis_timestamp"`
	BehavioralMetrics      *behavior.NormalizedMetrics `json:"behavioral_metrics"`
	InsightScore           float64                     `json:"insight_score"`
	SimilarityScore        float64                     `json:"similarity_score"`
}

func encodeReport(r *RiskReport) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
