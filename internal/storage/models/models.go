package models

import "time"

type SubscriptionTier string

const (
	TierBasic      SubscriptionTier = "Basic"
	TierPro        SubscriptionTier = "Pro"
	TierEnterprise SubscriptionTier = "Enterprise"
)

type EventType string

const (
	EventLogin         EventType = "login"
	EventFeatureUsage  EventType = "feature_usage"
	EventSupportTicket EventType = "support_ticket"
	EventEmailOpen     EventType = "email_open"
	EventPaymentDelay  EventType = "payment_delay"
)

// Customer is immutable reference data; created by import, never mutated
// by the assessment pipeline.
type Customer struct {
	ID           string           `json:"customer_id"`
	CompanyName  string           `json:"company_name"`
	Tier         SubscriptionTier `json:"subscription_tier"`
	MonthlyValue float64          `json:"monthly_value"`
	SignupDate   time.Time        `json:"signup_date"`
}

// BehaviorEvent is one row of the append-only behavior log.
type BehaviorEvent struct {
	ID          int64     `json:"id"`
	CustomerID  string    `json:"customer_id"`
	EventDate   time.Time `json:"event_date"`
	EventType   EventType `json:"event_type"`
	MetricValue float64   `json:"metric_value"`
	Notes       string    `json:"notes,omitempty"`
}

// ChurnRecord describes a historical churned customer, the raw material
// for exemplar indexing.
type ChurnRecord struct {
	CustomerID       string           `json:"customer_id"`
	CompanyName      string           `json:"company_name"`
	Tier             SubscriptionTier `json:"subscription_tier"`
	MonthlyValue     float64          `json:"monthly_value"`
	SignupDate       time.Time        `json:"signup_date"`
	ChurnDate        time.Time        `json:"churn_date"`
	ChurnReason      string           `json:"churn_reason"`
	DecayPattern     string           `json:"decay_pattern,omitempty"`
	DaysUntilChurned int              `json:"days_until_churned"`
}

// AssessmentRecord is a persisted risk report summary for history queries.
type AssessmentRecord struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	CombinedScore float64   `json:"combined_score"`
	RiskLevel     string    `json:"risk_level"`
	Confidence    string    `json:"confidence_level"`
	FallbackUsed  bool      `json:"fallback_used"`
	ReportJSON    string    `json:"report_json"`
	CreatedAt     time.Time `json:"created_at"`
}
