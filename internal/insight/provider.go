package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/churnsight/backend/internal/behavior"
	"github.com/churnsight/backend/internal/exemplar"
)

var (
	// ErrProviderUnavailable means the provider could not be reached or
	// refused the request after retries. Callers fall back to the
	// rule-based scorer.
	ErrProviderUnavailable = errors.New("insight provider unavailable")

	// ErrInvalidResponse means the provider answered but the payload did
	// not parse into a usable insight.
	ErrInvalidResponse = errors.New("invalid insight response")
)

// Input carries everything the provider needs to reason about one customer.
type Input struct {
	CustomerID   string
	CompanyName  string
	Tier         string
	MonthlyValue float64
	TenureMonths float64
	Metrics      *behavior.NormalizedMetrics

	// SimilarChurned is optional context. The assessment engine runs the
	// provider and the exemplar search concurrently, so it is usually nil.
	SimilarChurned []exemplar.Match
}

// Insight is a parsed, validated provider judgment.
type Insight struct {
	Score              float64    `json:"churn_risk_score"`
	RiskLevel          string     `json:"risk_level"`
	Concerns           []string   `json:"key_concerns"`
	RecommendedActions []string   `json:"recommended_actions"`
	PredictedChurnDate *time.Time `json:"predicted_churn_date,omitempty"`
	Confidence         string     `json:"confidence"`
}

// Provider produces a churn judgment for one customer.
type Provider interface {
	Analyze(ctx context.Context, in Input) (*Insight, error)
}

// rawInsight mirrors the JSON shape the model is prompted to emit.
type rawInsight struct {
	ChurnRiskScore     *float64 `json:"churn_risk_score"`
	RiskLevel          string   `json:"risk_level"`
	KeyConcerns        []string `json:"key_concerns"`
	RecommendedActions []string `json:"recommended_actions"`
	PredictedChurnDate string   `json:"predicted_churn_date"`
	Confidence         string   `json:"confidence"`
}

// ParseInsight extracts and validates an Insight from raw model output. The
// model frequently wraps JSON in markdown fences, so those are stripped
// before decoding.
func ParseInsight(content string) (*Insight, error) {
	trimmed := stripFences(content)

	var raw rawInsight
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if raw.ChurnRiskScore == nil {
		return nil, fmt.Errorf("%w: missing churn_risk_score", ErrInvalidResponse)
	}

	score := *raw.ChurnRiskScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	concerns := clampList(raw.KeyConcerns)
	actions := clampList(raw.RecommendedActions)
	if len(concerns) == 0 || len(actions) == 0 {
		return nil, fmt.Errorf("%w: empty concerns or actions", ErrInvalidResponse)
	}

	out := &Insight{
		Score:              score,
		RiskLevel:          normalizeRiskLevel(raw.RiskLevel, score),
		Concerns:           concerns,
		RecommendedActions: actions,
		Confidence:         normalizeConfidence(raw.Confidence),
	}

	if raw.PredictedChurnDate != "" && !strings.EqualFold(raw.PredictedChurnDate, "null") {
		if d, err := time.Parse("2006-01-02", raw.PredictedChurnDate); err == nil {
			out.PredictedChurnDate = &d
		}
	}

	return out, nil
}

func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}

	// Some models prefix prose before the object. Cut to the outermost
	// braces when present.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

func clampList(items []string) []string {
	out := make([]string, 0, 5)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == 5 {
			break
		}
	}
	return out
}

func normalizeRiskLevel(level string, score float64) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low", "medium", "high", "critical":
		return strings.ToLower(strings.TrimSpace(level))
	}
	return RiskLevelForScore(score)
}

func normalizeConfidence(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "low", "medium", "high":
		return strings.ToLower(strings.TrimSpace(c))
	}
	return "medium"
}

// RiskLevelForScore maps a 0-100 score to its bucket. Boundaries are
// inclusive at the top of each band.
func RiskLevelForScore(score float64) string {
	switch {
	case score <= 40:
		return "low"
	case score <= 60:
		return "medium"
	case score <= 75:
		return "high"
	default:
		return "critical"
	}
}
