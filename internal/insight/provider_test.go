package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInsightPlainJSON(t *testing.T) {
	content := `{
		"churn_risk_score": 72.5,
		"risk_level": "high",
		"key_concerns": ["Logins dropped sharply"],
		"recommended_actions": ["Call the account owner"],
		"predicted_churn_date": "2026-10-15",
		"confidence": "high"
	}`

	got, err := ParseInsight(content)
	require.NoError(t, err)
	assert.Equal(t, 72.5, got.Score)
	assert.Equal(t, "high", got.RiskLevel)
	require.NotNil(t, got.PredictedChurnDate)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), *got.PredictedChurnDate)
	assert.Equal(t, "high", got.Confidence)
}

func TestParseInsightStripsMarkdownFences(t *testing.T) {
	content := "```json\n{\"churn_risk_score\": 30, \"risk_level\": \"low\", \"key_concerns\": [\"none\"], \"recommended_actions\": [\"monitor\"], \"predicted_churn_date\": null, \"confidence\": \"medium\"}\n```"

	got, err := ParseInsight(content)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.Score)
	assert.Nil(t, got.PredictedChurnDate)
}

func TestParseInsightLeadingProse(t *testing.T) {
	content := `Here is my analysis:
{"churn_risk_score": 55, "risk_level": "medium", "key_concerns": ["a"], "recommended_actions": ["b"], "confidence": "low"}`

	got, err := ParseInsight(content)
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.Score)
	assert.Equal(t, "low", got.Confidence)
}

func TestParseInsightClampsScore(t *testing.T) {
	got, err := ParseInsight(`{"churn_risk_score": 140, "risk_level": "critical", "key_concerns": ["a"], "recommended_actions": ["b"], "confidence": "high"}`)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Score)

	got, err = ParseInsight(`{"churn_risk_score": -3, "risk_level": "low", "key_concerns": ["a"], "recommended_actions": ["b"], "confidence": "high"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Score)
}

func TestParseInsightTruncatesLists(t *testing.T) {
	got, err := ParseInsight(`{"churn_risk_score": 50, "risk_level": "medium",
		"key_concerns": ["a","b","c","d","e","f","g"],
		"recommended_actions": ["1","2","3","4","5","6"],
		"confidence": "medium"}`)
	require.NoError(t, err)
	assert.Len(t, got.Concerns, 5)
	assert.Len(t, got.RecommendedActions, 5)
}

func TestParseInsightRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not json":       "the customer seems fine",
		"missing score":  `{"risk_level": "low", "key_concerns": ["a"], "recommended_actions": ["b"]}`,
		"empty concerns": `{"churn_risk_score": 50, "risk_level": "medium", "key_concerns": [], "recommended_actions": ["b"]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInsight(content)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestParseInsightNormalizesBadRiskLevel(t *testing.T) {
	got, err := ParseInsight(`{"churn_risk_score": 80, "risk_level": "EXTREME", "key_concerns": ["a"], "recommended_actions": ["b"], "confidence": "nope"}`)
	require.NoError(t, err)
	assert.Equal(t, "critical", got.RiskLevel)
	assert.Equal(t, "medium", got.Confidence)
}

func TestRiskLevelForScoreBoundaries(t *testing.T) {
	assert.Equal(t, "low", RiskLevelForScore(0))
	assert.Equal(t, "low", RiskLevelForScore(40))
	assert.Equal(t, "medium", RiskLevelForScore(40.1))
	assert.Equal(t, "medium", RiskLevelForScore(60))
	assert.Equal(t, "high", RiskLevelForScore(60.1))
	assert.Equal(t, "high", RiskLevelForScore(75))
	assert.Equal(t, "critical", RiskLevelForScore(75.1))
	assert.Equal(t, "critical", RiskLevelForScore(100))
}
