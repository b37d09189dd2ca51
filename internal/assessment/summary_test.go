package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.TotalCustomers)
	assert.Equal(t, 0.0, s.AverageRiskScore)
	assert.Equal(t, 0, s.RiskBreakdown["critical"])
}

func TestSummarizeBreakdownAndRevenue(t *testing.T) {
	reports := []RiskReport{
		{ChurnRiskScore: 20, RiskLevel: "low", EstimatedRevenueAtRisk: 1200, InterventionPriority: 2},
		{ChurnRiskScore: 55, RiskLevel: "medium", EstimatedRevenueAtRisk: 2400, InterventionPriority: 6},
		{ChurnRiskScore: 70, RiskLevel: "high", EstimatedRevenueAtRisk: 6000, InterventionPriority: 7, FallbackUsed: true},
		{ChurnRiskScore: 90, RiskLevel: "critical", EstimatedRevenueAtRisk: 24000, InterventionPriority: 10},
	}

	s := Summarize(reports)

	assert.Equal(t, 4, s.TotalCustomers)
	assert.Equal(t, 1, s.RiskBreakdown["low"])
	assert.Equal(t, 1, s.RiskBreakdown["medium"])
	assert.Equal(t, 1, s.RiskBreakdown["high"])
	assert.Equal(t, 1, s.RiskBreakdown["critical"])
	assert.InDelta(t, 58.75, s.AverageRiskScore, 1e-9)

	// Only high and critical contribute revenue at risk.
	assert.Equal(t, 30000.0, s.TotalRevenueAtRisk)
	assert.Equal(t, 2, s.NeedsIntervention)
	assert.Equal(t, 1, s.FallbackCount)
}
