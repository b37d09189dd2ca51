package assessment

// Summary aggregates a batch of reports for the portfolio view.
type Summary struct {
	TotalCustomers     int            `json:"total_customers"`
	RiskBreakdown      map[string]int `json:"risk_breakdown"`
	AverageRiskScore   float64        `json:"average_risk_score"`
	TotalRevenueAtRisk float64        `json:"total_revenue_at_risk"`
	NeedsIntervention  int            `json:"needs_intervention"`
	FallbackCount      int            `json:"fallback_count"`
}

// Summarize folds a set of reports into portfolio statistics. Revenue at
// risk counts only high and critical customers; needs-intervention counts
// priorities of 7 and above.
func Summarize(reports []RiskReport) *Summary {
	s := &Summary{
		TotalCustomers: len(reports),
		RiskBreakdown: map[string]int{
			"low":      0,
			"medium":   0,
			"high":     0,
			"critical": 0,
		},
	}

	if len(reports) == 0 {
		return s
	}

	var scoreSum float64
	for _, r := range reports {
		s.RiskBreakdown[r.RiskLevel]++
		scoreSum += r.ChurnRiskScore
		if r.RiskLevel == "high" || r.RiskLevel == "critical" {
			s.TotalRevenueAtRisk += r.EstimatedRevenueAtRisk
		}
		if r.InterventionPriority >= 7 {
			s.NeedsIntervention++
		}
		if r.FallbackUsed {
			s.FallbackCount++
		}
	}

	s.AverageRiskScore = scoreSum / float64(len(reports))
	return s
}
