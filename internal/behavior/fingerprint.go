package behavior

// MetricCount is the number of leading fingerprint dimensions carrying
// metrics. Dimensions MetricCount..L-1 are zero-filled reserved capacity.
const MetricCount = 10

// DefaultFingerprintDim matches common embedding-model dimensionality so
// exemplar collections stay interoperable with embedding-backed stores.
const DefaultFingerprintDim = 768

// Fingerprint maps NormalizedMetrics into a fixed-length vector for cosine
// similarity search. The dimension order is a versioned contract — changing it
// invalidates every stored exemplar:
//
//	0 engagement_score
//	1 login_frequency
//	2 feature_usage
//	3 email_open_rate
//	4 support_ticket_rate
//	5 payment_issues
//	6 sentiment_score   (remapped from [-1,1])
//	7 login_trend       (remapped from [-1,1])
//	8 feature_trend     (remapped from [-1,1])
//	9 engagement_trend  (remapped from [-1,1])
//
// Every component lies in [0,1]. Deterministic and stateless.
func Fingerprint(m *NormalizedMetrics, dim int) []float32 {
	if dim < MetricCount {
		dim = MetricCount
	}

	vec := make([]float32, dim)
	vec[0] = unit(m.EngagementScore)
	vec[1] = unit(m.LoginFrequency)
	vec[2] = unit(m.FeatureUsage)
	vec[3] = unit(m.EmailOpenRate)
	vec[4] = unit(m.SupportTicketRate)
	vec[5] = unit(m.PaymentIssues)
	vec[6] = unitFromBipolar(m.SentimentScore)
	vec[7] = unitFromBipolar(m.LoginTrend)
	vec[8] = unitFromBipolar(m.FeatureTrend)
	vec[9] = unitFromBipolar(m.EngagementTrend)

	return vec
}

func unit(v float64) float32 {
	return float32(clamp01(v))
}

// unitFromBipolar affine-remaps [-1,1] into [0,1] so cosine similarity treats
// all components uniformly.
func unitFromBipolar(v float64) float32 {
	return float32(clamp01((clampBipolar(v) + 1.0) / 2.0))
}
