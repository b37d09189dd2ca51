package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AssessmentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "churnsight_assessment_duration_seconds",
			Help:    "Risk assessment duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"risk_level", "fallback"},
	)

	AssessmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnsight_assessment_total",
			Help: "Total number of risk assessments",
		},
		[]string{"risk_level"},
	)

	FallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "churnsight_fallback_total",
			Help: "Total assessments scored by the rule-based fallback",
		},
	)

	ExemplarMatchCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churnsight_exemplar_matches_count",
			Help:    "Number of exemplar matches per assessment",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnsight_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnsight_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	RevenueAtRisk = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "churnsight_revenue_at_risk_usd",
			Help: "Estimated annual revenue at risk from the last batch run",
		},
	)

	ExemplarsIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "churnsight_exemplars_indexed_total",
			Help: "Total churn exemplars indexed",
		},
	)
)

func Init() {
	prometheus.MustRegister(AssessmentDuration)
	prometheus.MustRegister(AssessmentTotal)
	prometheus.MustRegister(FallbackTotal)
	prometheus.MustRegister(ExemplarMatchCount)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(RevenueAtRisk)
	prometheus.MustRegister(ExemplarsIndexed)
}

func ObserveAssessment(riskLevel string, fallback bool, d time.Duration) {
	AssessmentDuration.WithLabelValues(riskLevel, strconv.FormatBool(fallback)).Observe(d.Seconds())
	AssessmentTotal.WithLabelValues(riskLevel).Inc()
}

func RecordFallback() {
	FallbackTotal.Inc()
}

func ObserveExemplarMatches(n int) {
	ExemplarMatchCount.Observe(float64(n))
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
