package assessment

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/behavior"
	"github.com/churnsight/backend/internal/exemplar"
	"github.com/churnsight/backend/internal/insight"
	"github.com/churnsight/backend/internal/metrics"
	"github.com/churnsight/backend/internal/storage/models"
	"github.com/churnsight/backend/pkg/logger"
)

// Storage is the slice of the persistence layer the engine reads from.
type Storage interface {
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	GetEvents(ctx context.Context, customerID string, windowDays int) ([]models.BehaviorEvent, error)
	ListCustomers(ctx context.Context, tier string, limit int) ([]models.Customer, error)
	InsertAssessment(ctx context.Context, rec models.AssessmentRecord) error
}

// Options tune the fusion behavior. Zero values are replaced by defaults.
type Options struct {
	WindowDays       int
	TopK             int
	MinSimilarity    float64
	InsightWeight    float64
	SimilarityWeight float64
	FreshChurnDays   int
	FreshChurnBoost  float64
	HighValueMonthly float64
	BatchConcurrency int
}

func (o *Options) applyDefaults() {
	if o.WindowDays == 0 {
		o.WindowDays = behavior.DefaultWindowDays
	}
	if o.TopK == 0 {
		o.TopK = 5
	}
	if o.MinSimilarity == 0 {
		o.MinSimilarity = 0.7
	}
	if o.InsightWeight == 0 && o.SimilarityWeight == 0 {
		o.InsightWeight = 0.6
		o.SimilarityWeight = 0.4
	}
	if o.FreshChurnDays == 0 {
		o.FreshChurnDays = 60
	}
	if o.FreshChurnBoost == 0 {
		o.FreshChurnBoost = 1.5
	}
	if o.HighValueMonthly == 0 {
		o.HighValueMonthly = 500
	}
	if o.BatchConcurrency == 0 {
		o.BatchConcurrency = 4
	}
}

// Engine fuses the provider's judgment with exemplar similarity into one
// risk score.
type Engine struct {
	storage   Storage
	exemplars exemplar.Store
	provider  insight.Provider
	fallback  insight.Provider
	opts      Options
	now       func() time.Time
}

func NewEngine(storage Storage, exemplars exemplar.Store, provider insight.Provider, opts Options) *Engine {
	opts.applyDefaults()
	return &Engine{
		storage:   storage,
		exemplars: exemplars,
		provider:  provider,
		fallback:  insight.NewFallbackScorer(),
		opts:      opts,
		now:       time.Now,
	}
}

// Assess produces the risk report for one customer. A customer with no
// behavior data in the window is a hard failure; provider and exemplar store
// failures degrade instead.
func (e *Engine) Assess(ctx context.Context, customerID string) (*RiskReport, error) {
	start := e.now()

	customer, err := e.storage.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	events, err := e.storage.GetEvents(ctx, customerID, e.opts.WindowDays)
	if err != nil {
		return nil, err
	}

	asOf := e.now()
	m, err := behavior.ComputeMetrics(events, asOf, e.opts.WindowDays)
	if err != nil {
		return nil, err
	}

	fingerprint := behavior.Fingerprint(m, behavior.DefaultFingerprintDim)

	in := insight.Input{
		CustomerID:   customer.ID,
		CompanyName:  customer.CompanyName,
		Tier:         string(customer.Tier),
		MonthlyValue: customer.MonthlyValue,
		TenureMonths: behavior.TenureMonths(customer.SignupDate, asOf),
		Metrics:      m,
	}

	var (
		wg            sync.WaitGroup
		providerOut   *insight.Insight
		providerErr   error
		matches       []exemplar.Match
		storeDegraded bool
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		providerOut, providerErr = e.provider.Analyze(ctx, in)
	}()
	go func() {
		defer wg.Done()
		var searchErr error
		matches, searchErr = e.exemplars.Search(ctx, fingerprint, e.opts.TopK, e.opts.MinSimilarity)
		if searchErr != nil {
			if errors.Is(searchErr, exemplar.ErrStoreUnavailable) {
				logger.Warn("Exemplar store unavailable, assessing without matches",
					zap.String("customer_id", customerID))
			} else {
				logger.Error("Exemplar search failed", zap.Error(searchErr))
			}
			matches = nil
			storeDegraded = true
		}
	}()
	wg.Wait()

	fallbackUsed := false
	if providerErr != nil {
		logger.Warn("Falling back to rule-based scoring",
			zap.String("customer_id", customerID),
			zap.Error(providerErr),
		)
		providerOut, _ = e.fallback.Analyze(ctx, in)
		fallbackUsed = true
		metrics.RecordFallback()
	}

	report := e.fuse(customer, m, providerOut, matches, fallbackUsed, asOf)
	if storeDegraded {
		// With no exemplar evidence, confidence cannot be better than
		// the provider's own.
		report.ConfidenceLevel = "low"
	}

	e.persist(ctx, report)

	metrics.ObserveAssessment(report.RiskLevel, fallbackUsed, e.now().Sub(start))
	metrics.ObserveExemplarMatches(len(matches))

	logger.Info("Assessment complete",
		zap.String("customer_id", customerID),
		zap.Float64("score", report.ChurnRiskScore),
		zap.String("risk_level", report.RiskLevel),
		zap.Bool("fallback_used", fallbackUsed),
		zap.Int("exemplar_matches", len(matches)),
	)

	return report, nil
}

func (e *Engine) fuse(customer *models.Customer, m *behavior.NormalizedMetrics, ins *insight.Insight, matches []exemplar.Match, fallbackUsed bool, asOf time.Time) *RiskReport {
	similarityScore := 0.0
	if len(matches) > 0 {
		var sum float64
		for _, match := range matches {
			sum += match.Similarity
		}
		similarityScore = sum / float64(len(matches)) * 100
	}

	insightWeight, similarityWeight := e.selectWeights(matches, asOf)

	combined := insightWeight*ins.Score + similarityWeight*similarityScore
	if combined < 0 {
		combined = 0
	}
	if combined > 100 {
		combined = 100
	}
	// Bucket from the rounded score so the reported level always agrees
	// with the reported number.
	combined = round1(combined)

	report := &RiskReport{
		CustomerID:             customer.ID,
		CustomerName:           customer.CompanyName,
		SubscriptionTier:       string(customer.Tier),
		MonthlyValue:           customer.MonthlyValue,
		ChurnRiskScore:         combined,
		RiskLevel:              insight.RiskLevelForScore(combined),
		Concerns:               ins.Concerns,
		RecommendedActions:     ins.RecommendedActions,
		SimilarChurned:         matches,
		PredictedChurnDate:     e.predictChurnDate(matches, ins, asOf),
		InterventionPriority:   e.priority(combined, customer.MonthlyValue),
		EstimatedRevenueAtRisk: customer.MonthlyValue * 12,
		ConfidenceLevel:        confidenceFor(len(matches)),
		FallbackUsed:           fallbackUsed,
		AnalysisTimestamp:      asOf,
		BehavioralMetrics:      m,
		InsightScore:           round1(ins.Score),
		SimilarityScore:        round1(similarityScore),
	}
	if report.SimilarChurned == nil {
		report.SimilarChurned = []exemplar.Match{}
	}
	return report
}

// selectWeights picks the insight/similarity split. No exemplar evidence
// leaves the insight alone; an exemplar that churned recently shifts weight
// toward the similarity signal.
func (e *Engine) selectWeights(matches []exemplar.Match, asOf time.Time) (float64, float64) {
	if len(matches) == 0 {
		return 1.0, 0.0
	}

	insightWeight := e.opts.InsightWeight
	similarityWeight := e.opts.SimilarityWeight

	freshCutoff := asOf.AddDate(0, 0, -e.opts.FreshChurnDays)
	for _, match := range matches {
		if match.ChurnDate.After(freshCutoff) {
			similarityWeight *= e.opts.FreshChurnBoost
			break
		}
	}

	total := insightWeight + similarityWeight
	return insightWeight / total, similarityWeight / total
}

func (e *Engine) predictChurnDate(matches []exemplar.Match, ins *insight.Insight, asOf time.Time) *time.Time {
	if len(matches) == 0 {
		return ins.PredictedChurnDate
	}

	days := make([]int, 0, len(matches))
	for _, match := range matches {
		if match.DaysUntilChurned > 0 {
			days = append(days, match.DaysUntilChurned)
		}
	}
	if len(days) == 0 {
		return ins.PredictedChurnDate
	}

	sort.Ints(days)
	median := days[len(days)/2]
	if len(days)%2 == 0 {
		median = (days[len(days)/2-1] + days[len(days)/2]) / 2
	}

	predicted := asOf.AddDate(0, 0, median)
	return &predicted
}

func (e *Engine) priority(score, monthlyValue float64) int {
	p := int(math.Round(score / 10))
	if monthlyValue > e.opts.HighValueMonthly {
		p += 2
	}
	if p < 1 {
		p = 1
	}
	if p > 10 {
		p = 10
	}
	return p
}

func confidenceFor(matchCount int) string {
	switch {
	case matchCount >= 3:
		return "high"
	case matchCount >= 1:
		return "medium"
	default:
		return "low"
	}
}

func (e *Engine) persist(ctx context.Context, report *RiskReport) {
	payload, err := encodeReport(report)
	if err != nil {
		logger.Error("Failed to encode report for history", zap.Error(err))
		return
	}

	rec := models.AssessmentRecord{
		CustomerID:    report.CustomerID,
		CombinedScore: report.ChurnRiskScore,
		RiskLevel:     report.RiskLevel,
		Confidence:    report.ConfidenceLevel,
		FallbackUsed:  report.FallbackUsed,
		ReportJSON:    payload,
		CreatedAt:     report.AnalysisTimestamp,
	}
	if err := e.storage.InsertAssessment(ctx, rec); err != nil {
		logger.Error("Failed to persist assessment",
			zap.String("customer_id", report.CustomerID),
			zap.Error(err),
		)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
