package assessment

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/metrics"
	"github.com/churnsight/backend/pkg/logger"
)

// BatchProgress is emitted after every finished customer during a batch run.
type BatchProgress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	CustomerID string  `json:"customer_id"`
	Score      float64 `json:"score,omitempty"`
	Failed     bool    `json:"failed,omitempty"`
}

// BatchResult is the outcome of assessing the whole customer base.
type BatchResult struct {
	Reports []RiskReport `json:"reports"`
	Skipped []string     `json:"skipped"`
	Summary *Summary     `json:"summary"`
}

// AssessAll runs assessments for every customer with bounded concurrency.
// Individual failures are skipped, not fatal. Reports come back sorted by
// risk score descending. progress may be nil.
func (e *Engine) AssessAll(ctx context.Context, progress func(BatchProgress)) (*BatchResult, error) {
	customers, err := e.storage.ListCustomers(ctx, "", 0)
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		reports   []RiskReport
		skipped   []string
		completed int
	)

	sem := make(chan struct{}, e.opts.BatchConcurrency)

	for _, customer := range customers {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			report, err := e.Assess(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			completed++

			p := BatchProgress{
				Completed:  completed,
				Total:      len(customers),
				CustomerID: id,
			}
			if err != nil {
				logger.Warn("Skipping customer in batch run",
					zap.String("customer_id", id),
					zap.Error(err),
				)
				skipped = append(skipped, id)
				p.Failed = true
			} else {
				reports = append(reports, *report)
				p.Score = report.ChurnRiskScore
			}
			if progress != nil {
				progress(p)
			}
		}(customer.ID)
	}

	wg.Wait()

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].ChurnRiskScore > reports[j].ChurnRiskScore
	})
	sort.Strings(skipped)

	summary := Summarize(reports)
	metrics.RevenueAtRisk.Set(summary.TotalRevenueAtRisk)

	logger.Info("Batch assessment complete",
		zap.Int("assessed", len(reports)),
		zap.Int("skipped", len(skipped)),
	)

	return &BatchResult{
		Reports: reports,
		Skipped: skipped,
		Summary: summary,
	}, nil
}
