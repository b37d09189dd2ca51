package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/behavior"
	"github.com/churnsight/backend/internal/exemplar"
	"github.com/churnsight/backend/internal/exemplar/milvus"
	"github.com/churnsight/backend/internal/storage/sqlite"
	"github.com/churnsight/backend/pkg/config"
	appLogger "github.com/churnsight/backend/pkg/logger"
)

// Indexes every churned customer from the database into the exemplar store.
// Churned customers predate event collection, so their final-window metrics
// are estimated from the recorded churn reason and decay pattern.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, "console", "stdout"); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	client, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to open database", zap.Error(err))
	}
	defer client.Close()

	store, err := milvus.NewStore(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create exemplar store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateCollection(ctx); err != nil {
		appLogger.Fatal("Failed to create collection", zap.Error(err))
	}

	records, err := client.ListChurnRecords(ctx)
	if err != nil {
		appLogger.Fatal("Failed to list churn records", zap.Error(err))
	}

	indexed := 0
	for _, record := range records {
		m := estimateMetrics(record.ChurnReason, record.DecayPattern)

		ex := exemplar.ChurnExemplar{
			CustomerID:       record.CustomerID,
			CompanyName:      record.CompanyName,
			Tier:             string(record.Tier),
			MonthlyValue:     record.MonthlyValue,
			ChurnDate:        record.ChurnDate,
			ChurnReason:      record.ChurnReason,
			DecayPattern:     record.DecayPattern,
			DaysUntilChurned: record.DaysUntilChurned,
			Fingerprint:      behavior.Fingerprint(m, cfg.Milvus.VectorDim),
		}

		if err := store.Index(ctx, ex); err != nil {
			appLogger.Error("Failed to index exemplar",
				zap.String("customer_id", record.CustomerID),
				zap.Error(err),
			)
			continue
		}
		indexed++
	}

	appLogger.Info("Indexing complete",
		zap.Int("total", len(records)),
		zap.Int("indexed", indexed),
	)
}

// estimateMetrics reconstructs an approximate final-window metric profile
// from churn metadata.
func estimateMetrics(churnReason, decayPattern string) *behavior.NormalizedMetrics {
	m := &behavior.NormalizedMetrics{
		EngagementScore:   0.3,
		LoginFrequency:    0.3,
		FeatureUsage:      0.3,
		EmailOpenRate:     0.3,
		SupportTicketRate: 0.4,
		PaymentIssues:     0.2,
		SentimentScore:    -0.2,
		LoginTrend:        -0.3,
		FeatureTrend:      -0.3,
		EngagementTrend:   -0.3,
	}

	reason := strings.ToLower(churnReason)
	switch {
	case strings.Contains(reason, "support"):
		m.SupportTicketRate = 0.8
		m.SentimentScore = -0.5
		m.EngagementScore = 0.4
	case strings.Contains(reason, "budget") || strings.Contains(reason, "price"):
		m.PaymentIssues = 0.9
		m.FeatureUsage = 0.6
		m.EngagementScore = 0.5
	case strings.Contains(reason, "feature"):
		m.FeatureUsage = 0.2
		m.EngagementScore = 0.4
		m.SupportTicketRate = 0.6
	case strings.Contains(reason, "competitor"):
		m.EngagementScore = 0.3
		m.LoginFrequency = 0.2
		m.FeatureUsage = 0.3
	case strings.Contains(reason, "onboarding"):
		m.EngagementScore = 0.1
		m.LoginFrequency = 0.1
		m.FeatureUsage = 0.1
	}

	switch strings.ToLower(decayPattern) {
	case "rapid", "sudden":
		m.LoginTrend = -1.0
		m.EngagementTrend = -1.0
		m.FeatureTrend = -0.8
		m.EngagementScore *= 0.5
		m.LoginFrequency *= 0.3
	case "gradual", "seasonal":
		m.LoginTrend = -0.5
		m.EngagementTrend = -0.5
		m.FeatureTrend = -0.4
		m.EngagementScore *= 0.7
		m.LoginFrequency *= 0.6
	}

	return m
}
