package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/exemplar"
	"github.com/churnsight/backend/pkg/logger"
)

// Store keeps churn exemplars in a Milvus collection with a COSINE index.
type Store struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewStore(endpoint, apiKey, collectionName string, vectorDim int) (*Store, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus exemplar store initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
		zap.Int("dim", vectorDim),
	)

	return &Store{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("%w: %v", exemplar.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) CreateCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", s.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: s.collectionName,
		Description:    "Churned customer behavioral fingerprints",
		Fields: []*entity.Field{
			{
				Name:       "customer_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "fingerprint",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorDim),
				},
			},
			{
				Name:     "company_name",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "subscription_tier",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "churn_reason",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "decay_pattern",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "monthly_value",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "churn_date",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "days_until_churned",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
	if err != nil {
		return fmt.Errorf("failed to build index spec: %w", err)
	}
	err = s.client.CreateIndex(ctx, s.collectionName, "fingerprint", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = s.client.LoadCollection(ctx, s.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", s.collectionName))

	return nil
}

// Index inserts or replaces the exemplar keyed by customer identifier.
func (s *Store) Index(ctx context.Context, ex exemplar.ChurnExemplar) error {
	if len(ex.Fingerprint) != s.vectorDim {
		return fmt.Errorf("fingerprint dimension %d does not match collection dimension %d",
			len(ex.Fingerprint), s.vectorDim)
	}

	expr := fmt.Sprintf(`customer_id == "%s"`, ex.CustomerID)
	if err := s.client.Delete(ctx, s.collectionName, "", expr); err != nil {
		return fmt.Errorf("%w: %v", exemplar.ErrStoreUnavailable, err)
	}

	_, err := s.client.Insert(
		ctx,
		s.collectionName,
		"",
		entity.NewColumnVarChar("customer_id", []string{ex.CustomerID}),
		entity.NewColumnFloatVector("fingerprint", s.vectorDim, [][]float32{ex.Fingerprint}),
		entity.NewColumnVarChar("company_name", []string{ex.CompanyName}),
		entity.NewColumnVarChar("subscription_tier", []string{ex.Tier}),
		entity.NewColumnVarChar("churn_reason", []string{ex.ChurnReason}),
		entity.NewColumnVarChar("decay_pattern", []string{ex.DecayPattern}),
		entity.NewColumnDouble("monthly_value", []float64{ex.MonthlyValue}),
		entity.NewColumnInt64("churn_date", []int64{ex.ChurnDate.Unix()}),
		entity.NewColumnInt64("days_until_churned", []int64{int64(ex.DaysUntilChurned)}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", exemplar.ErrStoreUnavailable, err)
	}

	if err := s.client.Flush(ctx, s.collectionName, false); err != nil {
		return fmt.Errorf("%w: %v", exemplar.ErrStoreUnavailable, err)
	}

	logger.Info("Exemplar indexed",
		zap.String("customer_id", ex.CustomerID),
		zap.String("churn_reason", ex.ChurnReason),
	)

	return nil
}

// Search returns cosine matches at or above minSimilarity, best first.
func (s *Store) Search(ctx context.Context, fingerprint []float32, k int, minSimilarity float64) ([]exemplar.Match, error) {
	if isZeroVector(fingerprint) {
		return nil, nil
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := s.client.Search(
		ctx,
		s.collectionName,
		[]string{},
		"",
		[]string{"customer_id", "company_name", "subscription_tier", "churn_reason", "decay_pattern", "monthly_value", "churn_date", "days_until_churned"},
		[]entity.Vector{entity.FloatVector(fingerprint)},
		"fingerprint",
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exemplar.ErrStoreUnavailable, err)
	}

	matches := make([]exemplar.Match, 0, k)
	for _, result := range searchResult {
		for i := 0; i < result.ResultCount; i++ {
			similarity := float64(result.Scores[i])
			if similarity < minSimilarity {
				continue
			}

			match := exemplar.Match{Similarity: similarity}
			match.CustomerID = varcharAt(result.Fields.GetColumn("customer_id"), i)
			match.CompanyName = varcharAt(result.Fields.GetColumn("company_name"), i)
			match.Tier = varcharAt(result.Fields.GetColumn("subscription_tier"), i)
			match.ChurnReason = varcharAt(result.Fields.GetColumn("churn_reason"), i)
			match.DecayPattern = varcharAt(result.Fields.GetColumn("decay_pattern"), i)
			match.MonthlyValue = doubleAt(result.Fields.GetColumn("monthly_value"), i)
			match.ChurnDate = timeAt(result.Fields.GetColumn("churn_date"), i)
			match.DaysUntilChurned = int(int64At(result.Fields.GetColumn("days_until_churned"), i))

			matches = append(matches, match)
		}
	}

	exemplar.SortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}

	logger.Debug("Exemplar search completed",
		zap.Int("top_k", k),
		zap.Float64("min_similarity", minSimilarity),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

func isZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func varcharAt(col entity.Column, i int) string {
	if col == nil {
		return ""
	}
	v, err := col.Get(i)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func doubleAt(col entity.Column, i int) float64 {
	if col == nil {
		return 0
	}
	v, err := col.Get(i)
	if err != nil {
		return 0
	}
	f, _ := v.(float64)
	return f
}

func int64At(col entity.Column, i int) int64 {
	if col == nil {
		return 0
	}
	v, err := col.Get(i)
	if err != nil {
		return 0
	}
	n, _ := v.(int64)
	return n
}

func timeAt(col entity.Column, i int) time.Time {
	sec := int64At(col, i)
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
