package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnsight/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema(context.Background()))
	return client
}

func sampleCustomer(id string) *models.Customer {
	return &models.Customer{
		ID:           id,
		CompanyName:  "Acme " + id,
		Tier:         models.TierPro,
		MonthlyValue: 299,
		SignupDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCustomerRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	want := sampleCustomer("c-1")
	require.NoError(t, client.InsertCustomer(ctx, want))

	got, err := client.GetCustomer(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.CompanyName, got.CompanyName)
	assert.Equal(t, want.Tier, got.Tier)
	assert.Equal(t, want.MonthlyValue, got.MonthlyValue)
	assert.True(t, want.SignupDate.Equal(got.SignupDate))
}

func TestGetCustomerNotFound(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetCustomer(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertCustomerUpserts(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	c := sampleCustomer("c-1")
	require.NoError(t, client.InsertCustomer(ctx, c))

	c.MonthlyValue = 999
	c.Tier = models.TierEnterprise
	require.NoError(t, client.InsertCustomer(ctx, c))

	got, err := client.GetCustomer(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 999.0, got.MonthlyValue)
	assert.Equal(t, models.TierEnterprise, got.Tier)

	count, err := client.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListCustomersTierFilterAndLimit(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	basic := sampleCustomer("a-basic")
	basic.Tier = models.TierBasic
	require.NoError(t, client.InsertCustomer(ctx, basic))
	require.NoError(t, client.InsertCustomer(ctx, sampleCustomer("b-pro")))
	require.NoError(t, client.InsertCustomer(ctx, sampleCustomer("c-pro")))

	all, err := client.ListCustomers(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pro, err := client.ListCustomers(ctx, string(models.TierPro), 0)
	require.NoError(t, err)
	assert.Len(t, pro, 2)

	limited, err := client.ListCustomers(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "a-basic", limited[0].ID)
}

func TestEventsWindowedAndOrdered(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.InsertCustomer(ctx, sampleCustomer("c-1")))

	now := time.Now().UTC()
	for _, daysAgo := range []int{120, 60, 10, 30} {
		require.NoError(t, client.InsertEvent(ctx, &models.BehaviorEvent{
			CustomerID:  "c-1",
			EventDate:   now.AddDate(0, 0, -daysAgo),
			EventType:   models.EventLogin,
			MetricValue: 0,
		}))
	}

	events, err := client.GetEvents(ctx, "c-1", 90)
	require.NoError(t, err)
	require.Len(t, events, 3) // the 120-day-old event is outside the window

	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].EventDate.Before(events[i-1].EventDate))
	}
}

func TestEventNotesSurviveRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.InsertCustomer(ctx, sampleCustomer("c-1")))
	require.NoError(t, client.InsertEvent(ctx, &models.BehaviorEvent{
		CustomerID:  "c-1",
		EventDate:   time.Now().UTC(),
		EventType:   models.EventSupportTicket,
		MetricValue: 1,
		Notes:       "frustrated with downtime",
	}))

	events, err := client.GetEvents(ctx, "c-1", 90)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventSupportTicket, events[0].EventType)
	assert.Equal(t, "frustrated with downtime", events[0].Notes)
}

func TestChurnRecordsOrderedByChurnDate(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	base := models.ChurnRecord{
		CompanyName:      "Gone Inc",
		Tier:             models.TierBasic,
		MonthlyValue:     99,
		SignupDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ChurnReason:      "price",
		DecayPattern:     "gradual",
		DaysUntilChurned: 120,
	}

	older := base
	older.CustomerID = "x-old"
	older.ChurnDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, client.InsertChurnRecord(ctx, &older))

	newer := base
	newer.CustomerID = "x-new"
	newer.ChurnDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, client.InsertChurnRecord(ctx, &newer))

	records, err := client.ListChurnRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "x-new", records[0].CustomerID)
	assert.Equal(t, "x-old", records[1].CustomerID)
	assert.Equal(t, "gradual", records[0].DecayPattern)
}

func TestAssessmentHistoryNewestFirst(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, score := range []float64{40, 55, 70} {
		require.NoError(t, client.InsertAssessment(ctx, models.AssessmentRecord{
			CustomerID:    "c-1",
			CombinedScore: score,
			RiskLevel:     "medium",
			Confidence:    "medium",
			FallbackUsed:  i == 2,
			ReportJSON:    `{"churn_risk_score":0}`,
			CreatedAt:     base.AddDate(0, 0, i),
		}))
	}

	records, err := client.GetAssessmentHistory(ctx, "c-1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 70.0, records[0].CombinedScore)
	assert.True(t, records[0].FallbackUsed)
	assert.Equal(t, 55.0, records[1].CombinedScore)
	assert.NotEmpty(t, records[0].ID) // assigned on insert
}
