package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/storage/models"
	"github.com/churnsight/backend/pkg/logger"
)

// ErrNotFound is returned when a customer or churn record does not exist.
var ErrNotFound = errors.New("record not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		customer_id TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		subscription_tier TEXT NOT NULL,
		monthly_value REAL NOT NULL,
		signup_date INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_customers_tier ON customers(subscription_tier);

	CREATE TABLE IF NOT EXISTS behavior_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id TEXT NOT NULL,
		event_date INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		metric_value REAL NOT NULL,
		notes TEXT,
		FOREIGN KEY (customer_id) REFERENCES customers(customer_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_events_customer ON behavior_events(customer_id, event_date);
	CREATE INDEX IF NOT EXISTS idx_events_type ON behavior_events(event_type);

	CREATE TABLE IF NOT EXISTS churned_customers (
		customer_id TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		subscription_tier TEXT NOT NULL,
		monthly_value REAL NOT NULL,
		signup_date INTEGER NOT NULL,
		churn_date INTEGER NOT NULL,
		churn_reason TEXT NOT NULL,
		decay_pattern TEXT,
		days_until_churned INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_churned_date ON churned_customers(churn_date);

	CREATE TABLE IF NOT EXISTS assessment_history (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		combined_score REAL NOT NULL,
		risk_level TEXT NOT NULL,
		confidence_level TEXT NOT NULL,
		fallback_used INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_customer ON assessment_history(customer_id, created_at);
	`

	_, err := c.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (customer_id, company_name, subscription_tier, monthly_value, signup_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			company_name = excluded.company_name,
			subscription_tier = excluded.subscription_tier,
			monthly_value = excluded.monthly_value,
			signup_date = excluded.signup_date
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.CompanyName,
		string(customer.Tier),
		customer.MonthlyValue,
		customer.SignupDate.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	return nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	query := `SELECT customer_id, company_name, subscription_tier, monthly_value, signup_date FROM customers WHERE customer_id = ?`

	var customer models.Customer
	var tier string
	var signupDate int64

	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.CompanyName,
		&tier,
		&customer.MonthlyValue,
		&signupDate,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	customer.Tier = models.SubscriptionTier(tier)
	customer.SignupDate = time.Unix(signupDate, 0).UTC()

	return &customer, nil
}

// ListCustomers returns customers ordered by id. A zero limit means no limit.
func (c *Client) ListCustomers(ctx context.Context, tier string, limit int) ([]models.Customer, error) {
	query := `SELECT customer_id, company_name, subscription_tier, monthly_value, signup_date FROM customers`
	args := []interface{}{}

	if tier != "" {
		query += ` WHERE subscription_tier = ?`
		args = append(args, tier)
	}
	query += ` ORDER BY customer_id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var customer models.Customer
		var tierValue string
		var signupDate int64

		err := rows.Scan(&customer.ID, &customer.CompanyName, &tierValue, &customer.MonthlyValue, &signupDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		customer.Tier = models.SubscriptionTier(tierValue)
		customer.SignupDate = time.Unix(signupDate, 0).UTC()
		customers = append(customers, customer)
	}

	return customers, rows.Err()
}

func (c *Client) InsertEvent(ctx context.Context, event *models.BehaviorEvent) error {
	query := `INSERT INTO behavior_events (customer_id, event_date, event_type, metric_value, notes) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.ExecContext(
		ctx,
		query,
		event.CustomerID,
		event.EventDate.Unix(),
		string(event.EventType),
		event.MetricValue,
		event.Notes,
	)

	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// GetEvents returns the customer's events inside the trailing window,
// oldest first.
func (c *Client) GetEvents(ctx context.Context, customerID string, windowDays int) ([]models.BehaviorEvent, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays).Unix()

	query := `
		SELECT id, customer_id, event_date, event_type, metric_value, COALESCE(notes, '')
		FROM behavior_events
		WHERE customer_id = ? AND event_date >= ?
		ORDER BY event_date ASC
	`

	rows, err := c.db.QueryContext(ctx, query, customerID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []models.BehaviorEvent
	for rows.Next() {
		var event models.BehaviorEvent
		var eventDate int64
		var eventType string

		err := rows.Scan(&event.ID, &event.CustomerID, &eventDate, &eventType, &event.MetricValue, &event.Notes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		event.EventDate = time.Unix(eventDate, 0).UTC()
		event.EventType = models.EventType(eventType)
		events = append(events, event)
	}

	return events, rows.Err()
}

func (c *Client) InsertChurnRecord(ctx context.Context, record *models.ChurnRecord) error {
	query := `
		INSERT INTO churned_customers (customer_id, company_name, subscription_tier, monthly_value,
			signup_date, churn_date, churn_reason, decay_pattern, days_until_churned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			churn_date = excluded.churn_date,
			churn_reason = excluded.churn_reason,
			decay_pattern = excluded.decay_pattern,
			days_until_churned = excluded.days_until_churned
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		record.CustomerID,
		record.CompanyName,
		string(record.Tier),
		record.MonthlyValue,
		record.SignupDate.Unix(),
		record.ChurnDate.Unix(),
		record.ChurnReason,
		record.DecayPattern,
		record.DaysUntilChurned,
	)

	if err != nil {
		return fmt.Errorf("failed to insert churn record: %w", err)
	}

	return nil
}

func (c *Client) ListChurnRecords(ctx context.Context) ([]models.ChurnRecord, error) {
	query := `
		SELECT customer_id, company_name, subscription_tier, monthly_value,
			signup_date, churn_date, churn_reason, COALESCE(decay_pattern, ''), days_until_churned
		FROM churned_customers
		ORDER BY churn_date DESC
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list churn records: %w", err)
	}
	defer rows.Close()

	var records []models.ChurnRecord
	for rows.Next() {
		var record models.ChurnRecord
		var tier string
		var signupDate, churnDate int64

		err := rows.Scan(
			&record.CustomerID,
			&record.CompanyName,
			&tier,
			&record.MonthlyValue,
			&signupDate,
			&churnDate,
			&record.ChurnReason,
			&record.DecayPattern,
			&record.DaysUntilChurned,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record.Tier = models.SubscriptionTier(tier)
		record.SignupDate = time.Unix(signupDate, 0).UTC()
		record.ChurnDate = time.Unix(churnDate, 0).UTC()
		records = append(records, record)
	}

	return records, rows.Err()
}

func (c *Client) InsertAssessment(ctx context.Context, record models.AssessmentRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO assessment_history (id, customer_id, combined_score, risk_level, confidence_level, fallback_used, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	fallbackUsed := 0
	if record.FallbackUsed {
		fallbackUsed = 1
	}

	_, err := c.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.CustomerID,
		record.CombinedScore,
		record.RiskLevel,
		record.Confidence,
		fallbackUsed,
		record.ReportJSON,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}

	logger.Debug("Assessment recorded",
		zap.String("assessment_id", record.ID),
		zap.String("customer_id", record.CustomerID),
		zap.Float64("score", record.CombinedScore),
	)

	return nil
}

func (c *Client) GetAssessmentHistory(ctx context.Context, customerID string, limit int) ([]models.AssessmentRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, customer_id, combined_score, risk_level, confidence_level, fallback_used, report_json, created_at
		FROM assessment_history
		WHERE customer_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment history: %w", err)
	}
	defer rows.Close()

	var records []models.AssessmentRecord
	for rows.Next() {
		var record models.AssessmentRecord
		var fallbackUsed int
		var createdAt int64

		err := rows.Scan(
			&record.ID,
			&record.CustomerID,
			&record.CombinedScore,
			&record.RiskLevel,
			&record.Confidence,
			&fallbackUsed,
			&record.ReportJSON,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record.FallbackUsed = fallbackUsed == 1
		record.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, record)
	}

	return records, rows.Err()
}

func (c *Client) CountCustomers(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}
