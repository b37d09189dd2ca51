package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/storage/models"
	"github.com/churnsight/backend/internal/storage/sqlite"
	"github.com/churnsight/backend/pkg/config"
	appLogger "github.com/churnsight/backend/pkg/logger"
)

// Cohort boundaries: customers 1-40 healthy, 41-80 declining, 81-100 critical.
const (
	numCustomers    = 100
	numChurned      = 20
	healthyUpTo     = 40
	decliningUpTo   = 80
	eventWindowDays = 90
)

var (
	companyPrefixes = []string{
		"TechFlow", "DataSync", "CloudBridge", "InnovateTech", "PixelForge",
		"ByteWise", "NexGen", "StreamLine", "CodeCraft", "QuantumEdge",
		"Skyline", "BluePeak", "ApexLogic", "NovaCore", "BrightWave",
		"EchoGrid", "VectorWorks", "FusionByte", "CobaltCloud", "AuroraSoft",
	}
	companySuffixes = []string{
		"Solutions", "Corp", "Inc", "Studios", "Systems",
		"Analytics", "Software", "Labs", "Networks", "Dynamics",
	}

	healthyNotes = []string{
		"Quick question about API",
		"Thanks, resolved fast and very helpful",
		"Feature request, great product overall",
	}
	decliningNotes = []string{
		"Billing concern",
		"Integration issue",
		"Confusion about permissions",
		"Need help with setup",
	}
	criticalNotes = []string{
		"Very frustrated with downtime",
		"Urgent: system not working",
		"Disappointed with support response time",
		"Escalation requested, this is critical",
	}

	churnReasons = []string{
		"Switched to competitor",
		"Budget cuts",
		"Poor onboarding experience",
		"Missing features",
		"Unresolved support issues",
	}
	decayPatterns = []string{"gradual", "sudden", "seasonal"}
)

func main() {
	dbPath := flag.String("db", "", "sqlite path override")
	seed := flag.Int64("seed", 42, "random seed")
	csvDir := flag.String("csv", "", "also export customers and churn records as CSV into this directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.SQLite.Path = *dbPath
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

	ctx := context.Background()
	if err := client.InitSchema(ctx); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	rng := rand.New(rand.NewSource(*seed))
	now := time.Now().UTC().Truncate(24 * time.Hour)

	eventCount := 0
	customers := make([]*models.Customer, 0, numCustomers)
	for i := 1; i <= numCustomers; i++ {
		customer := buildCustomer(rng, i, now)
		if err := client.InsertCustomer(ctx, customer); err != nil {
			appLogger.Fatal("Failed to insert customer", zap.Error(err))
		}
		customers = append(customers, customer)

		for _, event := range buildEvents(rng, customer.ID, i, now) {
			if err := client.InsertEvent(ctx, &event); err != nil {
				appLogger.Fatal("Failed to insert event", zap.Error(err))
			}
			eventCount++
		}
	}

	churned := make([]*models.ChurnRecord, 0, numChurned)
	for i := 1; i <= numChurned; i++ {
		record := buildChurned(rng, i, now)
		if err := client.InsertChurnRecord(ctx, record); err != nil {
			appLogger.Fatal("Failed to insert churn record", zap.Error(err))
		}
		churned = append(churned, record)
	}

	if *csvDir != "" {
		if err := exportCSV(*csvDir, customers, churned); err != nil {
			appLogger.Fatal("Failed to export CSV", zap.Error(err))
		}
		appLogger.Info("CSV export complete", zap.String("dir", *csvDir))
	}

	appLogger.Info("Seed complete",
		zap.Int("customers", numCustomers),
		zap.Int("events", eventCount),
		zap.Int("churned", numChurned),
	)
}

func exportCSV(dir string, customers []*models.Customer, churned []*models.ChurnRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	writeRows := func(name string, header []string, rows [][]string) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		defer f.Close()

		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		return f.Close()
	}

	customerRows := make([][]string, 0, len(customers))
	for _, c := range customers {
		customerRows = append(customerRows, []string{
			c.ID,
			c.CompanyName,
			string(c.Tier),
			strconv.FormatFloat(c.MonthlyValue, 'f', 2, 64),
			c.SignupDate.Format("2006-01-02"),
		})
	}
	if err := writeRows("customers.csv",
		[]string{"customer_id", "company_name", "subscription_tier", "monthly_value", "signup_date"},
		customerRows); err != nil {
		return err
	}

	churnRows := make([][]string, 0, len(churned))
	for _, r := range churned {
		churnRows = append(churnRows, []string{
			r.CustomerID,
			r.CompanyName,
			string(r.Tier),
			strconv.FormatFloat(r.MonthlyValue, 'f', 2, 64),
			r.SignupDate.Format("2006-01-02"),
			r.ChurnDate.Format("2006-01-02"),
			r.ChurnReason,
			r.DecayPattern,
			strconv.Itoa(r.DaysUntilChurned),
		})
	}
	return writeRows("churned_customers.csv",
		[]string{"customer_id", "company_name", "subscription_tier", "monthly_value", "signup_date", "churn_date", "churn_reason", "decay_pattern", "days_until_churned"},
		churnRows)
}

func buildCustomer(rng *rand.Rand, n int, now time.Time) *models.Customer {
	tierRoll := rng.Float64()
	var tier models.SubscriptionTier
	var monthly float64
	switch {
	case tierRoll < 0.30:
		tier = models.TierEnterprise
		monthly = float64(3000 + rng.Intn(5001))
	case tierRoll < 0.80:
		tier = models.TierPro
		monthly = float64(800 + rng.Intn(1201))
	default:
		tier = models.TierBasic
		monthly = float64(100 + rng.Intn(401))
	}

	name := fmt.Sprintf("%s %s",
		companyPrefixes[(n-1)%len(companyPrefixes)],
		companySuffixes[((n-1)/len(companyPrefixes))%len(companySuffixes)],
	)

	return &models.Customer{
		ID:           fmt.Sprintf("CUST%03d", n),
		CompanyName:  name,
		Tier:         tier,
		MonthlyValue: monthly,
		SignupDate:   now.AddDate(0, 0, -(200 + rng.Intn(600))),
	}
}

func buildEvents(rng *rand.Rand, customerID string, n int, now time.Time) []models.BehaviorEvent {
	var events []models.BehaviorEvent

	add := func(daysAgo int, et models.EventType, value float64, notes string) {
		events = append(events, models.BehaviorEvent{
			CustomerID:  customerID,
			EventDate:   now.AddDate(0, 0, -daysAgo),
			EventType:   et,
			MetricValue: value,
			Notes:       notes,
		})
	}

	// Daily Bernoulli logins with a cohort-specific trend over three
	// 30-day periods (oldest first).
	var loginProbs, emailProbs [3]float64
	var notesPool []string
	var ticketRange, delayChance [3]int

	switch {
	case n <= healthyUpTo:
		loginProbs = [3]float64{0.75, 0.75, 0.70}
		emailProbs = [3]float64{0.6, 0.6, 0.6}
		ticketRange = [3]int{2, 2, 2}
		delayChance = [3]int{0, 0, 0}
		notesPool = healthyNotes
	case n <= decliningUpTo:
		loginProbs = [3]float64{0.65, 0.45, 0.25}
		emailProbs = [3]float64{0.5, 0.35, 0.2}
		ticketRange = [3]int{3, 4, 5}
		delayChance = [3]int{0, 20, 35}
		notesPool = decliningNotes
	default:
		loginProbs = [3]float64{0.40, 0.15, 0.07}
		emailProbs = [3]float64{0.35, 0.15, 0.05}
		ticketRange = [3]int{5, 6, 8}
		delayChance = [3]int{10, 40, 60}
		notesPool = criticalNotes
	}

	for day := 0; day < eventWindowDays; day++ {
		daysAgo := eventWindowDays - 1 - day
		period := day / 30

		if rng.Float64() < loginProbs[period] {
			add(daysAgo, models.EventLogin, 1, "")
		}
		if rng.Float64() < loginProbs[period]*0.8 {
			add(daysAgo, models.EventFeatureUsage, float64(1+rng.Intn(4)), "")
		}
		if day%3 == 0 && rng.Float64() < emailProbs[period] {
			add(daysAgo, models.EventEmailOpen, 1, "")
		}
	}

	for period := 0; period < 3; period++ {
		periodStart := eventWindowDays - 1 - period*30

		tickets := rng.Intn(ticketRange[period] + 1)
		for i := 0; i < tickets; i++ {
			add(periodStart-rng.Intn(30), models.EventSupportTicket, 1, notesPool[rng.Intn(len(notesPool))])
		}

		if rng.Intn(100) < delayChance[period] {
			add(periodStart-rng.Intn(30), models.EventPaymentDelay, float64(3+rng.Intn(28)), "")
		}
	}

	return events
}

func buildChurned(rng *rand.Rand, n int, now time.Time) *models.ChurnRecord {
	daysUntilChurned := 60 + rng.Intn(400)
	churnDate := now.AddDate(0, 0, -(15 + rng.Intn(300)))

	var tier models.SubscriptionTier
	var monthly float64
	switch rng.Intn(3) {
	case 0:
		tier = models.TierEnterprise
		monthly = float64(3000 + rng.Intn(5001))
	case 1:
		tier = models.TierPro
		monthly = float64(800 + rng.Intn(1201))
	default:
		tier = models.TierBasic
		monthly = float64(100 + rng.Intn(401))
	}

	return &models.ChurnRecord{
		CustomerID:       fmt.Sprintf("CHURN%03d", n),
		CompanyName:      fmt.Sprintf("Former %s %s", companyPrefixes[n%len(companyPrefixes)], companySuffixes[n%len(companySuffixes)]),
		Tier:             tier,
		MonthlyValue:     monthly,
		SignupDate:       churnDate.AddDate(0, 0, -daysUntilChurned),
		ChurnDate:        churnDate,
		ChurnReason:      churnReasons[rng.Intn(len(churnReasons))],
		DecayPattern:     decayPatterns[rng.Intn(len(decayPatterns))],
		DaysUntilChurned: daysUntilChurned,
	}
}
