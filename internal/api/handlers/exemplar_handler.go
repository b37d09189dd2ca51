package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/behavior"
	"github.com/churnsight/backend/internal/exemplar"
	"github.com/churnsight/backend/internal/metrics"
	"github.com/churnsight/backend/internal/storage/models"
	"github.com/churnsight/backend/internal/storage/sqlite"
	"github.com/churnsight/backend/pkg/logger"
)

type ExemplarHandler struct {
	store          exemplar.Store
	storage        *sqlite.Client
	fingerprintDim int
}

func NewExemplarHandler(store exemplar.Store, storage *sqlite.Client, fingerprintDim int) *ExemplarHandler {
	return &ExemplarHandler{
		store:          store,
		storage:        storage,
		fingerprintDim: fingerprintDim,
	}
}

type indexExemplarRequest struct {
	CustomerID       string                     `json:"customer_id"`
	CompanyName      string                     `json:"company_name"`
	Tier             string                     `json:"subscription_tier"`
	MonthlyValue     float64                    `json:"monthly_value"`
	SignupDate       string                     `json:"signup_date"`
	ChurnDate        string                     `json:"churn_date"`
	ChurnReason      string                     `json:"churn_reason"`
	DecayPattern     string                     `json:"decay_pattern"`
	DaysUntilChurned int                        `json:"days_until_churned"`
	Metrics          behavior.NormalizedMetrics `json:"metrics"`
}

// IndexExemplar registers a churned customer's final-window metrics as a
// search exemplar and records the churn in history.
func (h *ExemplarHandler) IndexExemplar(c *fiber.Ctx) error {
	var req indexExemplarRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.CustomerID == "" || req.CompanyName == "" || req.ChurnReason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "customer_id, company_name and churn_reason are required",
		})
	}

	churnDate, err := time.Parse("2006-01-02", req.ChurnDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "churn_date must be YYYY-MM-DD",
		})
	}

	signupDate := churnDate.AddDate(0, 0, -req.DaysUntilChurned)
	if req.SignupDate != "" {
		signupDate, err = time.Parse("2006-01-02", req.SignupDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "signup_date must be YYYY-MM-DD",
			})
		}
	}

	ex := exemplar.ChurnExemplar{
		CustomerID:       req.CustomerID,
		CompanyName:      req.CompanyName,
		Tier:             req.Tier,
		MonthlyValue:     req.MonthlyValue,
		ChurnDate:        churnDate,
		ChurnReason:      req.ChurnReason,
		DecayPattern:     req.DecayPattern,
		DaysUntilChurned: req.DaysUntilChurned,
		Fingerprint:      behavior.Fingerprint(&req.Metrics, h.fingerprintDim),
	}

	if err := h.store.Index(c.Context(), ex); err != nil {
		logger.Error("Failed to index exemplar",
			zap.String("customer_id", req.CustomerID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Exemplar store unavailable",
		})
	}

	record := &models.ChurnRecord{
		CustomerID:       req.CustomerID,
		CompanyName:      req.CompanyName,
		Tier:             models.SubscriptionTier(req.Tier),
		MonthlyValue:     req.MonthlyValue,
		SignupDate:       signupDate,
		ChurnDate:        churnDate,
		ChurnReason:      req.ChurnReason,
		DecayPattern:     req.DecayPattern,
		DaysUntilChurned: req.DaysUntilChurned,
	}
	if err := h.storage.InsertChurnRecord(c.Context(), record); err != nil {
		logger.Error("Failed to record churn", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record churn",
		})
	}

	metrics.ExemplarsIndexed.Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"customer_id": req.CustomerID,
		"indexed":     true,
	})
}

func (h *ExemplarHandler) ListChurnRecords(c *fiber.Ctx) error {
	records, err := h.storage.ListChurnRecords(c.Context())
	if err != nil {
		logger.Error("Failed to list churn records", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list churn records",
		})
	}

	if records == nil {
		records = []models.ChurnRecord{}
	}

	return c.JSON(fiber.Map{
		"churned": records,
		"count":   len(records),
	})
}
