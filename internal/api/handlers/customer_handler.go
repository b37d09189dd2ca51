package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/assessment"
	"github.com/churnsight/backend/internal/behavior"
	"github.com/churnsight/backend/internal/storage/models"
	"github.com/churnsight/backend/internal/storage/sqlite"
	"github.com/churnsight/backend/pkg/logger"
)

// ReportCache is the slice of the cache layer the handlers use. A nil cache
// disables caching entirely.
type ReportCache interface {
	GetReport(ctx context.Context, customerID string, out interface{}) (bool, error)
	SetReport(ctx context.Context, customerID string, report interface{}, ttl time.Duration) error
}

type CustomerHandler struct {
	engine    *assessment.Engine
	storage   *sqlite.Client
	cache     ReportCache
	reportTTL time.Duration
}

func NewCustomerHandler(engine *assessment.Engine, storage *sqlite.Client, cache ReportCache, reportTTL time.Duration) *CustomerHandler {
	return &CustomerHandler{
		engine:    engine,
		storage:   storage,
		cache:     cache,
		reportTTL: reportTTL,
	}
}

func (h *CustomerHandler) ListCustomers(c *fiber.Ctx) error {
	tier := c.Query("tier")
	limit, _ := strconv.Atoi(c.Query("limit", "0"))

	customers, err := h.storage.ListCustomers(c.Context(), tier, limit)
	if err != nil {
		logger.Error("Failed to list customers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list customers",
		})
	}

	if customers == nil {
		customers = []models.Customer{}
	}

	return c.JSON(fiber.Map{
		"customers": customers,
		"count":     len(customers),
	})
}

func (h *CustomerHandler) AnalyzeCustomer(c *fiber.Ctx) error {
	customerID := c.Params("id")
	force := c.Query("force") == "true"

	if h.cache != nil && !force {
		var cached assessment.RiskReport
		hit, err := h.cache.GetReport(c.Context(), customerID, &cached)
		if err != nil {
			logger.Warn("Report cache read failed", zap.Error(err))
		} else if hit {
			return c.JSON(&cached)
		}
	}

	report, err := h.engine.Assess(c.Context(), customerID)
	if err != nil {
		return h.assessError(c, customerID, err)
	}

	if h.cache != nil {
		if err := h.cache.SetReport(c.Context(), customerID, report, h.reportTTL); err != nil {
			logger.Warn("Report cache write failed", zap.Error(err))
		}
	}

	return c.JSON(report)
}

func (h *CustomerHandler) GetHistory(c *fiber.Ctx) error {
	customerID := c.Params("id")
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	if _, err := h.storage.GetCustomer(c.Context(), customerID); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Customer not found",
			})
		}
		logger.Error("Failed to load customer", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load customer",
		})
	}

	records, err := h.storage.GetAssessmentHistory(c.Context(), customerID, limit)
	if err != nil {
		logger.Error("Failed to load assessment history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load assessment history",
		})
	}

	if records == nil {
		records = []models.AssessmentRecord{}
	}

	return c.JSON(fiber.Map{
		"customer_id": customerID,
		"history":     records,
	})
}

// AtRiskCustomers assesses the whole base and returns customers at or above
// the min_risk score (default 60, the top of the medium band), highest first.
func (h *CustomerHandler) AtRiskCustomers(c *fiber.Ctx) error {
	minRisk, err := strconv.ParseFloat(c.Query("min_risk", "60"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "min_risk must be a number",
		})
	}
	limit, _ := strconv.Atoi(c.Query("limit", "0"))

	result, err := h.engine.AssessAll(c.Context(), nil)
	if err != nil {
		logger.Error("At-risk sweep failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to assess customers",
		})
	}

	atRisk := make([]assessment.RiskReport, 0)
	for _, report := range result.Reports {
		if report.ChurnRiskScore >= minRisk {
			atRisk = append(atRisk, report)
		}
	}
	if limit > 0 && len(atRisk) > limit {
		atRisk = atRisk[:limit]
	}

	return c.JSON(fiber.Map{
		"at_risk": atRisk,
		"count":   len(atRisk),
		"summary": result.Summary,
	})
}

func (h *CustomerHandler) AnalyzeAll(c *fiber.Ctx) error {
	result, err := h.engine.AssessAll(c.Context(), nil)
	if err != nil {
		logger.Error("Batch assessment failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to assess customers",
		})
	}

	if raw := c.Query("min_risk"); raw != "" {
		minRisk, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "min_risk must be a number",
			})
		}
		filtered := make([]assessment.RiskReport, 0)
		for _, report := range result.Reports {
			if report.ChurnRiskScore >= minRisk {
				filtered = append(filtered, report)
			}
		}
		result.Reports = filtered
	}

	return c.JSON(result)
}

func (h *CustomerHandler) assessError(c *fiber.Ctx, customerID string, err error) error {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Customer not found",
		})
	case errors.Is(err, behavior.ErrNoBehaviorData):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "No behavior data in the assessment window",
		})
	default:
		logger.Error("Assessment failed",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to assess customer",
		})
	}
}
