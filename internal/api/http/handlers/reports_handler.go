package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clarification-service/internal/analytics"
	"github.com/spec-kit/clarification-service/internal/api/dto"
	"github.com/spec-kit/clarification-service/internal/service"
	apperrors "github.com/spec-kit/clarification-service/pkg/util"
)

// ReportsHandler serves dashboard KPI endpoints.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Summary GET /reports/summary.
func (h *ReportsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SummaryResponse{
		GeneratedAt:  summary.GeneratedAt,
		TotalActive:  summary.TotalActive,
		OverdueCount: summary.OverdueCount,
		DueToday:     summary.DueToday,
		Aging:        dto.BucketReportResponse{Labels: summary.Aging.Labels, Counts: summary.Aging.Counts},
		Overdue:      dto.BucketReportResponse{Labels: summary.Overdue.Labels, Counts: summary.Overdue.Counts},
	}})
}

// Aging GET /reports/aging.
func (h *ReportsHandler) Aging(c *fiber.Ctx) error {
	defs, err := parseBucketOverride(c)
	if err != nil {
		return err
	}
	report, err := h.service.AgingReport(c.Context(), defs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BucketReportResponse{Labels: report.Labels, Counts: report.Counts}})
}

// Overdue GET /reports/overdue.
func (h *ReportsHandler) Overdue(c *fiber.Ctx) error {
	defs, err := parseBucketOverride(c)
	if err != nil {
		return err
	}
	report, err := h.service.OverdueReport(c.Context(), defs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BucketReportResponse{Labels: report.Labels, Counts: report.Counts}})
}

// Due GET /reports/due?date=2025-09-04.
func (h *ReportsHandler) Due(c *fiber.Ctx) error {
	dateStr := c.Query("date")
	if dateStr == "" {
		return apperrors.NewValidationError("date required (YYYY-MM-DD)", nil)
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return apperrors.NewValidationError("invalid date, expected YYYY-MM-DD", nil)
	}
	count, err := h.service.DueOn(c.Context(), date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DueCountResponse{Date: dateStr, Count: count}})
}

// parseBucketOverride reads an optional buckets query parameter of the
// form label:min:max,label:min:max (max -1 for open-ended).
func parseBucketOverride(c *fiber.Ctx) ([]analytics.BucketDef, error) {
	raw := c.Query("buckets")
	if raw == "" {
		return nil, nil
	}
	var defs []analytics.BucketDef
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, apperrors.NewValidationError("invalid bucket override, expected label:min:max", nil)
		}
		min := parseInt(fields[1], -1)
		max := parseInt(fields[2], -1)
		if fields[0] == "" || min < 0 {
			return nil, apperrors.NewValidationError("invalid bucket override, expected label:min:max", nil)
		}
		defs = append(defs, analytics.BucketDef{Label: fields[0], Min: min, Max: max})
	}
	return defs, nil
}
