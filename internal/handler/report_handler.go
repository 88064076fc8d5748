package handler

import (
	"umkm-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReportHandler struct {
	service service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(s service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{service: s, logger: logger}
}

// GetDailySales returns per-day revenue and profit for charts
// Query params: days (default 7)
func (h *ReportHandler) GetDailySales(c *fiber.Ctx) error {
	report, err := h.service.Daily(c.UserContext(), c.QueryInt("days", service.DefaultReportDays))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(report)
}

// GetDashboardStats returns overview statistics
func (h *ReportHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.Overview(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(stats)
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
