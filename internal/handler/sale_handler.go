package handler

import (
	"umkm-inventory/internal/middleware"
	"umkm-inventory/internal/model"
	"umkm-inventory/internal/service"
	"umkm-inventory/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SaleHandler struct {
	service service.SaleService
	logger  *zap.Logger
}

func NewSaleHandler(s service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{service: s, logger: logger}
}

// SaleLineRequest keeps Quantity as a pointer so a missing quantity is
// rejected instead of read as zero.
type SaleLineRequest struct {
	ItemID   string `json:"itemId" validate:"required,notblank"`
	Quantity *int   `json:"quantity" validate:"required,gt=0"`
}

type CreateSaleRequest struct {
	Items []SaleLineRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateSale runs a basket through the sale engine
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return respondError(c, h.logger, validationFailed(errs))
	}

	basket := make([]model.BasketLine, len(req.Items))
	for i, line := range req.Items {
		basket[i] = model.BasketLine{ItemID: line.ItemID, Quantity: *line.Quantity}
	}

	result, err := h.service.ProcessSale(c.UserContext(), basket, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"sale":          result.Sale,
		"lowStockItems": result.LowStockAlerts,
	})
}

// GetSales lists the most recent sales
// Query params: limit (default 50, max 500)
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	sales, err := h.service.ListRecentSales(c.UserContext(), c.QueryInt("limit", service.DefaultSaleListLimit))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": sales, "count": len(sales)})
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	sale, err := h.service.GetSale(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(sale)
}
