package handler

import (
	"umkm-inventory/internal/middleware"
	"umkm-inventory/internal/model"
	"umkm-inventory/internal/service"
	"umkm-inventory/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ItemHandler struct {
	service service.InventoryService
	logger  *zap.Logger
}

func NewItemHandler(s service.InventoryService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{service: s, logger: logger}
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"max=255"`
}

func (h *ItemHandler) CreateItem(c *fiber.Ctx) error {
	var item model.Item
	if err := c.BodyParser(&item); err != nil {
		return invalidJSON(c, err)
	}
	// Identity and version are assigned by the store
	item.ID = ""
	item.Version = 0

	created, err := h.service.CreateItem(c.UserContext(), &item, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Item created", "data": created})
}

func (h *ItemHandler) GetItems(c *fiber.Ctx) error {
	items, err := h.service.ListItems(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(items)
}

func (h *ItemHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.service.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(item)
}

func (h *ItemHandler) UpdateItem(c *fiber.Ctx) error {
	var item model.Item
	if err := c.BodyParser(&item); err != nil {
		return invalidJSON(c, err)
	}

	updated, err := h.service.UpdateItem(c.UserContext(), c.Params("id"), &item, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"message": "Item updated", "data": updated})
}

func (h *ItemHandler) DeleteItem(c *fiber.Ctx) error {
	if err := h.service.DeleteItem(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Item deleted"})
}

// AdjustStock corrects stock by a signed delta
// POST /api/v1/items/:id/adjust-stock
func (h *ItemHandler) AdjustStock(c *fiber.Ctx) error {
	var req AdjustStockRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return respondError(c, h.logger, validationFailed(errs))
	}

	adj, err := h.service.AdjustStock(c.UserContext(), c.Params("id"), req.Delta, req.Reason, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"message": "Stock adjusted", "data": adj})
}
