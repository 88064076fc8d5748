package handler

import (
	"errors"

	"umkm-inventory/internal/service"
	"umkm-inventory/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps service errors onto status codes. Client faults are
// echoed back; internal faults are logged and reported generically.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var (
		validation   *service.ValidationError
		notFound     *service.NotFoundError
		insufficient *service.InsufficientStockError
		conflict     *service.ConflictError
	)

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": err.Error()})
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Insufficient stock", "details": err.Error()})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found", "details": err.Error()})
	case service.IsClientFault(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Bad request", "details": err.Error()})
	case errors.As(err, &conflict):
		logger.Warn("request lost every retry to concurrent writers", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Transaction conflict", "details": "too many concurrent updates, please retry"})
	default:
		logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error", "details": "the store could not complete the request"})
	}
}

func invalidJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON", "details": err.Error()})
}

// validationFailed turns DTO validation failures into a ValidationError for the first field.
func validationFailed(errs []*validator.ErrorResponse) error {
	first := errs[0]
	return &service.ValidationError{Field: first.FailedField, Reason: "failed on '" + first.Tag + "'"}
}
