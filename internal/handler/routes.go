package handler

import (
	"umkm-inventory/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything mounted under /api/v1.
type Handlers struct {
	Items   *ItemHandler
	Sales   *SaleHandler
	Reports *ReportHandler
}

// Register mounts the REST routes. An empty secret disables authentication.
func Register(app *fiber.App, h Handlers, secret []byte) {
	app.Get("/health", Health)

	api := app.Group("/api/v1", middleware.RequireAuth(secret))

	// Dashboard / reporting
	api.Get("/dashboard/stats", h.Reports.GetDashboardStats)
	api.Get("/reports/daily", h.Reports.GetDailySales)

	// Items
	api.Get("/items", h.Items.GetItems)
	api.Get("/items/:id", h.Items.GetItem)
	api.Post("/items", middleware.RequireScope(middleware.ScopeItemWrite), h.Items.CreateItem)
	api.Put("/items/:id", middleware.RequireScope(middleware.ScopeItemWrite), h.Items.UpdateItem)
	api.Delete("/items/:id", middleware.RequireScope(middleware.ScopeItemWrite), h.Items.DeleteItem)
	api.Post("/items/:id/adjust-stock", middleware.RequireScope(middleware.ScopeStockAdjust), h.Items.AdjustStock)

	// Sales
	api.Get("/sales", h.Sales.GetSales)
	api.Get("/sales/:id", h.Sales.GetSale)
	api.Post("/sales", middleware.RequireScope(middleware.ScopeSaleCreate), h.Sales.CreateSale)
}
