package model

import "github.com/shopspring/decimal"

// DailySales is one day bucket of the sales report
type DailySales struct {
	Date       string          `json:"date"` // YYYY-MM-DD in the reporting timezone
	Revenue    decimal.Decimal `json:"revenue"`
	Profit     decimal.Decimal `json:"profit"`
	SalesCount int             `json:"salesCount"`
	UnitsSold  int             `json:"unitsSold"`
}

// DailyReport covers a contiguous range of days, oldest first
type DailyReport struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Days         []DailySales    `json:"days"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
}

// InventoryOverview for dashboard stats
type InventoryOverview struct {
	TotalItems     int             `json:"totalItems"`
	LowStockCount  int             `json:"lowStockCount"`
	StockValuation decimal.Decimal `json:"stockValuation"`
}
