package service

import (
	"context"
	"time"

	"umkm-inventory/internal/model"
	"umkm-inventory/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	DefaultReportDays = 7
	MaxReportDays     = 90
)

const dateLayout = "2006-01-02"

type ReportService interface {
	Daily(ctx context.Context, days int) (*model.DailyReport, error)
	Overview(ctx context.Context) (*model.InventoryOverview, error)
}

type reportService struct {
	items repository.ItemRepository
	sales repository.SaleRepository
	loc   *time.Location
	now   func() time.Time
}

func NewReportService(items repository.ItemRepository, sales repository.SaleRepository, loc *time.Location) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{items: items, sales: sales, loc: loc, now: time.Now}
}

// Daily buckets the last days of sales by calendar day in the reporting
// timezone, oldest first. Days without sales are present with zero values.
func (s *reportService) Daily(ctx context.Context, days int) (*model.DailyReport, error) {
	if days <= 0 {
		days = DefaultReportDays
	}
	if days > MaxReportDays {
		days = MaxReportDays
	}

	today := s.now().In(s.loc)
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -days)

	sales, err := s.sales.ListBetween(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, &StoreError{Op: "list sales", Err: err}
	}

	report := &model.DailyReport{
		From:         start.Format(dateLayout),
		To:           end.AddDate(0, 0, -1).Format(dateLayout),
		Days:         make([]model.DailySales, days),
		TotalRevenue: decimal.Zero,
		TotalProfit:  decimal.Zero,
	}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		report.Days[i] = model.DailySales{Date: date, Revenue: decimal.Zero, Profit: decimal.Zero}
		index[date] = i
	}

	for i := range sales {
		sale := &sales[i]
		pos, ok := index[sale.CreatedAt.In(s.loc).Format(dateLayout)]
		if !ok {
			continue
		}
		day := &report.Days[pos]
		day.Revenue = day.Revenue.Add(sale.TotalPrice)
		day.Profit = day.Profit.Add(sale.TotalProfit)
		day.SalesCount++
		day.UnitsSold += sale.UnitsSold()

		report.TotalRevenue = report.TotalRevenue.Add(sale.TotalPrice)
		report.TotalProfit = report.TotalProfit.Add(sale.TotalProfit)
	}

	return report, nil
}

func (s *reportService) Overview(ctx context.Context) (*model.InventoryOverview, error) {
	items, err := s.items.FindAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list items", Err: err}
	}

	overview := &model.InventoryOverview{TotalItems: len(items), StockValuation: decimal.Zero}
	for i := range items {
		item := &items[i]
		if item.IsLowStock() {
			overview.LowStockCount++
		}
		overview.StockValuation = overview.StockValuation.Add(item.PurchasePrice.Mul(decimal.NewFromInt(int64(item.Stock))))
	}
	return overview, nil
}
