package service

import (
	"context"
	"testing"
	"time"

	"umkm-inventory/internal/model"
	"umkm-inventory/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordSale(t *testing.T, store repository.Store, at time.Time, total, profit string, qty int) {
	t.Helper()
	err := store.UnitOfWork.RunInTx(context.Background(), func(tx repository.Tx) error {
		return tx.CreateSale(context.Background(), &model.Sale{
			Items: []model.SaleLineItem{{
				ItemID:     "I1",
				ItemName:   "Kopi Sachet",
				Quantity:   qty,
				TotalPrice: decimal.RequireFromString(total),
				Profit:     decimal.RequireFromString(profit),
			}},
			TotalPrice:  decimal.RequireFromString(total),
			TotalProfit: decimal.RequireFromString(profit),
			CreatedAt:   at,
		})
	})
	require.NoError(t, err)
}

func TestDailyReportBucketsByLocalDay(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	store := newMemStore()

	// 2024-05-01 10:00 WIB
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	// 2024-05-01 06:30 WIB, still 2024-04-30 in UTC
	recordSale(t, store, time.Date(2024, 4, 30, 23, 30, 0, 0, time.UTC), "10", "4", 2)
	recordSale(t, store, time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC), "5", "2", 1)
	// 2024-04-29 WIB
	recordSale(t, store, time.Date(2024, 4, 29, 5, 0, 0, 0, time.UTC), "7.5", "1.5", 3)
	// Outside the window
	recordSale(t, store, time.Date(2024, 4, 20, 5, 0, 0, 0, time.UTC), "100", "50", 9)

	svc := NewReportService(store.Items, store.Sales, jakarta).(*reportService)
	svc.now = func() time.Time { return now }

	report, err := svc.Daily(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "2024-04-29", report.From)
	assert.Equal(t, "2024-05-01", report.To)
	require.Len(t, report.Days, 3)

	assert.Equal(t, "2024-04-29", report.Days[0].Date)
	assert.Equal(t, 1, report.Days[0].SalesCount)
	assert.Equal(t, 3, report.Days[0].UnitsSold)

	assert.Equal(t, "2024-04-30", report.Days[1].Date)
	assert.Equal(t, 0, report.Days[1].SalesCount)
	assert.True(t, report.Days[1].Revenue.IsZero())

	assert.Equal(t, "2024-05-01", report.Days[2].Date)
	assert.Equal(t, 2, report.Days[2].SalesCount)
	assert.Equal(t, 3, report.Days[2].UnitsSold)
	assert.True(t, decimal.NewFromInt(15).Equal(report.Days[2].Revenue))
	assert.True(t, decimal.NewFromInt(6).Equal(report.Days[2].Profit))

	assert.True(t, decimal.RequireFromString("22.5").Equal(report.TotalRevenue))
	assert.True(t, decimal.RequireFromString("7.5").Equal(report.TotalProfit))
}

func TestDailyReportClampsDays(t *testing.T) {
	store := newMemStore()
	svc := NewReportService(store.Items, store.Sales, nil)

	report, err := svc.Daily(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, report.Days, DefaultReportDays)

	report, err = svc.Daily(context.Background(), 1000)
	require.NoError(t, err)
	assert.Len(t, report.Days, MaxReportDays)
}

func TestOverview(t *testing.T) {
	store := newMemStore()
	seedItems(t, store,
		kopi,
		itemSpec{id: "I2", name: "Teh Botol", stock: 2, minStock: 2, selling: "4", purchased: "2.5"},
		itemSpec{id: "I3", name: "Mie Instan", stock: 0, minStock: 0, selling: "3", purchased: "2"},
	)
	svc := NewReportService(store.Items, store.Sales, time.UTC)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, overview.TotalItems)
	assert.Equal(t, 2, overview.LowStockCount)
	assert.True(t, decimal.NewFromInt(35).Equal(overview.StockValuation))
}
