package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"umkm-inventory/internal/model"
	"umkm-inventory/internal/repository"
	"umkm-inventory/internal/ws"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSale_NoAlertAboveMinimum(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, pub := newTestSaleService(t, store, nil, fastRetry)

	res, err := svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 3}}, "cashier-1")
	require.NoError(t, err)

	assert.Equal(t, 7, stockOf(t, store, "I1"))
	assert.Empty(t, res.LowStockAlerts)
	require.Len(t, res.Sale.Items, 1)

	line := res.Sale.Items[0]
	assert.Equal(t, "I1", line.ItemID)
	assert.Equal(t, "Kopi Sachet", line.ItemName)
	assert.True(t, line.TotalPrice.Equal(decimal.NewFromInt(15)), "line total %s", line.TotalPrice)
	assert.True(t, line.Profit.Equal(decimal.NewFromInt(6)), "line profit %s", line.Profit)
	assert.True(t, res.Sale.TotalPrice.Equal(decimal.NewFromInt(15)))
	assert.True(t, res.Sale.TotalProfit.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, fixedNow, res.Sale.CreatedAt)
	assert.Equal(t, "cashier-1", res.Sale.CreatedBy)

	stored, err := store.Sales.FindByID(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Sale.ID, stored.ID)

	assert.Equal(t, []string{ws.EventSaleCompleted}, pub.types())
}

func TestProcessSale_LowStockAlertUsesPostSaleStock(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, pub := newTestSaleService(t, store, nil, fastRetry)

	res, err := svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 9}}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, stockOf(t, store, "I1"))
	require.Len(t, res.LowStockAlerts, 1)
	assert.Equal(t, model.LowStockAlert{ItemID: "I1", ItemName: "Kopi Sachet", CurrentStock: 1, MinStock: 2}, res.LowStockAlerts[0])
	assert.Equal(t, []string{ws.EventSaleCompleted, ws.EventLowStock}, pub.types())
}

func TestProcessSale_AlertBoundaryIsInclusive(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, _ := newTestSaleService(t, store, nil, fastRetry)

	// 10 - 8 = 2 which equals minStock
	res, err := svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 8}}, "")
	require.NoError(t, err)
	require.Len(t, res.LowStockAlerts, 1)
	assert.Equal(t, 2, res.LowStockAlerts[0].CurrentStock)
}

func TestProcessSale_InsufficientStock(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, pub := newTestSaleService(t, store, nil, fastRetry)

	res, err := svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 20}}, "")
	assert.Nil(t, res)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Kopi Sachet", stockErr.ItemName)
	assert.Equal(t, 10, stockErr.Available)
	assert.Equal(t, 20, stockErr.Requested)
	assert.True(t, IsClientFault(err))

	assert.Equal(t, 10, stockOf(t, store, "I1"))
	assert.Equal(t, 0, saleCount(t, store))
	assert.Empty(t, pub.types())
}

func TestProcessSale_MissingItemAbortsWholeBasket(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, _ := newTestSaleService(t, store, nil, fastRetry)

	_, err := svc.ProcessSale(context.Background(), []model.BasketLine{
		{ItemID: "I1", Quantity: 2},
		{ItemID: "I2-missing", Quantity: 1},
	}, "")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "I2-missing", nf.ID)
	assert.True(t, IsClientFault(err))
	assert.Equal(t, 10, stockOf(t, store, "I1"))
	assert.Equal(t, 0, saleCount(t, store))
}

func TestProcessSale_FirstFailingLineWins(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, _ := newTestSaleService(t, store, nil, fastRetry)

	// Line 0 is short on stock, line 1 is missing: the earlier line is reported.
	_, err := svc.ProcessSale(context.Background(), []model.BasketLine{
		{ItemID: "I1", Quantity: 11},
		{ItemID: "ghost", Quantity: 1},
	}, "")
	var stockErr *InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)

	_, err = svc.ProcessSale(context.Background(), []model.BasketLine{
		{ItemID: "ghost", Quantity: 1},
		{ItemID: "I1", Quantity: 11},
	}, "")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestProcessSale_MultiItemConservation(t *testing.T) {
	store := newMemStore()
	seedItems(t, store,
		kopi,
		itemSpec{id: "I2", name: "Gula 1kg", stock: 5, minStock: 1, selling: "15500.50", purchased: "14000.25"},
		itemSpec{id: "I3", name: "Teh", stock: 40, minStock: 0, selling: "2.25", purchased: "2.25"},
	)
	svc, _ := newTestSaleService(t, store, nil, fastRetry)

	res, err := svc.ProcessSale(context.Background(), []model.BasketLine{
		{ItemID: "I2", Quantity: 2},
		{ItemID: "I1", Quantity: 1},
		{ItemID: "I3", Quantity: 4},
	}, "")
	require.NoError(t, err)

	require.Len(t, res.Sale.Items, 3)
	assert.Equal(t, []string{"I2", "I1", "I3"}, []string{res.Sale.Items[0].ItemID, res.Sale.Items[1].ItemID, res.Sale.Items[2].ItemID})

	sumTotal, sumProfit := decimal.Zero, decimal.Zero
	for _, line := range res.Sale.Items {
		q := decimal.NewFromInt(int64(line.Quantity))
		assert.True(t, line.TotalPrice.Equal(line.UnitPrice.Mul(q)))
		assert.True(t, line.Profit.Equal(line.UnitPrice.Sub(line.PurchasePrice).Mul(q)))
		sumTotal = sumTotal.Add(line.TotalPrice)
		sumProfit = sumProfit.Add(line.Profit)
	}
	assert.True(t, res.Sale.TotalPrice.Equal(sumTotal))
	assert.True(t, res.Sale.TotalProfit.Equal(sumProfit))
	assert.True(t, res.Sale.TotalPrice.Equal(decimal.RequireFromString("31015")))
	assert.True(t, res.Sale.TotalProfit.Equal(decimal.RequireFromString("3002.5")))

	assert.Equal(t, 9, stockOf(t, store, "I1"))
	assert.Equal(t, 3, stockOf(t, store, "I2"))
	assert.Equal(t, 36, stockOf(t, store, "I3"))
}

func TestProcessSale_DuplicateItemLinesDrawDownCumulatively(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, _ := newTestSaleService(t, store, nil, fastRetry)

	res, err := svc.ProcessSale(context.Background(), []model.BasketLine{
		{ItemID: "I1", Quantity: 4},
		{ItemID: "I1", Quantity: 5},
	}, "")
	require.NoError(t, err)
	assert.Len(t, res.Sale.Items, 2)
	assert.Equal(t, 1, stockOf(t, store, "I1"))
	require.Len(t, res.LowStockAlerts, 1)
	assert.Equal(t, 1, res.LowStockAlerts[0].CurrentStock)

	// 1 left: two lines of 1 must not both pass against the same snapshot.
	_, err = svc.ProcessSale(context.Background(), []model.BasketLine{
		{ItemID: "I1", Quantity: 1},
		{ItemID: "I1", Quantity: 1},
	}, "")
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, stockErr.Available)
	assert.Equal(t, 1, stockOf(t, store, "I1"))
}

func TestProcessSale_ValidationNeverTouchesStore(t *testing.T) {
	tests := []struct {
		name   string
		basket []model.BasketLine
		field  string
	}{
		{"empty basket", nil, "items"},
		{"missing id", []model.BasketLine{{ItemID: " ", Quantity: 1}}, "items[0].itemId"},
		{"zero quantity", []model.BasketLine{{ItemID: "I1", Quantity: 1}, {ItemID: "I1", Quantity: 0}}, "items[1].quantity"},
		{"negative quantity", []model.BasketLine{{ItemID: "I1", Quantity: -2}}, "items[0].quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			uow := &failingUoW{err: errors.New("must not be called")}
			svc, _ := newTestSaleService(t, store, uow, fastRetry)

			_, err := svc.ProcessSale(context.Background(), tt.basket, "")
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.True(t, IsClientFault(err))
			assert.Equal(t, 0, uow.calls)
		})
	}
}

func TestProcessSale_RetriesAfterConflict(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	uow := &racingUoW{inner: store.UnitOfWork, races: 2}
	uow.interfere = func() {
		// A competing one-unit sale commits while ours is in flight.
		err := store.UnitOfWork.RunInTx(context.Background(), func(tx repository.Tx) error {
			item, err := tx.GetItem(context.Background(), "I1")
			if err != nil {
				return err
			}
			return tx.UpdateItemStock(context.Background(), "I1", item.Stock-1, item.Version, time.Now(), "other")
		})
		require.NoError(t, err)
	}
	svc, _ := newTestSaleService(t, store, uow, fastRetry)

	res, err := svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 3}}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, uow.calls)
	assert.Equal(t, 5, stockOf(t, store, "I1"))
	assert.Equal(t, 1, saleCount(t, store))
	assert.Len(t, res.Sale.Items, 1)
}

func TestProcessSale_ConflictExhaustionIsInternal(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	uow := &racingUoW{inner: store.UnitOfWork, races: 100}
	uow.interfere = func() {
		_ = store.UnitOfWork.RunInTx(context.Background(), func(tx repository.Tx) error {
			item, err := tx.GetItem(context.Background(), "I1")
			if err != nil {
				return err
			}
			return tx.UpdateItemStock(context.Background(), "I1", item.Stock-1, item.Version, time.Now(), "other")
		})
	}
	policy := fastRetry
	policy.MaxAttempts = 3
	svc, pub := newTestSaleService(t, store, uow, policy)

	_, err := svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 1}}, "")
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Attempts)
	assert.False(t, IsClientFault(err))
	assert.Equal(t, 3, uow.calls)

	// Only the interfering writers changed stock.
	assert.Equal(t, 7, stockOf(t, store, "I1"))
	assert.Equal(t, 0, saleCount(t, store))
	assert.Empty(t, pub.types())
}

func TestProcessSale_StoreFailureIsInternalAndNotRetried(t *testing.T) {
	store := newMemStore()
	uow := &failingUoW{err: errors.New("connection reset")}
	svc, _ := newTestSaleService(t, store, uow, fastRetry)

	_, err := svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 1}}, "")
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.False(t, IsClientFault(err))
	assert.Equal(t, 1, uow.calls)
}

func TestProcessSale_CancelledContextIsInternal(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, _ := newTestSaleService(t, store, nil, fastRetry)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ProcessSale(ctx, []model.BasketLine{{ItemID: "I1", Quantity: 1}}, "")
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, stockOf(t, store, "I1"))
}

func TestProcessSale_ConcurrentBasketsNeverOversell(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, _ := newTestSaleService(t, store, nil, fastRetry)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 6}}, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, stockOf(t, store, "I1"))
	assert.Equal(t, 1, saleCount(t, store))
}

func TestProcessSale_ManyConcurrentBuyers(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, itemSpec{id: "I1", name: "Roti", stock: 10, selling: "3", purchased: "2"})
	// Each conflict means another sale committed; at most 10 can.
	policy := RetryPolicy{MaxAttempts: 12, Timeout: 10 * time.Second}
	svc, _ := newTestSaleService(t, store, nil, policy)

	const buyers = 25
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ProcessSale(context.Background(), []model.BasketLine{{ItemID: "I1", Quantity: 1}}, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, stockOf(t, store, "I1"))
	assert.Equal(t, 10, saleCount(t, store))
}

func TestProcessSale_HistoricalSaleKeepsSnapshot(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, kopi)
	svc, _ := newTestSaleService(t, store, nil, fastRetry)
	ctx := context.Background()

	res, err := svc.ProcessSale(ctx, []model.BasketLine{{ItemID: "I1", Quantity: 1}}, "")
	require.NoError(t, err)

	item, err := store.Items.FindByID(ctx, "I1")
	require.NoError(t, err)
	item.Name = "Kopi Renamed"
	item.SellingPrice = decimal.NewFromInt(99)
	require.NoError(t, store.Items.UpdateDetails(ctx, item))

	stored, err := svc.GetSale(ctx, res.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kopi Sachet", stored.Items[0].ItemName)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(5)))
}

func TestGetSale_NotFound(t *testing.T) {
	svc, _ := newTestSaleService(t, newMemStore(), nil, fastRetry)
	_, err := svc.GetSale(context.Background(), "nope")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "sale", nf.Kind)
}

func TestListRecentSales_ClampsLimit(t *testing.T) {
	store := newMemStore()
	seedItems(t, store, itemSpec{id: "I1", name: "Roti", stock: 100, selling: "3", purchased: "2"})
	svc, _ := newTestSaleService(t, store, nil, fastRetry)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.ProcessSale(ctx, []model.BasketLine{{ItemID: "I1", Quantity: 1}}, "")
		require.NoError(t, err)
	}

	all, err := svc.ListRecentSales(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := svc.ListRecentSales(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestPlanSale_IsPure(t *testing.T) {
	item := &model.Item{BaseModel: model.BaseModel{ID: "I1"}, Name: "Kopi", Stock: 10, MinStock: 2,
		SellingPrice: decimal.NewFromInt(5), PurchasePrice: decimal.NewFromInt(3), Version: 4}
	snapshot := map[string]*model.Item{"I1": item}

	plan, err := planSale([]model.BasketLine{{ItemID: "I1", Quantity: 3}}, snapshot)
	require.NoError(t, err)
	require.Len(t, plan.updates, 1)
	assert.Equal(t, 7, plan.updates[0].newStock)
	assert.Equal(t, int64(4), plan.updates[0].item.Version)
	assert.Equal(t, 10, item.Stock, "snapshot must not be mutated")
}
