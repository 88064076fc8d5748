package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"umkm-inventory/internal/model"
	"umkm-inventory/internal/repository"
	"umkm-inventory/internal/repository/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

type recordedEvent struct {
	Type string
	Data interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// racingUoW lets another writer commit between our read phase and our commit.
type racingUoW struct {
	inner     repository.UnitOfWork
	mu        sync.Mutex
	races     int
	calls     int
	interfere func()
}

func (r *racingUoW) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.inner.RunInTx(ctx, func(tx repository.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		r.mu.Lock()
		race := r.races > 0
		if race {
			r.races--
		}
		r.mu.Unlock()
		if race {
			r.interfere()
		}
		return nil
	})
}

// failingUoW fails every transaction with err.
type failingUoW struct {
	err   error
	calls int
}

func (f *failingUoW) RunInTx(context.Context, func(tx repository.Tx) error) error {
	f.calls++
	return f.err
}

type itemSpec struct {
	id        string
	name      string
	stock     int
	minStock  int
	selling   string
	purchased string
}

func seedItems(t *testing.T, store repository.Store, specs ...itemSpec) {
	t.Helper()
	for _, s := range specs {
		err := store.Items.Create(context.Background(), &model.Item{
			BaseModel:     model.BaseModel{ID: s.id},
			Name:          s.name,
			SKU:           "SKU-" + s.id,
			SellingPrice:  decimal.RequireFromString(s.selling),
			PurchasePrice: decimal.RequireFromString(s.purchased),
			Stock:         s.stock,
			MinStock:      s.minStock,
			Unit:          model.DefaultUnit,
		})
		require.NoError(t, err)
	}
}

func stockOf(t *testing.T, store repository.Store, id string) int {
	t.Helper()
	item, err := store.Items.FindByID(context.Background(), id)
	require.NoError(t, err)
	return item.Stock
}

func saleCount(t *testing.T, store repository.Store) int {
	t.Helper()
	sales, err := store.Sales.ListRecent(context.Background(), 1000)
	require.NoError(t, err)
	return len(sales)
}

func newTestSaleService(t *testing.T, store repository.Store, uow repository.UnitOfWork, policy RetryPolicy) (*saleService, *fakePublisher) {
	t.Helper()
	if uow == nil {
		uow = store.UnitOfWork
	}
	pub := &fakePublisher{}
	svc := NewSaleService(uow, store.Sales, pub, policy, zaptest.NewLogger(t)).(*saleService)
	svc.now = func() time.Time { return fixedNow }
	return svc, pub
}

func newMemStore() repository.Store {
	return memstore.New()
}

// Stock 10, min 2, sells at 5, costs 3.
var kopi = itemSpec{id: "I1", name: "Kopi Sachet", stock: 10, minStock: 2, selling: "5", purchased: "3"}

var fastRetry = RetryPolicy{MaxAttempts: 5, Timeout: 5 * time.Second, Backoff: time.Millisecond}
