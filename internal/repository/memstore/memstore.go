// Package memstore is an in-process store with optimistic transactions.
// It backs the "memory" driver for local runs and the service tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"umkm-inventory/internal/model"
	"umkm-inventory/internal/repository"
)

// ErrReadAfterWrite mirrors document stores that reject reads once a transaction has written.
var ErrReadAfterWrite = errors.New("memstore: read after write in transaction")

type Store struct {
	mu    sync.RWMutex
	items map[string]*model.Item
	sales []*model.Sale
	byID  map[string]*model.Sale
}

// New returns a repository bundle backed by a fresh empty store.
func New() repository.Store {
	return newStore().bundle()
}

func newStore() *Store {
	return &Store{
		items: make(map[string]*model.Item),
		byID:  make(map[string]*model.Sale),
	}
}

func (s *Store) bundle() repository.Store {
	return repository.Store{
		Items:      &itemRepo{s},
		Sales:      &saleRepo{s},
		UnitOfWork: s,
		Close:      func(context.Context) error { return nil },
	}
}

// RunInTx buffers writes and applies them only if every item read is still at
// the version observed. Nothing is locked while fn runs.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx := &memTx{s: s, reads: make(map[string]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, version := range tx.reads {
		current, ok := s.items[id]
		switch {
		case version == missing && ok:
			return fmt.Errorf("%w: item %s appeared", repository.ErrConflict, id)
		case version != missing && (!ok || current.Version != version):
			return fmt.Errorf("%w: item %s changed", repository.ErrConflict, id)
		}
	}
	for _, w := range tx.stock {
		current, ok := s.items[w.id]
		if !ok || current.Version != w.expectedVersion {
			return fmt.Errorf("%w: item %s changed", repository.ErrConflict, w.id)
		}
	}
	for _, sale := range tx.sales {
		if _, dup := s.byID[sale.ID]; dup {
			return fmt.Errorf("memstore: duplicate sale id %s", sale.ID)
		}
	}

	for _, w := range tx.stock {
		item := s.items[w.id]
		item.Stock = w.stock
		item.Version++
		item.UpdatedAt = w.updatedAt
		item.UpdatedBy = w.updatedBy
	}
	for _, sale := range tx.sales {
		s.sales = append(s.sales, sale)
		s.byID[sale.ID] = sale
	}
	return nil
}

const missing int64 = -1

type stockWrite struct {
	id              string
	stock           int
	expectedVersion int64
	updatedAt       time.Time
	updatedBy       string
}

type memTx struct {
	s     *Store
	reads map[string]int64
	stock []stockWrite
	sales []*model.Sale
}

func (t *memTx) wrote() bool {
	return len(t.stock) > 0 || len(t.sales) > 0
}

func (t *memTx) GetItem(ctx context.Context, id string) (*model.Item, error) {
	if t.wrote() {
		return nil, ErrReadAfterWrite
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	item, ok := t.s.items[id]
	if !ok {
		t.reads[id] = missing
		return nil, repository.ErrNotFound
	}
	t.reads[id] = item.Version
	return item.Clone(), nil
}

func (t *memTx) UpdateItemStock(_ context.Context, id string, stock int, expectedVersion int64, updatedAt time.Time, updatedBy string) error {
	t.stock = append(t.stock, stockWrite{
		id:              id,
		stock:           stock,
		expectedVersion: expectedVersion,
		updatedAt:       model.Timestamp(updatedAt),
		updatedBy:       updatedBy,
	})
	return nil
}

func (t *memTx) CreateSale(_ context.Context, sale *model.Sale) error {
	if sale.ID == "" {
		sale.ID = model.NewID()
	}
	sale.CreatedAt = model.Timestamp(sale.CreatedAt)
	t.sales = append(t.sales, sale.Clone())
	return nil
}

type itemRepo struct {
	s *Store
}

func (r *itemRepo) Create(_ context.Context, item *model.Item) error {
	if item.ID == "" {
		item.ID = model.NewID()
	}
	if item.Version == 0 {
		item.Version = 1
	}
	now := model.Timestamp(time.Now())
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}
	item.CreatedAt = model.Timestamp(item.CreatedAt)
	item.UpdatedAt = model.Timestamp(item.UpdatedAt)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.items[item.ID]; dup {
		return fmt.Errorf("memstore: duplicate item id %s", item.ID)
	}
	r.s.items[item.ID] = item.Clone()
	return nil
}

func (r *itemRepo) FindAll(_ context.Context) ([]model.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items := make([]model.Item, 0, len(r.s.items))
	for _, item := range r.s.items {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *itemRepo) FindByID(_ context.Context, id string) (*model.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return item.Clone(), nil
}

func (r *itemRepo) UpdateDetails(_ context.Context, item *model.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.items[item.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.Name = item.Name
	current.SKU = item.SKU
	current.Category = item.Category
	current.PurchasePrice = item.PurchasePrice
	current.SellingPrice = item.SellingPrice
	current.MinStock = item.MinStock
	current.Unit = item.Unit
	current.UpdatedAt = model.Timestamp(item.UpdatedAt)
	current.UpdatedBy = item.UpdatedBy
	return nil
}

func (r *itemRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.items, id)
	return nil
}

type saleRepo struct {
	s *Store
}

func (r *saleRepo) FindByID(_ context.Context, id string) (*model.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sale, ok := r.s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sale.Clone(), nil
}

func (r *saleRepo) ListRecent(_ context.Context, limit int) ([]model.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Sale, 0, len(r.s.sales))
	for i := len(r.s.sales) - 1; i >= 0; i-- {
		out = append(out, *r.s.sales[i].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *saleRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Sale
	for _, sale := range r.s.sales {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		out = append(out, *sale.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
