package repository

import (
	"context"
	"errors"
	"time"

	"umkm-inventory/internal/model"
)

var (
	// ErrNotFound is returned when a keyed lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a concurrent transaction changed a record this one read.
	// The whole transaction has been rolled back and may be retried from scratch.
	ErrConflict = errors.New("concurrent modification detected")
)

// ItemLedger is the transactional view of item stock used by the sale engine.
type ItemLedger interface {
	GetItem(ctx context.Context, id string) (*model.Item, error)
	// UpdateItemStock writes stock only if the item still carries expectedVersion,
	// bumping the version. A mismatch yields ErrConflict.
	UpdateItemStock(ctx context.Context, id string, stock int, expectedVersion int64, updatedAt time.Time, updatedBy string) error
}

// SaleWriter appends sales inside a transaction.
type SaleWriter interface {
	CreateSale(ctx context.Context, sale *model.Sale) error
}

// Tx is everything a unit of work may touch. All reads must precede all writes.
type Tx interface {
	ItemLedger
	SaleWriter
}

// UnitOfWork runs fn inside one atomic transaction. The transaction commits only
// when fn returns nil; any error, panic or commit-time conflict rolls back every write.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// ItemRepository is plain item management outside sale transactions.
// UpdateDetails never touches stock or version.
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	FindAll(ctx context.Context) ([]model.Item, error)
	FindByID(ctx context.Context, id string) (*model.Item, error)
	UpdateDetails(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id string) error
}

// SaleRepository reads the append-only sale log.
type SaleRepository interface {
	FindByID(ctx context.Context, id string) (*model.Sale, error)
	// ListRecent returns at most limit sales, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.Sale, error)
	// ListBetween returns sales with from <= createdAt < to, oldest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error)
}

// Store bundles one logical store's repositories.
type Store struct {
	Items      ItemRepository
	Sales      SaleRepository
	UnitOfWork UnitOfWork
	Close      func(ctx context.Context) error
}
