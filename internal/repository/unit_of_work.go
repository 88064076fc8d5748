package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"umkm-inventory/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres error classes that mean "another transaction won, try again".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork runs transactions at REPEATABLE READ. Stock writes are guarded by
// the item version instead of row locks, so disjoint baskets never wait on each other.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db}
}

func (u *gormUnitOfWork) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if isSerializationFailure(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := t.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translateTx(err)
	}
	return &item, nil
}

func (t *gormTx) UpdateItemStock(ctx context.Context, id string, stock int, expectedVersion int64, updatedAt time.Time, updatedBy string) error {
	res := t.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"stock":      stock,
			"version":    gorm.Expr("version + 1"),
			"updated_at": model.Timestamp(updatedAt),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return translateTx(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (t *gormTx) CreateSale(ctx context.Context, sale *model.Sale) error {
	sale.CreatedAt = model.Timestamp(sale.CreatedAt)
	return translateTx(t.db.WithContext(ctx).Create(sale).Error)
}

func translateTx(err error) error {
	if err == nil {
		return nil
	}
	if isSerializationFailure(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return translate(err)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}
