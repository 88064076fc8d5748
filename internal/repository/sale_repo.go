package repository

import (
	"context"
	"time"

	"umkm-inventory/internal/model"

	"gorm.io/gorm"
)

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

// preloadLines keeps line items in basket order
func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *saleRepo) FindByID(ctx context.Context, id string) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).Preload("Items", preloadLines).First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sale, nil
}

func (r *saleRepo) ListRecent(ctx context.Context, limit int) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items", preloadLines).
		Order("created_at DESC").
		Limit(limit).
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items", preloadLines).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}
