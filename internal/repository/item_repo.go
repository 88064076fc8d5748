package repository

import (
	"context"
	"errors"

	"umkm-inventory/internal/model"

	"gorm.io/gorm"
)

type itemRepo struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db}
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	item.CreatedAt = model.Timestamp(item.CreatedAt)
	item.UpdatedAt = model.Timestamp(item.UpdatedAt)
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepo) FindAll(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *itemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// UpdateDetails writes descriptive and pricing fields only. Stock and version
// are left alone so sales in flight are not invalidated by a rename.
func (r *itemRepo) UpdateDetails(ctx context.Context, item *model.Item) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":           item.Name,
			"sku":            item.SKU,
			"category":       item.Category,
			"purchase_price": item.PurchasePrice,
			"selling_price":  item.SellingPrice,
			"min_stock":      item.MinStock,
			"unit":           item.Unit,
			"updated_at":     model.Timestamp(item.UpdatedAt),
			"updated_by":     item.UpdatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Item{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
