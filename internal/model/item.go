package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultUnit is used when an item is created without a unit label.
const DefaultUnit = "pcs"

// Item is a stock-keeping unit. Stock is only decremented by the sale engine
// or by an explicit stock adjustment; Version guards both.
type Item struct {
	BaseModel
	Name          string          `gorm:"type:varchar(255);not null" json:"name" validate:"required,notblank"`
	SKU           string          `gorm:"type:varchar(64);index;not null" json:"sku" validate:"required,notblank"`
	Category      string          `gorm:"type:varchar(100)" json:"category"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"purchasePrice" validate:"gte=0"`
	SellingPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"sellingPrice" validate:"gte=0"`
	Stock         int             `gorm:"not null;default:0" json:"stock" validate:"gte=0"`
	MinStock      int             `gorm:"not null;default:0" json:"minStock" validate:"gte=0"`
	Unit          string          `gorm:"type:varchar(20);default:'pcs'" json:"unit"`
	Version       int64           `gorm:"not null;default:1" json:"version"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // Soft delete keeps historical sales resolvable
}

// IsLowStock reports whether stock has reached or fallen below the threshold.
func (i *Item) IsLowStock() bool {
	return i.Stock <= i.MinStock
}

// Clone returns a detached copy so store snapshots are never shared.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}
