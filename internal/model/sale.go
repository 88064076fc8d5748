package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the immutable record of one committed basket. It owns copies of the
// item data it was priced with, so later edits never rewrite history.
type Sale struct {
	ID          string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	Items       []SaleLineItem  `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"totalPrice"`
	TotalProfit decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"totalProfit"`
	CreatedAt   time.Time       `gorm:"index;not null" json:"createdAt"`
	CreatedBy   string          `gorm:"type:varchar(255)" json:"createdBy,omitempty"`
}

// SaleLineItem is one basket entry resolved at sale time.
type SaleLineItem struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	SaleID        string          `gorm:"type:varchar(64);index;not null" json:"-"`
	Position      int             `gorm:"not null" json:"-"` // Basket submission order
	ItemID        string          `gorm:"type:varchar(64);index;not null" json:"itemId"`
	ItemName      string          `gorm:"type:varchar(255);not null" json:"itemName"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"purchasePrice"`
	TotalPrice    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"totalPrice"`
	Profit        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"profit"`
}

// UnitsSold sums the quantities of every line.
func (s *Sale) UnitsSold() int {
	total := 0
	for _, line := range s.Items {
		total += line.Quantity
	}
	return total
}

// Clone deep-copies the sale including its line slice.
func (s *Sale) Clone() *Sale {
	c := *s
	c.Items = append([]SaleLineItem(nil), s.Items...)
	return &c
}

// LowStockAlert is derived alongside a sale and never persisted.
type LowStockAlert struct {
	ItemID       string `json:"itemId"`
	ItemName     string `json:"itemName"`
	CurrentStock int    `json:"currentStock"`
	MinStock     int    `json:"minStock"`
}

// BasketLine is one requested (item, quantity) pair.
type BasketLine struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}
