package mongostore

import (
	"fmt"
	"time"

	"umkm-inventory/internal/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type itemDoc struct {
	ID            string               `bson:"_id"`
	Name          string               `bson:"name"`
	SKU           string               `bson:"sku"`
	Category      string               `bson:"category"`
	PurchasePrice primitive.Decimal128 `bson:"purchasePrice"`
	SellingPrice  primitive.Decimal128 `bson:"sellingPrice"`
	Stock         int                  `bson:"stock"`
	MinStock      int                  `bson:"minStock"`
	Unit          string               `bson:"unit"`
	Version       int64                `bson:"version"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
	CreatedBy     string               `bson:"createdBy,omitempty"`
	UpdatedBy     string               `bson:"updatedBy,omitempty"`
}

type lineDoc struct {
	ItemID        string               `bson:"itemId"`
	ItemName      string               `bson:"itemName"`
	Quantity      int                  `bson:"quantity"`
	UnitPrice     primitive.Decimal128 `bson:"unitPrice"`
	PurchasePrice primitive.Decimal128 `bson:"purchasePrice"`
	TotalPrice    primitive.Decimal128 `bson:"totalPrice"`
	Profit        primitive.Decimal128 `bson:"profit"`
}

type saleDoc struct {
	ID          string               `bson:"_id"`
	Items       []lineDoc            `bson:"items"`
	TotalPrice  primitive.Decimal128 `bson:"totalPrice"`
	TotalProfit primitive.Decimal128 `bson:"totalProfit"`
	CreatedAt   time.Time            `bson:"createdAt"`
	CreatedBy   string               `bson:"createdBy,omitempty"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}

// decimals converts a batch, stopping at the first failure.
type decimals struct {
	err error
}

func (c *decimals) to(d decimal.Decimal) primitive.Decimal128 {
	if c.err != nil {
		return primitive.Decimal128{}
	}
	v, err := toDecimal128(d)
	c.err = err
	return v
}

func (c *decimals) from(v primitive.Decimal128) decimal.Decimal {
	if c.err != nil {
		return decimal.Zero
	}
	d, err := fromDecimal128(v)
	c.err = err
	return d
}

func newItemDoc(item *model.Item) (*itemDoc, error) {
	var conv decimals
	doc := &itemDoc{
		ID:            item.ID,
		Name:          item.Name,
		SKU:           item.SKU,
		Category:      item.Category,
		PurchasePrice: conv.to(item.PurchasePrice),
		SellingPrice:  conv.to(item.SellingPrice),
		Stock:         item.Stock,
		MinStock:      item.MinStock,
		Unit:          item.Unit,
		Version:       item.Version,
		CreatedAt:     model.Timestamp(item.CreatedAt),
		UpdatedAt:     model.Timestamp(item.UpdatedAt),
		CreatedBy:     item.CreatedBy,
		UpdatedBy:     item.UpdatedBy,
	}
	return doc, conv.err
}

func (d *itemDoc) toModel() (*model.Item, error) {
	var conv decimals
	item := &model.Item{
		BaseModel: model.BaseModel{
			ID:        d.ID,
			CreatedAt: model.Timestamp(d.CreatedAt),
			UpdatedAt: model.Timestamp(d.UpdatedAt),
			CreatedBy: d.CreatedBy,
			UpdatedBy: d.UpdatedBy,
		},
		Name:          d.Name,
		SKU:           d.SKU,
		Category:      d.Category,
		PurchasePrice: conv.from(d.PurchasePrice),
		SellingPrice:  conv.from(d.SellingPrice),
		Stock:         d.Stock,
		MinStock:      d.MinStock,
		Unit:          d.Unit,
		Version:       d.Version,
	}
	return item, conv.err
}

func newSaleDoc(sale *model.Sale) (*saleDoc, error) {
	var conv decimals
	doc := &saleDoc{
		ID:          sale.ID,
		Items:       make([]lineDoc, 0, len(sale.Items)),
		TotalPrice:  conv.to(sale.TotalPrice),
		TotalProfit: conv.to(sale.TotalProfit),
		CreatedAt:   model.Timestamp(sale.CreatedAt),
		CreatedBy:   sale.CreatedBy,
	}
	for _, line := range sale.Items {
		doc.Items = append(doc.Items, lineDoc{
			ItemID:        line.ItemID,
			ItemName:      line.ItemName,
			Quantity:      line.Quantity,
			UnitPrice:     conv.to(line.UnitPrice),
			PurchasePrice: conv.to(line.PurchasePrice),
			TotalPrice:    conv.to(line.TotalPrice),
			Profit:        conv.to(line.Profit),
		})
	}
	return doc, conv.err
}

func (d *saleDoc) toModel() (*model.Sale, error) {
	var conv decimals
	sale := &model.Sale{
		ID:          d.ID,
		Items:       make([]model.SaleLineItem, 0, len(d.Items)),
		TotalPrice:  conv.from(d.TotalPrice),
		TotalProfit: conv.from(d.TotalProfit),
		CreatedAt:   model.Timestamp(d.CreatedAt),
		CreatedBy:   d.CreatedBy,
	}
	for i, line := range d.Items {
		sale.Items = append(sale.Items, model.SaleLineItem{
			SaleID:        d.ID,
			Position:      i,
			ItemID:        line.ItemID,
			ItemName:      line.ItemName,
			Quantity:      line.Quantity,
			UnitPrice:     conv.from(line.UnitPrice),
			PurchasePrice: conv.from(line.PurchasePrice),
			TotalPrice:    conv.from(line.TotalPrice),
			Profit:        conv.from(line.Profit),
		})
	}
	return sale, conv.err
}
