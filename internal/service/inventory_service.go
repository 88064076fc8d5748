package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"umkm-inventory/internal/model"
	"umkm-inventory/internal/repository"
	"umkm-inventory/internal/ws"
	"umkm-inventory/pkg/validator"

	"go.uber.org/zap"
)

// StockAdjustment is the outcome of an explicit stock correction.
type StockAdjustment struct {
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
	OldStock int    `json:"oldStock"`
	NewStock int    `json:"newStock"`
	Delta    int    `json:"delta"`
	Reason   string `json:"reason,omitempty"`
}

type InventoryService interface {
	CreateItem(ctx context.Context, req *model.Item, actor string) (*model.Item, error)
	UpdateItem(ctx context.Context, id string, req *model.Item, actor string) (*model.Item, error)
	DeleteItem(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context) ([]model.Item, error)
	AdjustStock(ctx context.Context, id string, delta int, reason, actor string) (*StockAdjustment, error)
}

type inventoryService struct {
	items  repository.ItemRepository
	uow    repository.UnitOfWork
	events EventPublisher
	retry  RetryPolicy
	now    func() time.Time
	logger *zap.Logger
}

func NewInventoryService(items repository.ItemRepository, uow repository.UnitOfWork, events EventPublisher, retry RetryPolicy, logger *zap.Logger) InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inventoryService{
		items:  items,
		uow:    uow,
		events: events,
		retry:  retry,
		now:    time.Now,
		logger: logger,
	}
}

func validateItem(item *model.Item) error {
	if errs := validator.ValidateStruct(item); len(errs) > 0 {
		firstErr := errs[0]
		return &ValidationError{Field: firstErr.FailedField, Reason: fmt.Sprintf("failed on tag '%s'", firstErr.Tag)}
	}
	return nil
}

func (s *inventoryService) CreateItem(ctx context.Context, req *model.Item, actor string) (*model.Item, error) {
	// 1. Defaults, then validation
	if req.Unit == "" {
		req.Unit = model.DefaultUnit
	}
	if err := validateItem(req); err != nil {
		return nil, err
	}

	// 2. Audit fields
	now := model.Timestamp(s.now())
	req.CreatedAt = now
	req.UpdatedAt = now
	req.CreatedBy = actor
	req.UpdatedBy = actor
	req.Version = 1

	// 3. Persist
	if err := s.items.Create(ctx, req); err != nil {
		return nil, &StoreError{Op: "create item", Err: err}
	}

	s.logger.Info("item created", zap.String("item_id", req.ID), zap.String("sku", req.SKU))
	s.publish(ws.EventItemChanged, map[string]interface{}{"action": "created", "item": req})
	return req, nil
}

// UpdateItem changes descriptive and pricing fields. Stock in the request is ignored;
// use AdjustStock for that.
func (s *inventoryService) UpdateItem(ctx context.Context, id string, req *model.Item, actor string) (*model.Item, error) {
	existing, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = req.Name
	existing.SKU = req.SKU
	existing.Category = req.Category
	existing.PurchasePrice = req.PurchasePrice
	existing.SellingPrice = req.SellingPrice
	existing.MinStock = req.MinStock
	existing.Unit = req.Unit
	if existing.Unit == "" {
		existing.Unit = model.DefaultUnit
	}
	existing.UpdatedAt = model.Timestamp(s.now())
	existing.UpdatedBy = actor

	if err := validateItem(existing); err != nil {
		return nil, err
	}

	if err := s.items.UpdateDetails(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Kind: "item", ID: id}
		}
		return nil, &StoreError{Op: "update item", Err: err}
	}

	s.publish(ws.EventItemChanged, map[string]interface{}{"action": "updated", "item": existing})
	return existing, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Kind: "item", ID: id}
		}
		return &StoreError{Op: "delete item", Err: err}
	}
	s.logger.Info("item deleted", zap.String("item_id", id))
	s.publish(ws.EventItemChanged, map[string]interface{}{"action": "deleted", "itemId": id})
	return nil
}

func (s *inventoryService) GetItem(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return nil, &StoreError{Op: "get item", Err: err}
	}
	return item, nil
}

func (s *inventoryService) ListItems(ctx context.Context) ([]model.Item, error) {
	items, err := s.items.FindAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list items", Err: err}
	}
	return items, nil
}

// AdjustStock applies delta through the same versioned transaction as sales,
// so a correction can never overwrite a concurrent sale.
func (s *inventoryService) AdjustStock(ctx context.Context, id string, delta int, reason, actor string) (*StockAdjustment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "itemId", Reason: "is required"}
	}
	if delta == 0 {
		return nil, &ValidationError{Field: "delta", Reason: "must not be zero"}
	}

	var adj *StockAdjustment
	err := runWithRetry(ctx, s.retry, s.logger, "adjust stock", func(ctx context.Context) error {
		return s.uow.RunInTx(ctx, func(tx repository.Tx) error {
			item, err := tx.GetItem(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Kind: "item", ID: id}
			}
			if err != nil {
				return fmt.Errorf("read item %s: %w", id, err)
			}

			newStock := item.Stock + delta
			if newStock < 0 {
				return &InsufficientStockError{ItemID: item.ID, ItemName: item.Name, Available: item.Stock, Requested: -delta}
			}
			if err := tx.UpdateItemStock(ctx, item.ID, newStock, item.Version, s.now(), actor); err != nil {
				return fmt.Errorf("update stock of %s: %w", item.ID, err)
			}

			adj = &StockAdjustment{
				ItemID:   item.ID,
				ItemName: item.Name,
				OldStock: item.Stock,
				NewStock: newStock,
				Delta:    delta,
				Reason:   reason,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("item_id", adj.ItemID),
		zap.Int("old_stock", adj.OldStock),
		zap.Int("new_stock", adj.NewStock),
		zap.String("reason", reason),
	)
	s.publish(ws.EventStockAdjusted, adj)
	return adj, nil
}

func (s *inventoryService) publish(eventType string, data interface{}) {
	if s.events != nil {
		s.events.Publish(eventType, data)
	}
}
