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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultSaleListLimit = 50
	MaxSaleListLimit     = 500
)

// EventPublisher receives notifications after a transaction has committed.
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

// SaleResult is what a committed basket produces.
type SaleResult struct {
	Sale           *model.Sale           `json:"sale"`
	LowStockAlerts []model.LowStockAlert `json:"lowStockItems"`
}

type SaleService interface {
	ProcessSale(ctx context.Context, basket []model.BasketLine, actor string) (*SaleResult, error)
	GetSale(ctx context.Context, id string) (*model.Sale, error)
	ListRecentSales(ctx context.Context, limit int) ([]model.Sale, error)
}

type saleService struct {
	uow    repository.UnitOfWork
	sales  repository.SaleRepository
	events EventPublisher
	retry  RetryPolicy
	now    func() time.Time
	logger *zap.Logger
}

func NewSaleService(uow repository.UnitOfWork, sales repository.SaleRepository, events EventPublisher, retry RetryPolicy, logger *zap.Logger) SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saleService{
		uow:    uow,
		sales:  sales,
		events: events,
		retry:  retry,
		now:    time.Now,
		logger: logger,
	}
}

// ValidateBasket checks the shape of a basket before any store access.
// Duplicate item IDs are allowed; each occurrence becomes its own line.
func ValidateBasket(basket []model.BasketLine) error {
	if len(basket) == 0 {
		return &ValidationError{Field: "items", Reason: "must contain at least one line"}
	}
	for i, line := range basket {
		if strings.TrimSpace(line.ItemID) == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].itemId", i), Reason: "is required"}
		}
		if line.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be a positive integer"}
		}
	}
	return nil
}

// ProcessSale validates the basket, then reads, checks, decrements and records
// it in a single transaction, retrying from a fresh read when a concurrent
// sale wins the race on any involved item.
func (s *saleService) ProcessSale(ctx context.Context, basket []model.BasketLine, actor string) (*SaleResult, error) {
	if err := ValidateBasket(basket); err != nil {
		return nil, err
	}

	var result *SaleResult
	err := runWithRetry(ctx, s.retry, s.logger, "process sale", func(ctx context.Context) error {
		var err error
		result, err = s.attempt(ctx, basket, actor)
		return err
	})
	if err != nil {
		if IsClientFault(err) {
			s.logger.Info("sale rejected", zap.Int("lines", len(basket)), zap.Error(err))
		} else {
			s.logger.Error("sale failed", zap.Int("lines", len(basket)), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("sale committed",
		zap.String("sale_id", result.Sale.ID),
		zap.Int("lines", len(result.Sale.Items)),
		zap.String("total_price", result.Sale.TotalPrice.String()),
		zap.String("total_profit", result.Sale.TotalProfit.String()),
		zap.Int("low_stock", len(result.LowStockAlerts)),
	)
	s.publish(result)
	return result, nil
}

func (s *saleService) attempt(ctx context.Context, basket []model.BasketLine, actor string) (*SaleResult, error) {
	var result *SaleResult
	err := s.uow.RunInTx(ctx, func(tx repository.Tx) error {
		// 1. Read phase: every involved item exactly once, before any write
		snapshot, err := readItems(ctx, tx, basket)
		if err != nil {
			return err
		}

		// 2. Validate and compute against the snapshot
		plan, err := planSale(basket, snapshot)
		if err != nil {
			return err
		}

		// 3. Write phase
		now := model.Timestamp(s.now())
		for _, u := range plan.updates {
			if err := tx.UpdateItemStock(ctx, u.item.ID, u.newStock, u.item.Version, now, actor); err != nil {
				return fmt.Errorf("update stock of %s: %w", u.item.ID, err)
			}
		}

		sale := &model.Sale{
			ID:          model.NewID(),
			Items:       plan.lines,
			TotalPrice:  plan.total,
			TotalProfit: plan.profit,
			CreatedAt:   now,
			CreatedBy:   actor,
		}
		for i := range sale.Items {
			sale.Items[i].SaleID = sale.ID
		}
		if err := tx.CreateSale(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		result = &SaleResult{Sale: sale, LowStockAlerts: plan.alerts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// readItems maps every distinct item ID to its current record, or nil when it does not exist.
func readItems(ctx context.Context, ledger repository.ItemLedger, basket []model.BasketLine) (map[string]*model.Item, error) {
	snapshot := make(map[string]*model.Item, len(basket))
	for _, line := range basket {
		if _, done := snapshot[line.ItemID]; done {
			continue
		}
		item, err := ledger.GetItem(ctx, line.ItemID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			snapshot[line.ItemID] = nil
		case err != nil:
			return nil, fmt.Errorf("read item %s: %w", line.ItemID, err)
		default:
			snapshot[line.ItemID] = item
		}
	}
	return snapshot, nil
}

type stockUpdate struct {
	item     *model.Item
	newStock int
}

type salePlan struct {
	lines   []model.SaleLineItem
	updates []stockUpdate // one per distinct item, first appearance order
	alerts  []model.LowStockAlert
	total   decimal.Decimal
	profit  decimal.Decimal
}

// planSale walks the basket in submission order; the first bad line fails the
// whole basket. Repeated items draw down the same snapshot stock cumulatively.
func planSale(basket []model.BasketLine, snapshot map[string]*model.Item) (*salePlan, error) {
	plan := &salePlan{
		lines:  make([]model.SaleLineItem, 0, len(basket)),
		alerts: []model.LowStockAlert{},
		total:  decimal.Zero,
		profit: decimal.Zero,
	}
	remaining := make(map[string]int, len(snapshot))
	updateIdx := make(map[string]int, len(snapshot))

	for i, line := range basket {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be a positive integer"}
		}
		item := snapshot[line.ItemID]
		if item == nil {
			return nil, &NotFoundError{Kind: "item", ID: line.ItemID}
		}

		available, seen := remaining[item.ID]
		if !seen {
			available = item.Stock
		}
		if available < line.Quantity {
			return nil, &InsufficientStockError{
				ItemID:    item.ID,
				ItemName:  item.Name,
				Available: available,
				Requested: line.Quantity,
			}
		}
		newStock := available - line.Quantity
		remaining[item.ID] = newStock

		qty := decimal.NewFromInt(int64(line.Quantity))
		lineTotal := item.SellingPrice.Mul(qty)
		lineProfit := item.SellingPrice.Sub(item.PurchasePrice).Mul(qty)

		plan.lines = append(plan.lines, model.SaleLineItem{
			Position:      i,
			ItemID:        item.ID,
			ItemName:      item.Name,
			Quantity:      line.Quantity,
			UnitPrice:     item.SellingPrice,
			PurchasePrice: item.PurchasePrice,
			TotalPrice:    lineTotal,
			Profit:        lineProfit,
		})
		plan.total = plan.total.Add(lineTotal)
		plan.profit = plan.profit.Add(lineProfit)

		if idx, ok := updateIdx[item.ID]; ok {
			plan.updates[idx].newStock = newStock
		} else {
			updateIdx[item.ID] = len(plan.updates)
			plan.updates = append(plan.updates, stockUpdate{item: item, newStock: newStock})
		}
	}

	for _, u := range plan.updates {
		if u.newStock <= u.item.MinStock {
			plan.alerts = append(plan.alerts, model.LowStockAlert{
				ItemID:       u.item.ID,
				ItemName:     u.item.Name,
				CurrentStock: u.newStock,
				MinStock:     u.item.MinStock,
			})
		}
	}
	return plan, nil
}

func (s *saleService) publish(result *SaleResult) {
	if s.events == nil {
		return
	}
	s.events.Publish(ws.EventSaleCompleted, result.Sale)
	if len(result.LowStockAlerts) > 0 {
		s.events.Publish(ws.EventLowStock, result.LowStockAlerts)
	}
}

func (s *saleService) GetSale(ctx context.Context, id string) (*model.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Kind: "sale", ID: id}
	}
	if err != nil {
		return nil, &StoreError{Op: "get sale", Err: err}
	}
	return sale, nil
}

func (s *saleService) ListRecentSales(ctx context.Context, limit int) ([]model.Sale, error) {
	if limit <= 0 {
		limit = DefaultSaleListLimit
	}
	if limit > MaxSaleListLimit {
		limit = MaxSaleListLimit
	}
	sales, err := s.sales.ListRecent(ctx, limit)
	if err != nil {
		return nil, &StoreError{Op: "list sales", Err: err}
	}
	return sales, nil
}
