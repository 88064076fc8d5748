package main

import (
	"context"
	"flag"
	"log"
	"time"

	"umkm-inventory/internal/bootstrap"
	"umkm-inventory/internal/config"
	"umkm-inventory/internal/model"
	pkglogger "umkm-inventory/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type sample struct {
	name, sku, category string
	purchase, selling   int64
	stock, minStock     int
	unit                string
}

var samples = []sample{
	{"Kopi Sachet", "KOPI-01", "Minuman", 1200, 1500, 120, 24, "sachet"},
	{"Teh Botol 350ml", "TEH-01", "Minuman", 3200, 4000, 48, 12, "botol"},
	{"Mie Instan Goreng", "MIE-01", "Makanan", 2600, 3500, 80, 20, "pcs"},
	{"Gula Pasir 1kg", "GULA-01", "Sembako", 14500, 17000, 25, 5, "kg"},
	{"Beras Premium 5kg", "BERAS-05", "Sembako", 68000, 76000, 10, 3, "karung"},
	{"Minyak Goreng 1L", "MINYAK-01", "Sembako", 15000, 18000, 30, 6, "botol"},
}

func main() {
	envFile := flag.String("env", "", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := pkglogger.Must(pkglogger.New(cfg.LogLevel))
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, cfg, true, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close(context.Background()) //nolint:errcheck

	existing, err := store.Items.FindAll(ctx)
	if err != nil {
		logger.Fatal("failed to list items", zap.Error(err))
	}
	known := make(map[string]bool, len(existing))
	for _, item := range existing {
		known[item.SKU] = true
	}

	created := 0
	for _, s := range samples {
		if known[s.sku] {
			continue
		}
		item := &model.Item{
			Name:          s.name,
			SKU:           s.sku,
			Category:      s.category,
			PurchasePrice: decimal.NewFromInt(s.purchase),
			SellingPrice:  decimal.NewFromInt(s.selling),
			Stock:         s.stock,
			MinStock:      s.minStock,
			Unit:          s.unit,
			Version:       1,
		}
		item.CreatedBy = "seed"
		item.UpdatedBy = "seed"
		if err := store.Items.Create(ctx, item); err != nil {
			logger.Fatal("failed to seed item", zap.String("sku", s.sku), zap.Error(err))
		}
		created++
	}

	logger.Info("seed complete", zap.Int("created", created), zap.Int("skipped", len(samples)-created))
}
