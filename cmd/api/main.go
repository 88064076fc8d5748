package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"umkm-inventory/internal/bootstrap"
	"umkm-inventory/internal/config"
	"umkm-inventory/internal/handler"
	"umkm-inventory/internal/scheduler"
	"umkm-inventory/internal/service"
	"umkm-inventory/internal/ws"
	pkglogger "umkm-inventory/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	envFile := flag.String("env", "", "path to .env file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := pkglogger.Must(pkglogger.New(cfg.LogLevel))
	defer appLogger.Sync() //nolint:errcheck

	// 2. Setup store
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := bootstrap.OpenStore(startCtx, cfg, true, pkglogger.Named(appLogger, "store"))
	cancel()
	if err != nil {
		appLogger.Fatal("failed to open store", zap.Error(err))
	}

	// 3. Setup WebSocket Hub
	wsHub := ws.NewHub(pkglogger.Named(appLogger, "ws"))
	go wsHub.Run()

	// 4. Dependency Injection (Wiring Layers)
	retry := service.RetryPolicy{
		MaxAttempts: cfg.Sale.MaxAttempts,
		Timeout:     cfg.Sale.TxTimeout,
		Backoff:     cfg.Sale.RetryBackoff,
	}
	invService := service.NewInventoryService(store.Items, store.UnitOfWork, wsHub, retry, pkglogger.Named(appLogger, "inventory"))
	saleService := service.NewSaleService(store.UnitOfWork, store.Sales, wsHub, retry, pkglogger.Named(appLogger, "sale"))
	reportService := service.NewReportService(store.Items, store.Sales, cfg.Reporting.Location)

	handlerLogger := pkglogger.Named(appLogger, "http")
	handlers := handler.Handlers{
		Items:   handler.NewItemHandler(invService, handlerLogger),
		Sales:   handler.NewSaleHandler(saleService, handlerLogger),
		Reports: handler.NewReportHandler(reportService, handlerLogger),
	}

	// 5. Scheduler
	sched := scheduler.NewScheduler(cfg.Reporting, reportService, wsHub, pkglogger.Named(appLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		appLogger.Fatal("failed to start scheduler", zap.Error(err))
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.Server.AppName,
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	handler.Register(app, handlers, []byte(cfg.Auth.Secret))
	if cfg.Auth.Secret == "" {
		appLogger.Warn("JWT_SECRET is empty, API authentication disabled")
	}

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		appLogger.Info("listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			appLogger.Panic("server stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	sched.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("server forced to shutdown", zap.Error(err))
	}
	wsHub.Stop()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		appLogger.Error("failed to close store", zap.Error(err))
	}

	appLogger.Info("server exited")
}
