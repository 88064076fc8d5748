package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"umkm-inventory/internal/config"
	"umkm-inventory/internal/service"
	"umkm-inventory/internal/ws"
)

const summaryTimeout = 2 * time.Minute

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	reports   service.ReportService
	events    service.EventPublisher
	cfg       config.ReportingConfig
	logger    *zap.Logger
	summaryID cron.EntryID
}

// NewScheduler creates a new scheduler instance. Cron expressions are
// evaluated in the reporting timezone.
func NewScheduler(cfg config.ReportingConfig, reports service.ReportService, events service.EventPublisher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		reports: reports,
		events:  events,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the daily summary and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("daily_summary", s.cfg.CronSchedule))

	id, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendDailySummary)
	if err != nil {
		return fmt.Errorf("schedule daily summary %q: %w", s.cfg.CronSchedule, err)
	}
	s.summaryID = id

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// NextRun reports when the daily summary fires next; zero before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.summaryID).Next
}

func (s *Scheduler) sendDailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()

	if err := s.RunDailySummary(ctx); err != nil {
		s.logger.Error("failed to generate daily summary", zap.Error(err))
	}
}

// RunDailySummary builds today's sales summary, logs it and broadcasts it.
func (s *Scheduler) RunDailySummary(ctx context.Context) error {
	s.logger.Info("generating daily summary")

	report, err := s.reports.Daily(ctx, 1)
	if err != nil {
		return err
	}

	var count, units int
	for _, day := range report.Days {
		count += day.SalesCount
		units += day.UnitsSold
	}
	s.logger.Info("daily summary",
		zap.String("date", report.To),
		zap.Int("sales", count),
		zap.Int("units_sold", units),
		zap.String("revenue", report.TotalRevenue.StringFixed(2)),
		zap.String("profit", report.TotalProfit.StringFixed(2)),
	)

	if s.events != nil {
		s.events.Publish(ws.EventDailyReport, report)
	}
	return nil
}
