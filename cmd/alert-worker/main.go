// Command alert-worker consumes budget checks published by the API when
// ALERT_DISPATCH=amqp and mails the owners whose budgets crossed their threshold.
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"spendsmart/internal/alerts"
	"spendsmart/internal/amqp"
	"spendsmart/internal/config"
	"spendsmart/internal/database"
	"spendsmart/internal/logger"
	"spendsmart/internal/mailer"
	"spendsmart/internal/period"
	"spendsmart/internal/services"
)

func main() {
	if err := run(); err != nil {
		logger.Get().Fatalf("Alert worker error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.InitWithOptions(cfg.Env, logger.Options{FilePath: cfg.LogFile})
	defer logger.Sync()
	log := logger.Get()

	dbManager, err := database.NewManager(cfg.DB, cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	db := dbManager.DB()
	checker := services.NewBudgetAlertService(db,
		services.NewSpendAggregator(db),
		period.NewCalculator(cfg.Timezone),
		mailer.New(cfg.SMTP),
	)

	client, err := amqp.NewClient(cfg.Alerts.AMQPURL, cfg.Alerts.AMQPExchange, cfg.Alerts.AMQPQueue)
	if err != nil {
		return fmt.Errorf("failed to connect alert queue: %w", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("alert worker started", "queue", cfg.Alerts.AMQPQueue)
	err = client.ConsumeBudgetChecks(ctx, func(ctx context.Context, req alerts.Request) error {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Alerts.CheckTimeout)
		defer cancel()
		return checker.CheckBudgetAlert(checkCtx, req.UserID, req.CategoryID, req.Month)
	})
	if errors.Is(err, context.Canceled) {
		log.Info("alert worker stopped")
		return nil
	}
	return err
}
