package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"spendsmart/internal/alerts"
	"spendsmart/internal/amqp"
	"spendsmart/internal/config"
	"spendsmart/internal/database"
	"spendsmart/internal/handlers"
	"spendsmart/internal/lock"
	"spendsmart/internal/logger"
	"spendsmart/internal/mailer"
	"spendsmart/internal/middleware"
	"spendsmart/internal/period"
	"spendsmart/internal/server"
	"spendsmart/internal/services"
	"spendsmart/internal/validator"

	_ "spendsmart/internal/docs" // Import swagger docs
)

// @title           SpendSmart API
// @version         1.0
// @description     SpendSmart tracks income and expenses, monthly category budgets with threshold alerts, and savings goals.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const (
	budgetLockTTL   = 5 * time.Second
	budgetLockWait  = 2 * time.Second
	maxAlertChecks  = 16
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
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

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	dbManager, err := database.NewManager(cfg.DB, cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(database.DefaultMigrationsDir); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	db := dbManager.DB()
	periods := period.NewCalculator(cfg.Timezone)
	sender := mailer.New(cfg.SMTP)
	if !cfg.SMTP.Enabled() {
		log.Warn("SMTP is not configured, budget alert mails will be skipped")
	}

	// Services
	spend := services.NewSpendAggregator(db)
	alertService := services.NewBudgetAlertService(db, spend, periods, sender)

	dispatcher, closeDispatcher, err := newDispatcher(cfg, alertService)
	if err != nil {
		return err
	}
	// In-flight budget checks still need the database, so they drain before it closes.
	defer closeDispatcher()

	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, categoryService, dispatcher, periods)
	budgetService := services.NewBudgetService(db, categoryService, spend, periods, locker)
	goalService := services.NewSavingsGoalService(db, categoryService, transactionService, cfg.Timezone)
	summaryService := services.NewSummaryService(db, spend, periods)

	if n, err := categoryService.EnsureDefaultCategories(context.Background(), false); err != nil {
		return fmt.Errorf("failed to seed default categories: %w", err)
	} else if n > 0 {
		log.Infow("seeded default categories", "inserted", n)
	}

	tokens := middleware.NewTokenIssuer(cfg.JWT)
	router := server.NewRouter(server.Handlers{
		Auth:        handlers.NewAuthHandler(userService, auditService, tokens),
		Category:    handlers.NewCategoryHandler(categoryService),
		Transaction: handlers.NewTransactionHandler(transactionService, auditService, cfg.Timezone),
		Budget:      handlers.NewBudgetHandler(budgetService, auditService),
		SavingsGoal: handlers.NewSavingsGoalHandler(goalService, auditService),
		Summary:     handlers.NewSummaryHandler(summaryService),
	}, server.Options{
		Tokens:      tokens,
		AuthLimiter: middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
		AdminAPIKey: cfg.AdminAPIKey,
		Swagger:     cfg.Env != "production",
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting SpendSmart backend server on port %s", cfg.Port)
		if cfg.Env != "production" {
			log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	log.Info("Server stopped")
	return nil
}

func newLocker(cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Get().Info("REDIS_ADDR not set, using in-process budget locks")
		return lock.NewLocalLocker(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Get().Warnw("failed to close redis client", "error", err)
		}
	}
	return lock.NewRedisLocker(rdb, budgetLockTTL, budgetLockWait), closeFn, nil
}

func newDispatcher(cfg *config.Config, checker alerts.Checker) (alerts.Dispatcher, func(), error) {
	if cfg.Alerts.Dispatch == config.AlertDispatchAMQP {
		client, err := amqp.NewClient(cfg.Alerts.AMQPURL, cfg.Alerts.AMQPExchange, cfg.Alerts.AMQPQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect alert queue: %w", err)
		}
		// Checks the broker refuses still run, in this process.
		fallback := alerts.NewAsyncDispatcher(checker, cfg.Alerts.CheckTimeout, maxAlertChecks)
		client.WithFallback(fallback)
		logger.Get().Infow("budget checks are published to the alert queue", "queue", cfg.Alerts.AMQPQueue)
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Get().Warnw("failed to close AMQP client", "error", err)
			}
			fallback.Close()
		}, nil
	}

	d := alerts.NewAsyncDispatcher(checker, cfg.Alerts.CheckTimeout, maxAlertChecks)
	return d, d.Close, nil
}
