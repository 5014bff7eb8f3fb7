package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/FIXCOse/fixco-platform/internal/app"
	"github.com/FIXCOse/fixco-platform/internal/auth"
	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/invoices"
	"github.com/FIXCOse/fixco-platform/internal/observability"
	"github.com/FIXCOse/fixco-platform/internal/platform/cache"
	"github.com/FIXCOse/fixco-platform/internal/platform/db"
	"github.com/FIXCOse/fixco-platform/internal/quotes"
	"github.com/FIXCOse/fixco-platform/internal/shared"
	"github.com/FIXCOse/fixco-platform/internal/staff"
	"github.com/FIXCOse/fixco-platform/internal/workorders"
	"github.com/FIXCOse/fixco-platform/jobs"
	"github.com/FIXCOse/fixco-platform/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	pdfClient := report.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}
	renderer := report.NewRenderer(pdfClient)

	metrics := observability.NewMetrics()
	tokenStore := auth.NewTokenStore(redisClient, cfg.AuthTokenTTL)
	idemStore := shared.NewIdempotencyStore(pool)

	vatRate := cfg.VATRate()
	rates := cfg.DeductionRates()

	staffRepo := staff.NewRepository(pool)
	staffService := staff.NewService(staffRepo)
	staffHandler := staff.NewHandler(logger, staffService)

	customerRepo := customers.NewRepository(pool)
	customerService := customers.NewService(customerRepo)
	customersHandler := customers.NewHandler(logger, customerService)

	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(quoteRepo, customerRepo, vatRate, rates)
	quotesHandler := quotes.NewHandler(logger, quoteService, customerService, renderer, jobsClient)

	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, quoteRepo, idemStore, vatRate, rates)
	invoicesHandler := invoices.NewHandler(logger, invoiceService, customerService, renderer, jobsClient)

	workOrderRepo := workorders.NewRepository(pool)
	workOrderService := workorders.NewService(workOrderRepo, customerRepo, staffRepo)
	workOrdersHandler := workorders.NewHandler(logger, workOrderService)

	authHandler := auth.NewHandler(logger, staffService, tokenStore)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		TokenStore:        tokenStore,
		AuthHandler:       authHandler,
		StaffHandler:      staffHandler,
		CustomersHandler:  customersHandler,
		QuotesHandler:     quotesHandler,
		InvoicesHandler:   invoicesHandler,
		WorkOrdersHandler: workOrdersHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
