package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/FIXCOse/fixco-platform/internal/app"
	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/invoices"
	"github.com/FIXCOse/fixco-platform/internal/observability"
	"github.com/FIXCOse/fixco-platform/internal/platform/db"
	"github.com/FIXCOse/fixco-platform/internal/quotes"
	"github.com/FIXCOse/fixco-platform/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	metrics := observability.NewMetrics()
	quoteRepo := quotes.NewRepository(pool)
	invoiceRepo := invoices.NewRepository(pool)
	customerRepo := customers.NewRepository(pool)

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

	emailHandler := jobs.NewDocumentEmailHandler(jobs.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	}, logger)
	overdueHandler := jobs.NewOverdueScanHandler(jobs.OverdueScanConfig{
		InvoiceRepo:  invoiceRepo,
		CustomerRepo: customerRepo,
		Mailer:       jobsClient,
		Logger:       logger,
		Metrics:      metrics,
	})
	totalsHandler := jobs.NewTotalsVerifyHandler(jobs.TotalsVerifyConfig{
		QuoteRepo:   quoteRepo,
		InvoiceRepo: invoiceRepo,
		VATRate:     cfg.VATRate(),
		Rates:       cfg.DeductionRates(),
		Logger:      logger,
		Metrics:     metrics,
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeDocumentEmail, Handler: emailHandler},
			{Type: jobs.TaskTypeOverdueScan, Handler: overdueHandler},
			{Type: jobs.TaskTypeTotalsVerify, Handler: totalsHandler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 6 * * *", Task: jobs.NewOverdueScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: jobs.NewTotalsVerifyTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
