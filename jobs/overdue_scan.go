package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/invoices"
	"github.com/FIXCOse/fixco-platform/internal/observability"
)

// ReminderMailer enqueues payment reminder emails for overdue invoices.
type ReminderMailer interface {
	EnqueueOverdueReminder(invoice *invoices.Invoice, recipient string) error
}

// OverdueScanConfig collects the dependencies of the overdue scan.
type OverdueScanConfig struct {
	InvoiceRepo  invoices.Repository
	CustomerRepo customers.Repository
	Mailer       ReminderMailer
	Logger       *slog.Logger
	Metrics      *observability.Metrics
}

// NewOverdueScanHandler returns the periodic scan over sent invoices past
// their due date. Each overdue invoice is logged and, when the customer has
// an email address, a payment reminder is queued.
func NewOverdueScanHandler(cfg OverdueScanConfig) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		outstanding, err := cfg.InvoiceRepo.ListOutstanding(ctx)
		if err != nil {
			if cfg.Metrics != nil {
				cfg.Metrics.ObserveJob(TaskTypeOverdueScan, "error")
			}
			return err
		}

		now := time.Now()
		overdue, reminded := 0, 0
		for i := range outstanding {
			inv := &outstanding[i]
			if !inv.DueDate.Before(now) || !inv.Balance().IsPositive() {
				continue
			}
			overdue++
			cfg.Logger.Warn("invoice overdue",
				slog.String("doc_number", inv.DocNumber),
				slog.Int64("customer_id", inv.CustomerID),
				slog.String("balance", inv.Balance().StringFixed(0)),
				slog.Time("due_date", inv.DueDate))

			if cfg.Mailer == nil {
				continue
			}
			customer, err := cfg.CustomerRepo.Get(ctx, inv.CustomerID)
			if err != nil {
				cfg.Logger.Error("load customer for reminder",
					slog.String("doc_number", inv.DocNumber), slog.Any("error", err))
				continue
			}
			if customer.Email == nil || *customer.Email == "" {
				continue
			}
			if err := cfg.Mailer.EnqueueOverdueReminder(inv, *customer.Email); err != nil {
				cfg.Logger.Error("enqueue overdue reminder",
					slog.String("doc_number", inv.DocNumber), slog.Any("error", err))
				continue
			}
			reminded++
		}

		cfg.Logger.Info("overdue scan complete",
			slog.Int("outstanding", len(outstanding)),
			slog.Int("overdue", overdue),
			slog.Int("reminded", reminded))
		if cfg.Metrics != nil {
			cfg.Metrics.ObserveJob(TaskTypeOverdueScan, "ok")
		}
		return nil
	}
}
