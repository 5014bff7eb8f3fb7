package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/FIXCOse/fixco-platform/internal/invoices"
	"github.com/FIXCOse/fixco-platform/internal/observability"
	"github.com/FIXCOse/fixco-platform/internal/pricing"
	"github.com/FIXCOse/fixco-platform/internal/quotes"
)

const verifyPageSize = 500

// TotalsVerifyConfig collects the dependencies of the verification job.
type TotalsVerifyConfig struct {
	QuoteRepo   quotes.Repository
	InvoiceRepo invoices.Repository
	VATRate     decimal.Decimal
	Rates       pricing.DeductionRates
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// NewTotalsVerifyHandler returns the periodic job that recomputes every
// stored document total from its lines and reports drift. Stored figures are
// display values; the calculation is the source of truth, so any mismatch
// means a write path skipped the calculator.
func NewTotalsVerifyHandler(cfg TotalsVerifyConfig) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		g, ctx := errgroup.WithContext(ctx)

		var quoteMismatches, invoiceMismatches int
		g.Go(func() error {
			n, err := verifyQuotes(ctx, cfg)
			quoteMismatches = n
			return err
		})
		g.Go(func() error {
			n, err := verifyInvoices(ctx, cfg)
			invoiceMismatches = n
			return err
		})
		if err := g.Wait(); err != nil {
			if cfg.Metrics != nil {
				cfg.Metrics.ObserveJob(TaskTypeTotalsVerify, "error")
			}
			return err
		}

		cfg.Logger.Info("totals verification complete",
			slog.Int("quote_mismatches", quoteMismatches),
			slog.Int("invoice_mismatches", invoiceMismatches))
		if cfg.Metrics != nil {
			status := "ok"
			if quoteMismatches+invoiceMismatches > 0 {
				status = "mismatch"
			}
			cfg.Metrics.ObserveJob(TaskTypeTotalsVerify, status)
		}
		return nil
	}
}

func verifyQuotes(ctx context.Context, cfg TotalsVerifyConfig) (int, error) {
	mismatches := 0
	for offset := 0; ; offset += verifyPageSize {
		page, _, err := cfg.QuoteRepo.List(ctx, quotes.ListQuotesRequest{Limit: verifyPageSize, Offset: offset})
		if err != nil {
			return mismatches, err
		}
		if len(page) == 0 {
			return mismatches, nil
		}
		for i := range page {
			// Drafts are legitimately in flux between edits.
			if page[i].Status == quotes.QuoteStatusDraft {
				continue
			}
			quote, err := cfg.QuoteRepo.Get(ctx, page[i].ID)
			if err != nil {
				return mismatches, err
			}
			totals, err := pricing.Calculate(quote.PricingItems(), quote.PricingConfig(cfg.VATRate, cfg.Rates))
			if err != nil {
				cfg.Logger.Error("quote no longer prices",
					slog.String("doc_number", quote.DocNumber), slog.Any("error", err))
				mismatches++
				continue
			}
			rounded := totals.Rounded()
			if !rounded.TotalAmount.Equal(quote.TotalAmount) ||
				!rounded.NetPayable.Equal(quote.NetPayable) ||
				!rounded.DeductionAmount.Equal(quote.DeductionAmount()) {
				cfg.Logger.Warn("quote totals drifted",
					slog.String("doc_number", quote.DocNumber),
					slog.String("stored_net", quote.NetPayable.StringFixed(0)),
					slog.String("computed_net", rounded.NetPayable.StringFixed(0)))
				mismatches++
			}
		}
	}
}

func verifyInvoices(ctx context.Context, cfg TotalsVerifyConfig) (int, error) {
	mismatches := 0
	for offset := 0; ; offset += verifyPageSize {
		page, _, err := cfg.InvoiceRepo.List(ctx, invoices.ListInvoicesRequest{Limit: verifyPageSize, Offset: offset})
		if err != nil {
			return mismatches, err
		}
		if len(page) == 0 {
			return mismatches, nil
		}
		for i := range page {
			if page[i].Status == invoices.InvoiceStatusDraft {
				continue
			}
			invoice, err := cfg.InvoiceRepo.Get(ctx, page[i].ID)
			if err != nil {
				return mismatches, err
			}
			totals, err := pricing.Calculate(invoice.PricingItems(), invoice.PricingConfig(cfg.VATRate, cfg.Rates))
			if err != nil {
				cfg.Logger.Error("invoice no longer prices",
					slog.String("doc_number", invoice.DocNumber), slog.Any("error", err))
				mismatches++
				continue
			}
			rounded := totals.Rounded()
			if !rounded.TotalAmount.Equal(invoice.TotalAmount) ||
				!rounded.NetPayable.Equal(invoice.NetPayable) ||
				!rounded.DeductionAmount.Equal(invoice.DeductionAmount()) {
				cfg.Logger.Warn("invoice totals drifted",
					slog.String("doc_number", invoice.DocNumber),
					slog.String("stored_net", invoice.NetPayable.StringFixed(0)),
					slog.String("computed_net", rounded.NetPayable.StringFixed(0)))
				mismatches++
			}
		}
	}
}
