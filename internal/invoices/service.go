package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/pricing"
	"github.com/FIXCOse/fixco-platform/internal/quotes"
)

// IdempotencyGuard deduplicates invoice creation requests by key.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

const defaultPaymentTermsDays = 30

// Service handles invoice business logic.
type Service struct {
	repo      Repository
	quoteRepo quotes.Repository
	idem      IdempotencyGuard
	vatRate   decimal.Decimal
	rates     pricing.DeductionRates
}

// NewService builds a Service instance.
func NewService(repo Repository, quoteRepo quotes.Repository, idem IdempotencyGuard, vatRatePercent decimal.Decimal, rates pricing.DeductionRates) *Service {
	return &Service{
		repo:      repo,
		quoteRepo: quoteRepo,
		idem:      idem,
		vatRate:   vatRatePercent,
		rates:     rates,
	}
}

// CreateFromQuote cuts a draft invoice from an accepted quote. Lines are
// copied, totals recomputed from scratch and the quote is flipped to invoiced
// in the same transaction. A non-empty idempotencyKey makes retries safe.
func (s *Service) CreateFromQuote(ctx context.Context, req CreateFromQuoteRequest, idempotencyKey string, createdBy int64) (*Invoice, error) {
	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, "invoices"); err != nil {
			return nil, fmt.Errorf("%w: %s", httpx.ErrDuplicate, err)
		}
	}

	quote, err := s.quoteRepo.Get(ctx, req.QuoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote.Status != quotes.QuoteStatusAccepted {
		return nil, fmt.Errorf("%w: only accepted quotes can be invoiced", httpx.ErrInvalidState)
	}

	invoiceDate := req.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}
	dueDate := invoiceDate.AddDate(0, 0, defaultPaymentTermsDays)
	if req.PaymentTermsDays > 0 {
		dueDate = invoiceDate.AddDate(0, 0, req.PaymentTermsDays)
	}
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}
	if dueDate.Before(invoiceDate) {
		return nil, fmt.Errorf("%w: due_date must be after invoice_date", httpx.ErrValidation)
	}

	// Recompute rather than trust the quote's stored figures. If deduction
	// rates changed between acceptance and invoicing, the invoice carries the
	// rates in force now.
	totals, err := pricing.Calculate(quote.PricingItems(), quote.PricingConfig(s.vatRate, s.rates))
	if err != nil {
		return nil, err
	}

	docNumber, err := s.repo.GenerateNumber(ctx, invoiceDate)
	if err != nil {
		return nil, fmt.Errorf("generate doc number: %w", err)
	}

	invoice := Invoice{
		DocNumber:       docNumber,
		QuoteID:         quote.ID,
		CustomerID:      quote.CustomerID,
		Status:          InvoiceStatusDraft,
		InvoiceDate:     invoiceDate,
		DueDate:         dueDate,
		Currency:        quote.Currency,
		DiscountPercent: quote.DiscountPercent,
		DeductionRegime: quote.DeductionRegime,
		HouseholdSize:   quote.HouseholdSize,
		AmountPaid:      decimal.Zero,
		Notes:           req.Notes,
		CreatedBy:       createdBy,
	}
	applyTotals(&invoice, totals)

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, invoice)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		invoiceID = id
		if err := repo.InsertLines(ctx, id, copyLines(id, quote.Lines)); err != nil {
			return err
		}
		return repo.MarkQuoteInvoiced(ctx, quote.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, invoiceID)
}

// Send transitions a draft invoice to sent. The status-guarded update
// decides any race; a guard rejection on an unknown id stays a not found.
func (s *Service) Send(ctx context.Context, id int64) (*Invoice, error) {
	if err := s.repo.UpdateStatus(ctx, id, InvoiceStatusDraft, InvoiceStatusSent, time.Now()); err != nil {
		if !errors.Is(err, httpx.ErrInvalidState) {
			return nil, fmt.Errorf("update status: %w", err)
		}
		if _, getErr := s.repo.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: only draft invoices can be sent", httpx.ErrInvalidState)
	}
	return s.repo.Get(ctx, id)
}

// RegisterPayment records a payment against a sent invoice and settles it
// once the running total covers the net payable.
func (s *Service) RegisterPayment(ctx context.Context, id int64, req RegisterPaymentRequest) (*Invoice, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if existing.Status != InvoiceStatusSent {
		return nil, fmt.Errorf("%w: payments can only be registered on sent invoices", httpx.ErrInvalidState)
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	newTotal := existing.AmountPaid.Add(req.Amount)
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.AddPayment(ctx, Payment{
			InvoiceID: id,
			Amount:    req.Amount,
			PaidAt:    paidAt,
			Method:    req.Method,
			Reference: req.Reference,
		}); err != nil {
			return fmt.Errorf("add payment: %w", err)
		}
		if err := repo.SetAmountPaid(ctx, id, newTotal); err != nil {
			return fmt.Errorf("update amount paid: %w", err)
		}
		if newTotal.GreaterThanOrEqual(existing.NetPayable) {
			return repo.UpdateStatus(ctx, id, InvoiceStatusSent, InvoiceStatusPaid, paidAt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, id)
}

// Void cancels an unpaid invoice. Invoices with registered payments cannot be
// voided.
func (s *Service) Void(ctx context.Context, id int64) (*Invoice, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	switch existing.Status {
	case InvoiceStatusDraft, InvoiceStatusSent:
	default:
		return nil, fmt.Errorf("%w: only draft or sent invoices can be voided", httpx.ErrInvalidState)
	}
	if existing.AmountPaid.IsPositive() {
		return nil, fmt.Errorf("%w: invoice has registered payments", httpx.ErrInvalidState)
	}
	// Guard on the status just read; if a payment settles the invoice in the
	// meantime the update matches zero rows instead of voiding a paid invoice.
	if err := s.repo.UpdateStatus(ctx, id, existing.Status, InvoiceStatusVoid, time.Now()); err != nil {
		if errors.Is(err, httpx.ErrInvalidState) {
			return nil, fmt.Errorf("%w: cannot void this invoice in its current state", httpx.ErrInvalidState)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get returns one invoice with lines and payments.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

var agingBounds = []struct {
	label   string
	maxDays int
}{
	{"current", 0},
	{"1-30", 30},
	{"31-60", 60},
	{"61-90", 90},
	{"91-120", 120},
	{"120+", 1 << 30},
}

// Aging groups outstanding balances of sent invoices by days overdue.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (*AgingReport, error) {
	outstanding, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}

	report := &AgingReport{AsOf: asOf, Total: decimal.Zero}
	buckets := make([]AgingBucket, len(agingBounds))
	for i, b := range agingBounds {
		buckets[i] = AgingBucket{Label: b.label, Amount: decimal.Zero}
	}

	for _, inv := range outstanding {
		balance := inv.Balance()
		if !balance.IsPositive() {
			continue
		}
		overdue := int(asOf.Sub(inv.DueDate).Hours() / 24)
		for i, b := range agingBounds {
			if overdue <= b.maxDays {
				buckets[i].Amount = buckets[i].Amount.Add(balance)
				buckets[i].Count++
				break
			}
		}
		report.Total = report.Total.Add(balance)
	}
	report.Buckets = buckets
	return report, nil
}

func copyLines(invoiceID int64, src []quotes.QuoteLine) []InvoiceLine {
	lines := make([]InvoiceLine, 0, len(src))
	for _, l := range src {
		lines = append(lines, InvoiceLine{
			InvoiceID:   invoiceID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Category:    l.Category,
			Amount:      l.Amount,
			LineOrder:   l.LineOrder,
		})
	}
	return lines
}

func applyTotals(inv *Invoice, totals pricing.Totals) {
	rounded := totals.Rounded()
	inv.Subtotal = rounded.Subtotal
	inv.DiscountAmount = rounded.DiscountAmount
	inv.VATAmount = rounded.VATAmount
	inv.TotalAmount = rounded.TotalAmount
	inv.NetPayable = rounded.NetPayable
	inv.ROTAmount = decimal.Zero
	inv.RUTAmount = decimal.Zero
	switch inv.DeductionRegime {
	case pricing.RegimeROT:
		inv.ROTAmount = rounded.DeductionAmount
	case pricing.RegimeRUT:
		inv.RUTAmount = rounded.DeductionAmount
	}
}
