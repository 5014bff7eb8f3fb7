package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/pricing"
)

// Service handles quote business logic. VAT rate and deduction rates are
// injected at construction so every document in the system is priced by the
// same configured figures.
type Service struct {
	repo         Repository
	customerRepo customers.Repository
	vatRate      decimal.Decimal
	rates        pricing.DeductionRates
}

// NewService builds a Service instance.
func NewService(repo Repository, customerRepo customers.Repository, vatRatePercent decimal.Decimal, rates pricing.DeductionRates) *Service {
	return &Service{
		repo:         repo,
		customerRepo: customerRepo,
		vatRate:      vatRatePercent,
		rates:        rates,
	}
}

// Preview runs the calculator without touching storage. Missing quantities
// and prices are treated as zero so a half-edited form still gets totals.
func (s *Service) Preview(req PreviewRequest) (pricing.Totals, error) {
	items := make([]pricing.LineItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		items = append(items, line.Item())
	}
	cfg := pricing.Config{
		VATRatePercent:  s.vatRate,
		DiscountPercent: req.DiscountPercent,
		Regime:          req.DeductionRegime,
		HouseholdSize:   req.HouseholdSize,
		Rates:           s.rates,
	}
	return pricing.Calculate(items, cfg)
}

// Create opens a new draft quote with computed totals.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest, createdBy int64) (*Quote, error) {
	if req.ValidUntil.Before(req.QuoteDate) {
		return nil, fmt.Errorf("%w: valid_until must be after quote_date", httpx.ErrValidation)
	}

	if _, err := s.customerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	items, err := persistableItems(req.Lines)
	if err != nil {
		return nil, err
	}

	totals, err := pricing.Calculate(items, pricing.Config{
		VATRatePercent:  s.vatRate,
		DiscountPercent: req.DiscountPercent,
		Regime:          req.DeductionRegime,
		HouseholdSize:   req.HouseholdSize,
		Rates:           s.rates,
	})
	if err != nil {
		return nil, err
	}

	docNumber, err := s.repo.GenerateNumber(ctx, req.QuoteDate)
	if err != nil {
		return nil, fmt.Errorf("generate doc number: %w", err)
	}

	quote := Quote{
		DocNumber:       docNumber,
		CustomerID:      req.CustomerID,
		Status:          QuoteStatusDraft,
		QuoteDate:       req.QuoteDate,
		ValidUntil:      req.ValidUntil,
		Currency:        "SEK",
		DiscountPercent: req.DiscountPercent,
		DeductionRegime: req.DeductionRegime,
		HouseholdSize:   req.HouseholdSize,
		Notes:           req.Notes,
		CreatedBy:       createdBy,
	}
	applyTotals(&quote, totals)

	var quoteID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, quote)
		if err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		quoteID = id
		return repo.ReplaceLines(ctx, id, buildLines(id, req.Lines, items))
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, quoteID)
}

// Update mutates a draft quote and recomputes its totals.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuoteRequest) (*Quote, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if existing.Status != QuoteStatusDraft {
		return nil, fmt.Errorf("%w: only draft quotes can be edited", httpx.ErrInvalidState)
	}

	if req.QuoteDate != nil {
		existing.QuoteDate = *req.QuoteDate
	}
	if req.ValidUntil != nil {
		existing.ValidUntil = *req.ValidUntil
	}
	if existing.ValidUntil.Before(existing.QuoteDate) {
		return nil, fmt.Errorf("%w: valid_until must be after quote_date", httpx.ErrValidation)
	}
	if req.DiscountPercent != nil {
		existing.DiscountPercent = *req.DiscountPercent
	}
	if req.DeductionRegime != nil {
		existing.DeductionRegime = *req.DeductionRegime
	}
	if req.HouseholdSize != nil {
		existing.HouseholdSize = *req.HouseholdSize
	}
	if req.Notes != nil {
		existing.Notes = req.Notes
	}

	var items []pricing.LineItem
	var newLines []QuoteLine
	if req.Lines != nil {
		items, err = persistableItems(*req.Lines)
		if err != nil {
			return nil, err
		}
		newLines = buildLines(id, *req.Lines, items)
	} else {
		items = existing.PricingItems()
	}

	// Regime or discount changes reprice the document even when the lines
	// themselves are untouched.
	totals, err := pricing.Calculate(items, existing.PricingConfig(s.vatRate, s.rates))
	if err != nil {
		return nil, err
	}
	applyTotals(existing, totals)

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateDraft(ctx, *existing); err != nil {
			return fmt.Errorf("update quote: %w", err)
		}
		if newLines != nil {
			return repo.ReplaceLines(ctx, id, newLines)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, id)
}

// Send transitions a draft to sent, freezing the line items.
func (s *Service) Send(ctx context.Context, id int64) (*Quote, error) {
	return s.transition(ctx, id, QuoteStatusDraft, QuoteStatusSent)
}

// Accept records the customer's acceptance of a sent quote.
func (s *Service) Accept(ctx context.Context, id int64) (*Quote, error) {
	return s.transition(ctx, id, QuoteStatusSent, QuoteStatusAccepted)
}

// Decline records the customer's rejection of a sent quote.
func (s *Service) Decline(ctx context.Context, id int64) (*Quote, error) {
	return s.transition(ctx, id, QuoteStatusSent, QuoteStatusDeclined)
}

// Get returns one quote with lines.
func (s *Service) Get(ctx context.Context, id int64) (*Quote, error) {
	return s.repo.Get(ctx, id)
}

// List returns quotes matching the filter.
func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// transition runs the status-guarded update and lets the repository decide
// the race. A guard rejection on an id that does exist is a conflict; on an
// unknown id it is a plain not found.
func (s *Service) transition(ctx context.Context, id int64, from, to QuoteStatus) (*Quote, error) {
	if err := s.repo.UpdateStatus(ctx, id, from, to, time.Now()); err != nil {
		if !errors.Is(err, httpx.ErrInvalidState) {
			return nil, fmt.Errorf("update status: %w", err)
		}
		existing, getErr := s.repo.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: cannot move quote from %s to %s", httpx.ErrInvalidState, existing.Status, to)
	}
	return s.repo.Get(ctx, id)
}

// persistableItems rejects half-filled rows: a missing quantity or price is
// acceptable in a live preview but must never be stored as zero.
func persistableItems(lines []QuoteLineRequest) ([]pricing.LineItem, error) {
	items := make([]pricing.LineItem, 0, len(lines))
	for i, line := range lines {
		if line.Quantity == nil {
			return nil, &pricing.ValidationError{Field: "quantity", Index: i, Message: "is required"}
		}
		if line.UnitPrice == nil {
			return nil, &pricing.ValidationError{Field: "unit_price", Index: i, Message: "is required"}
		}
		items = append(items, line.Item())
	}
	return items, nil
}

func buildLines(quoteID int64, reqs []QuoteLineRequest, items []pricing.LineItem) []QuoteLine {
	lines := make([]QuoteLine, 0, len(reqs))
	for i, req := range reqs {
		line := QuoteLine{
			QuoteID:     quoteID,
			Description: req.Description,
			Quantity:    items[i].Quantity,
			UnitPrice:   items[i].UnitPrice,
			Category:    req.Category,
			Amount:      items[i].Amount(),
			LineOrder:   req.LineOrder,
		}
		if line.LineOrder == 0 {
			line.LineOrder = i + 1
		}
		lines = append(lines, line)
	}
	return lines
}

func applyTotals(q *Quote, totals pricing.Totals) {
	rounded := totals.Rounded()
	q.Subtotal = rounded.Subtotal
	q.DiscountAmount = rounded.DiscountAmount
	q.VATAmount = rounded.VATAmount
	q.TotalAmount = rounded.TotalAmount
	q.NetPayable = rounded.NetPayable
	q.ROTAmount = decimal.Zero
	q.RUTAmount = decimal.Zero
	switch q.DeductionRegime {
	case pricing.RegimeROT:
		q.ROTAmount = rounded.DeductionAmount
	case pricing.RegimeRUT:
		q.RUTAmount = rounded.DeductionAmount
	}
}
