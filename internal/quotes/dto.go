package quotes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/FIXCOse/fixco-platform/internal/pricing"
)

// QuoteLineRequest is one line in a create/update payload. Quantity and
// UnitPrice are pointers so the preview endpoint can accept half-filled rows;
// nil means zero for preview and is rejected on persist.
type QuoteLineRequest struct {
	Description string           `json:"description" validate:"required,max=500"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Category    pricing.Category `json:"category" validate:"required,oneof=work material"`
	LineOrder   int              `json:"line_order" validate:"gte=0"`
}

// Item converts the request row into calculator input, mapping missing
// numbers to zero.
func (r QuoteLineRequest) Item() pricing.LineItem {
	item := pricing.LineItem{Description: r.Description, Category: r.Category}
	if r.Quantity != nil {
		item.Quantity = *r.Quantity
	}
	if r.UnitPrice != nil {
		item.UnitPrice = *r.UnitPrice
	}
	return item
}

// CreateQuoteRequest opens a new draft quote.
type CreateQuoteRequest struct {
	CustomerID      int64              `json:"customer_id" validate:"required,gt=0"`
	QuoteDate       time.Time          `json:"quote_date" validate:"required"`
	ValidUntil      time.Time          `json:"valid_until" validate:"required"`
	DiscountPercent decimal.Decimal    `json:"discount_percent"`
	DeductionRegime pricing.Regime     `json:"deduction_regime" validate:"required,oneof=none rot rut"`
	HouseholdSize   int                `json:"household_size" validate:"gte=0"`
	Notes           *string            `json:"notes,omitempty"`
	Lines           []QuoteLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateQuoteRequest mutates a draft; nil fields are untouched. Replacing the
// lines always triggers a full recalculation.
type UpdateQuoteRequest struct {
	QuoteDate       *time.Time          `json:"quote_date,omitempty"`
	ValidUntil      *time.Time          `json:"valid_until,omitempty"`
	DiscountPercent *decimal.Decimal    `json:"discount_percent,omitempty"`
	DeductionRegime *pricing.Regime     `json:"deduction_regime,omitempty" validate:"omitempty,oneof=none rot rut"`
	HouseholdSize   *int                `json:"household_size,omitempty" validate:"omitempty,gte=0"`
	Notes           *string             `json:"notes,omitempty"`
	Lines           *[]QuoteLineRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

// ListQuotesRequest filters the quote listing.
type ListQuotesRequest struct {
	CustomerID *int64       `json:"customer_id,omitempty"`
	Status     *QuoteStatus `json:"status,omitempty"`
	DateFrom   *time.Time   `json:"date_from,omitempty"`
	DateTo     *time.Time   `json:"date_to,omitempty"`
	Limit      int          `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int          `json:"offset" validate:"gte=0"`
}

// PreviewRequest is the stateless calculator payload used by the quote form
// and the public RUT marketing calculator. It never touches storage.
type PreviewRequest struct {
	DiscountPercent decimal.Decimal    `json:"discount_percent"`
	DeductionRegime pricing.Regime     `json:"deduction_regime" validate:"required,oneof=none rot rut"`
	HouseholdSize   int                `json:"household_size" validate:"gte=0"`
	Lines           []QuoteLineRequest `json:"lines" validate:"dive"`
}

// PreviewResponse mirrors pricing.Totals with display rounding applied.
type PreviewResponse struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	LaborBase       decimal.Decimal `json:"labor_base"`
	DeductionAmount decimal.Decimal `json:"deduction_amount"`
	NetPayable      decimal.Decimal `json:"net_payable"`
}

// NewPreviewResponse converts rounded totals into the transport shape.
func NewPreviewResponse(t pricing.Totals) PreviewResponse {
	rounded := t.Rounded()
	return PreviewResponse{
		Subtotal:        rounded.Subtotal,
		DiscountAmount:  rounded.DiscountAmount,
		VATAmount:       rounded.VATAmount,
		TotalAmount:     rounded.TotalAmount,
		LaborBase:       rounded.LaborBase,
		DeductionAmount: rounded.DeductionAmount,
		NetPayable:      rounded.NetPayable,
	}
}
