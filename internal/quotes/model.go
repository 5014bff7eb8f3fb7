// Package quotes manages quote documents: drafting, pricing, the send/accept
// lifecycle and handoff to invoicing.
package quotes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/FIXCOse/fixco-platform/internal/pricing"
)

// QuoteStatus enumerates the quote lifecycle. Lines are only mutable while
// the quote is a draft; every later state freezes them.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
	QuoteStatusInvoiced QuoteStatus = "invoiced"
)

// Quote is a priced offer to a customer. Totals are denormalized, pre-rounded
// display values; the pricing package is the single source of the arithmetic.
type Quote struct {
	ID              int64           `json:"id" db:"id"`
	DocNumber       string          `json:"doc_number" db:"doc_number"`
	CustomerID      int64           `json:"customer_id" db:"customer_id"`
	Status          QuoteStatus     `json:"status" db:"status"`
	QuoteDate       time.Time       `json:"quote_date" db:"quote_date"`
	ValidUntil      time.Time       `json:"valid_until" db:"valid_until"`
	Currency        string          `json:"currency" db:"currency"`
	DiscountPercent decimal.Decimal `json:"discount_percent" db:"discount_percent"`
	DeductionRegime pricing.Regime  `json:"deduction_regime" db:"deduction_regime"`
	HouseholdSize   int             `json:"household_size" db:"household_size"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	VATAmount       decimal.Decimal `json:"vat_amount" db:"vat_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	ROTAmount       decimal.Decimal `json:"rot_amount" db:"rot_amount"`
	RUTAmount       decimal.Decimal `json:"rut_amount" db:"rut_amount"`
	NetPayable      decimal.Decimal `json:"net_payable" db:"net_payable"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	CreatedBy       int64           `json:"created_by" db:"created_by"`
	SentAt          *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
	AcceptedAt      *time.Time      `json:"accepted_at,omitempty" db:"accepted_at"`
	DeclinedAt      *time.Time      `json:"declined_at,omitempty" db:"declined_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	Lines           []QuoteLine     `json:"lines,omitempty" db:"-"`
}

// QuoteLine is one priced row on a quote.
type QuoteLine struct {
	ID          int64            `json:"id" db:"id"`
	QuoteID     int64            `json:"quote_id" db:"quote_id"`
	Description string           `json:"description" db:"description"`
	Quantity    decimal.Decimal  `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price" db:"unit_price"`
	Category    pricing.Category `json:"category" db:"category"`
	Amount      decimal.Decimal  `json:"amount" db:"amount"`
	LineOrder   int              `json:"line_order" db:"line_order"`
}

// PricingItems converts stored lines back into calculator input.
func (q *Quote) PricingItems() []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(q.Lines))
	for _, line := range q.Lines {
		items = append(items, pricing.LineItem{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Category:    line.Category,
		})
	}
	return items
}

// PricingConfig rebuilds the calculator configuration this quote was priced
// with, using the supplied VAT rate and deduction rates.
func (q *Quote) PricingConfig(vatRatePercent decimal.Decimal, rates pricing.DeductionRates) pricing.Config {
	return pricing.Config{
		VATRatePercent:  vatRatePercent,
		DiscountPercent: q.DiscountPercent,
		Regime:          q.DeductionRegime,
		HouseholdSize:   q.HouseholdSize,
		Rates:           rates,
	}
}

// DeductionAmount returns whichever regime column carries the deduction.
func (q *Quote) DeductionAmount() decimal.Decimal {
	switch q.DeductionRegime {
	case pricing.RegimeROT:
		return q.ROTAmount
	case pricing.RegimeRUT:
		return q.RUTAmount
	default:
		return decimal.Zero
	}
}
