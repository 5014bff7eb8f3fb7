// Package invoices turns accepted quotes into invoices and tracks payment
// through to settlement, including the ROT/RUT amounts reported to
// Skatteverket.
package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/FIXCOse/fixco-platform/internal/pricing"
)

// InvoiceStatus enumerates the invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

// Invoice is a billable document cut from an accepted quote. Totals are
// denormalized, pre-rounded display values recomputed from the copied lines
// at creation time.
type Invoice struct {
	ID              int64           `json:"id" db:"id"`
	DocNumber       string          `json:"doc_number" db:"doc_number"`
	QuoteID         int64           `json:"quote_id" db:"quote_id"`
	CustomerID      int64           `json:"customer_id" db:"customer_id"`
	Status          InvoiceStatus   `json:"status" db:"status"`
	InvoiceDate     time.Time       `json:"invoice_date" db:"invoice_date"`
	DueDate         time.Time       `json:"due_date" db:"due_date"`
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
	AmountPaid      decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	CreatedBy       int64           `json:"created_by" db:"created_by"`
	SentAt          *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	VoidedAt        *time.Time      `json:"voided_at,omitempty" db:"voided_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	Lines           []InvoiceLine   `json:"lines,omitempty" db:"-"`
	Payments        []Payment       `json:"payments,omitempty" db:"-"`
}

// InvoiceLine is one priced row, copied verbatim from the source quote.
type InvoiceLine struct {
	ID          int64            `json:"id" db:"id"`
	InvoiceID   int64            `json:"invoice_id" db:"invoice_id"`
	Description string           `json:"description" db:"description"`
	Quantity    decimal.Decimal  `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price" db:"unit_price"`
	Category    pricing.Category `json:"category" db:"category"`
	Amount      decimal.Decimal  `json:"amount" db:"amount"`
	LineOrder   int              `json:"line_order" db:"line_order"`
}

// Payment records money received against an invoice.
type Payment struct {
	ID        int64           `json:"id" db:"id"`
	InvoiceID int64           `json:"invoice_id" db:"invoice_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	PaidAt    time.Time       `json:"paid_at" db:"paid_at"`
	Method    string          `json:"method" db:"method"`
	Reference *string         `json:"reference,omitempty" db:"reference"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Balance returns what the customer still owes.
func (inv *Invoice) Balance() decimal.Decimal {
	return inv.NetPayable.Sub(inv.AmountPaid)
}

// DeductionAmount returns whichever regime column carries the deduction.
func (inv *Invoice) DeductionAmount() decimal.Decimal {
	switch inv.DeductionRegime {
	case pricing.RegimeROT:
		return inv.ROTAmount
	case pricing.RegimeRUT:
		return inv.RUTAmount
	default:
		return decimal.Zero
	}
}

// PricingItems converts stored lines back into calculator input.
func (inv *Invoice) PricingItems() []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		items = append(items, pricing.LineItem{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Category:    line.Category,
		})
	}
	return items
}

// PricingConfig rebuilds the calculator configuration this invoice was priced
// with, using the supplied VAT rate and deduction rates.
func (inv *Invoice) PricingConfig(vatRatePercent decimal.Decimal, rates pricing.DeductionRates) pricing.Config {
	return pricing.Config{
		VATRatePercent:  vatRatePercent,
		DiscountPercent: inv.DiscountPercent,
		Regime:          inv.DeductionRegime,
		HouseholdSize:   inv.HouseholdSize,
		Rates:           rates,
	}
}
