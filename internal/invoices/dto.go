package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateFromQuoteRequest cuts an invoice from an accepted quote. When DueDate
// is absent it is derived from PaymentTermsDays (default 30).
type CreateFromQuoteRequest struct {
	QuoteID          int64      `json:"quote_id" validate:"required,gt=0"`
	InvoiceDate      time.Time  `json:"invoice_date"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	PaymentTermsDays int        `json:"payment_terms_days" validate:"gte=0,lte=365"`
	Notes            *string    `json:"notes,omitempty"`
}

// RegisterPaymentRequest records money received against a sent invoice.
type RegisterPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Method    string          `json:"method" validate:"required,oneof=bankgiro swish card manual"`
	Reference *string         `json:"reference,omitempty"`
}

// ListInvoicesRequest filters the invoice listing.
type ListInvoicesRequest struct {
	Status     *InvoiceStatus `json:"status,omitempty"`
	CustomerID *int64         `json:"customer_id,omitempty"`
	QuoteID    *int64         `json:"quote_id,omitempty"`
	DateFrom   *time.Time     `json:"date_from,omitempty"`
	DateTo     *time.Time     `json:"date_to,omitempty"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// AgingBucket is one column of the receivables aging report.
type AgingBucket struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// AgingReport groups outstanding invoice balances by days overdue.
type AgingReport struct {
	AsOf    time.Time       `json:"as_of"`
	Buckets []AgingBucket   `json:"buckets"`
	Total   decimal.Decimal `json:"total"`
}
