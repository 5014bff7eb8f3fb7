package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/invoices"
)

type invoiceRepoStub struct {
	invoices.Repository
	outstanding []invoices.Invoice
	err         error
}

func (s *invoiceRepoStub) ListOutstanding(ctx context.Context) ([]invoices.Invoice, error) {
	return s.outstanding, s.err
}

type customerRepoStub struct {
	customers.Repository
	byID map[int64]*customers.Customer
}

func (s *customerRepoStub) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, errors.New("customer not found")
	}
	return c, nil
}

type reminderMailerStub struct {
	sent []string
	err  error
}

func (m *reminderMailerStub) EnqueueOverdueReminder(invoice *invoices.Invoice, recipient string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, invoice.DocNumber)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestOverdueScanQueuesReminders(t *testing.T) {
	now := time.Now()
	repo := &invoiceRepoStub{outstanding: []invoices.Invoice{
		{
			DocNumber:  "IN-2603-0001",
			CustomerID: 1,
			DueDate:    now.AddDate(0, 0, -14),
			NetPayable: decimal.NewFromInt(12000),
		},
		{
			// Not yet due.
			DocNumber:  "IN-2603-0002",
			CustomerID: 1,
			DueDate:    now.AddDate(0, 0, 14),
			NetPayable: decimal.NewFromInt(5000),
		},
		{
			// Past due but settled in full.
			DocNumber:  "IN-2603-0003",
			CustomerID: 1,
			DueDate:    now.AddDate(0, 0, -7),
			NetPayable: decimal.NewFromInt(8000),
			AmountPaid: decimal.NewFromInt(8000),
		},
	}}
	custs := &customerRepoStub{byID: map[int64]*customers.Customer{
		1: {ID: 1, Name: "Karin Svensson", Email: strPtr("karin@example.se")},
	}}
	mailer := &reminderMailerStub{}

	handler := NewOverdueScanHandler(OverdueScanConfig{
		InvoiceRepo:  repo,
		CustomerRepo: custs,
		Mailer:       mailer,
		Logger:       testLogger(),
	})

	require.NoError(t, handler(context.Background(), NewOverdueScanTask()))
	require.Equal(t, []string{"IN-2603-0001"}, mailer.sent)
}

func TestOverdueScanSkipsCustomersWithoutEmail(t *testing.T) {
	now := time.Now()
	repo := &invoiceRepoStub{outstanding: []invoices.Invoice{
		{DocNumber: "IN-2603-0004", CustomerID: 2, DueDate: now.AddDate(0, 0, -30), NetPayable: decimal.NewFromInt(3000)},
	}}
	custs := &customerRepoStub{byID: map[int64]*customers.Customer{
		2: {ID: 2, Name: "Lars Öberg"},
	}}
	mailer := &reminderMailerStub{}

	handler := NewOverdueScanHandler(OverdueScanConfig{
		InvoiceRepo:  repo,
		CustomerRepo: custs,
		Mailer:       mailer,
		Logger:       testLogger(),
	})

	require.NoError(t, handler(context.Background(), NewOverdueScanTask()))
	require.Empty(t, mailer.sent)
}

func TestOverdueScanPropagatesListError(t *testing.T) {
	repo := &invoiceRepoStub{err: errors.New("connection refused")}

	handler := NewOverdueScanHandler(OverdueScanConfig{
		InvoiceRepo: repo,
		Logger:      testLogger(),
	})

	require.Error(t, handler(context.Background(), NewOverdueScanTask()))
}
