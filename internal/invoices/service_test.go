package invoices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/pricing"
	"github.com/FIXCOse/fixco-platform/internal/quotes"
	"github.com/FIXCOse/fixco-platform/internal/shared"
)

type mockRepository struct {
	invoices map[int64]*Invoice
	lines    map[int64][]InvoiceLine
	payments map[int64][]Payment
	quotes   *mockQuoteRepo
	nextID   int64
	seq      int64
	afterGet func()
}

func newMockRepository(qr *mockQuoteRepo) *mockRepository {
	return &mockRepository{
		invoices: make(map[int64]*Invoice),
		lines:    make(map[int64][]InvoiceLine),
		payments: make(map[int64][]Payment),
		quotes:   qr,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *inv
	copied.Lines = append([]InvoiceLine(nil), m.lines[id]...)
	copied.Payments = append([]Payment(nil), m.payments[id]...)
	if m.afterGet != nil {
		m.afterGet()
	}
	return &copied, nil
}

func (m *mockRepository) GetByDocNumber(ctx context.Context, docNumber string) (*Invoice, error) {
	for id, inv := range m.invoices {
		if inv.DocNumber == docNumber {
			return m.Get(ctx, id)
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *mockRepository) GetByQuoteID(ctx context.Context, quoteID int64) (*Invoice, error) {
	for id, inv := range m.invoices {
		if inv.QuoteID == quoteID {
			return m.Get(ctx, id)
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if req.Status != nil && inv.Status != *req.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *mockRepository) ListOutstanding(ctx context.Context) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.Status == InvoiceStatusSent {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(ctx context.Context, invoice Invoice) (int64, error) {
	m.nextID++
	invoice.ID = m.nextID
	invoice.CreatedAt = time.Now()
	invoice.UpdatedAt = time.Now()
	m.invoices[invoice.ID] = &invoice
	return invoice.ID, nil
}

func (m *mockRepository) InsertLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error {
	m.lines[invoiceID] = append(m.lines[invoiceID], lines...)
	return nil
}

func (m *mockRepository) MarkQuoteInvoiced(ctx context.Context, quoteID int64) error {
	q, ok := m.quotes.quotes[quoteID]
	if !ok {
		return httpx.ErrNotFound
	}
	if q.Status != quotes.QuoteStatusAccepted {
		return httpx.ErrInvalidState
	}
	q.Status = quotes.QuoteStatusInvoiced
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, from, to InvoiceStatus, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok || inv.Status != from {
		return httpx.ErrInvalidState
	}
	inv.Status = to
	switch to {
	case InvoiceStatusSent:
		inv.SentAt = &at
	case InvoiceStatusPaid:
		inv.PaidAt = &at
	case InvoiceStatusVoid:
		inv.VoidedAt = &at
	}
	return nil
}

func (m *mockRepository) AddPayment(ctx context.Context, p Payment) (int64, error) {
	p.ID = int64(len(m.payments[p.InvoiceID]) + 1)
	m.payments[p.InvoiceID] = append(m.payments[p.InvoiceID], p)
	return p.ID, nil
}

func (m *mockRepository) SetAmountPaid(ctx context.Context, id int64, amount decimal.Decimal) error {
	inv, ok := m.invoices[id]
	if !ok {
		return httpx.ErrNotFound
	}
	inv.AmountPaid = amount
	return nil
}

func (m *mockRepository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	m.seq++
	return fmt.Sprintf("IN-%s-%04d", date.Format("0601"), m.seq), nil
}

type mockQuoteRepo struct {
	quotes map[int64]*quotes.Quote
}

func (m *mockQuoteRepo) WithTx(ctx context.Context, fn func(context.Context, quotes.Repository) error) error {
	return fn(ctx, m)
}

func (m *mockQuoteRepo) Get(ctx context.Context, id int64) (*quotes.Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (m *mockQuoteRepo) GetByDocNumber(ctx context.Context, docNumber string) (*quotes.Quote, error) {
	return nil, httpx.ErrNotFound
}

func (m *mockQuoteRepo) List(ctx context.Context, req quotes.ListQuotesRequest) ([]quotes.Quote, int, error) {
	return nil, 0, nil
}

func (m *mockQuoteRepo) Create(ctx context.Context, quote quotes.Quote) (int64, error) {
	return 0, nil
}

func (m *mockQuoteRepo) UpdateDraft(ctx context.Context, quote quotes.Quote) error { return nil }

func (m *mockQuoteRepo) ReplaceLines(ctx context.Context, quoteID int64, lines []quotes.QuoteLine) error {
	return nil
}

func (m *mockQuoteRepo) UpdateStatus(ctx context.Context, id int64, from, to quotes.QuoteStatus, at time.Time) error {
	return nil
}

func (m *mockQuoteRepo) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	return "", nil
}

type mockGuard struct {
	seen map[string]bool
}

func (g *mockGuard) CheckAndInsert(ctx context.Context, key, module string) error {
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	g.seen[module+":"+key] = true
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func acceptedQuote() *quotes.Quote {
	now := time.Now()
	return &quotes.Quote{
		ID:              7,
		DocNumber:       "QU-2603-0001",
		CustomerID:      1,
		Status:          quotes.QuoteStatusAccepted,
		QuoteDate:       now.AddDate(0, 0, -10),
		ValidUntil:      now.AddDate(0, 0, 20),
		Currency:        "SEK",
		DeductionRegime: pricing.RegimeROT,
		AcceptedAt:      &now,
		Lines: []quotes.QuoteLine{
			{ID: 1, QuoteID: 7, Description: "Badrumsrenovering, arbete", Quantity: dec("40"), UnitPrice: dec("250"), Category: pricing.CategoryWork, Amount: dec("10000"), LineOrder: 1},
			{ID: 2, QuoteID: 7, Description: "Kakel och fog", Quantity: dec("1"), UnitPrice: dec("2000"), Category: pricing.CategoryMaterial, Amount: dec("2000"), LineOrder: 2},
		},
	}
}

func newTestService() (*Service, *mockRepository, *mockQuoteRepo) {
	qr := &mockQuoteRepo{quotes: map[int64]*quotes.Quote{7: acceptedQuote()}}
	repo := newMockRepository(qr)
	svc := NewService(repo, qr, &mockGuard{}, decimal.NewFromInt(25), pricing.DefaultRates())
	return svc, repo, qr
}

func TestCreateFromQuoteCopiesAndReprices(t *testing.T) {
	svc, repo, qr := newTestService()

	invoice, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "", 3)
	require.NoError(t, err)

	assert.Equal(t, InvoiceStatusDraft, invoice.Status)
	assert.Equal(t, int64(7), invoice.QuoteID)
	assert.Contains(t, invoice.DocNumber, "IN-")
	assert.True(t, invoice.Subtotal.Equal(dec("12000")), "subtotal %s", invoice.Subtotal)
	assert.True(t, invoice.ROTAmount.Equal(dec("3000")), "rot %s", invoice.ROTAmount)
	assert.True(t, invoice.NetPayable.Equal(dec("12000")), "net %s", invoice.NetPayable)
	assert.Len(t, repo.lines[invoice.ID], 2)

	// The source quote is consumed in the same transaction.
	assert.Equal(t, quotes.QuoteStatusInvoiced, qr.quotes[7].Status)

	// A second invoice from the same quote is rejected.
	_, err = svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "", 3)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestCreateFromQuoteDefaultsDueDate(t *testing.T) {
	svc, _, _ := newTestService()

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	invoice, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7, InvoiceDate: date}, "", 1)
	require.NoError(t, err)

	assert.Equal(t, date.AddDate(0, 0, 30), invoice.DueDate)
}

func TestCreateFromQuoteIdempotencyKey(t *testing.T) {
	svc, _, qr := newTestService()

	_, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "req-abc", 1)
	require.NoError(t, err)

	// Retry with the same key is refused before any state is touched.
	qr.quotes[7].Status = quotes.QuoteStatusAccepted
	_, err = svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "req-abc", 1)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateFromQuoteRejectsDraftQuote(t *testing.T) {
	svc, _, qr := newTestService()
	qr.quotes[7].Status = quotes.QuoteStatusDraft

	_, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "", 1)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestRegisterPaymentSettlesInvoice(t *testing.T) {
	svc, _, _ := newTestService()
	invoice, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "", 1)
	require.NoError(t, err)

	// Payments on a draft are rejected.
	_, err = svc.RegisterPayment(context.Background(), invoice.ID, RegisterPaymentRequest{Amount: dec("12000"), Method: "bankgiro"})
	assert.ErrorIs(t, err, httpx.ErrInvalidState)

	_, err = svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	partial, err := svc.RegisterPayment(context.Background(), invoice.ID, RegisterPaymentRequest{Amount: dec("5000"), Method: "swish"})
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusSent, partial.Status)
	assert.True(t, partial.Balance().Equal(dec("7000")), "balance %s", partial.Balance())

	settled, err := svc.RegisterPayment(context.Background(), invoice.ID, RegisterPaymentRequest{Amount: dec("7000"), Method: "bankgiro"})
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, settled.Status)
	assert.NotNil(t, settled.PaidAt)
	assert.Len(t, settled.Payments, 2)
}

func TestRegisterPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newTestService()
	invoice, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "", 1)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	_, err = svc.RegisterPayment(context.Background(), invoice.ID, RegisterPaymentRequest{Amount: dec("0"), Method: "swish"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestVoidRejectsPaidAgainst(t *testing.T) {
	svc, _, _ := newTestService()
	invoice, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "", 1)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)
	_, err = svc.RegisterPayment(context.Background(), invoice.ID, RegisterPaymentRequest{Amount: dec("100"), Method: "swish"})
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestVoidUnpaidInvoice(t *testing.T) {
	svc, _, _ := newTestService()
	invoice, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "", 1)
	require.NoError(t, err)

	voided, err := svc.Void(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusVoid, voided.Status)
	assert.NotNil(t, voided.VoidedAt)
}

func TestVoidLosesRaceWithSettlement(t *testing.T) {
	svc, repo, _ := newTestService()
	invoice, err := svc.CreateFromQuote(context.Background(), CreateFromQuoteRequest{QuoteID: 7}, "", 1)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	// A payment settles the invoice between the void's read and its write.
	// The status-guarded update must match zero rows instead of voiding a
	// paid invoice.
	repo.afterGet = func() {
		repo.afterGet = nil
		repo.invoices[invoice.ID].Status = InvoiceStatusPaid
	}

	_, err = svc.Void(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)

	settled, err := svc.Get(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, settled.Status)

	_, err = svc.Send(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestAgingBucketsByDaysOverdue(t *testing.T) {
	svc, repo, _ := newTestService()
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	seed := func(due time.Time, net string) {
		repo.nextID++
		repo.invoices[repo.nextID] = &Invoice{
			ID:         repo.nextID,
			Status:     InvoiceStatusSent,
			DueDate:    due,
			NetPayable: dec(net),
			AmountPaid: decimal.Zero,
		}
	}
	seed(asOf.AddDate(0, 0, 10), "1000")  // not yet due
	seed(asOf.AddDate(0, 0, -15), "2000") // 1-30
	seed(asOf.AddDate(0, 0, -45), "3000") // 31-60
	seed(asOf.AddDate(0, 0, -200), "500") // 120+

	report, err := svc.Aging(context.Background(), asOf)
	require.NoError(t, err)

	byLabel := map[string]AgingBucket{}
	for _, b := range report.Buckets {
		byLabel[b.Label] = b
	}
	assert.True(t, byLabel["current"].Amount.Equal(dec("1000")))
	assert.True(t, byLabel["1-30"].Amount.Equal(dec("2000")))
	assert.True(t, byLabel["31-60"].Amount.Equal(dec("3000")))
	assert.Equal(t, 0, byLabel["61-90"].Count)
	assert.True(t, byLabel["120+"].Amount.Equal(dec("500")))
	assert.True(t, report.Total.Equal(dec("6500")))
}
