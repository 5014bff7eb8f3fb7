package quotes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/pricing"
)

type mockRepository struct {
	quotes  map[int64]*Quote
	lines   map[int64][]QuoteLine
	nextID  int64
	seq     int64
	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotes: make(map[int64]*Quote),
		lines:  make(map[int64][]QuoteLine),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *q
	copied.Lines = append([]QuoteLine(nil), m.lines[id]...)
	return &copied, nil
}

func (m *mockRepository) GetByDocNumber(ctx context.Context, docNumber string) (*Quote, error) {
	for id, q := range m.quotes {
		if q.DocNumber == docNumber {
			return m.Get(ctx, id)
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	var out []Quote
	for _, q := range m.quotes {
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		if req.CustomerID != nil && q.CustomerID != *req.CustomerID {
			continue
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (m *mockRepository) Create(ctx context.Context, quote Quote) (int64, error) {
	m.nextID++
	quote.ID = m.nextID
	quote.CreatedAt = time.Now()
	quote.UpdatedAt = time.Now()
	m.quotes[quote.ID] = &quote
	return quote.ID, nil
}

func (m *mockRepository) UpdateDraft(ctx context.Context, quote Quote) error {
	existing, ok := m.quotes[quote.ID]
	if !ok {
		return httpx.ErrNotFound
	}
	if existing.Status != QuoteStatusDraft {
		return httpx.ErrInvalidState
	}
	quote.Status = existing.Status
	m.quotes[quote.ID] = &quote
	return nil
}

func (m *mockRepository) ReplaceLines(ctx context.Context, quoteID int64, lines []QuoteLine) error {
	m.lines[quoteID] = lines
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, from, to QuoteStatus, at time.Time) error {
	q, ok := m.quotes[id]
	if !ok || q.Status != from {
		return httpx.ErrInvalidState
	}
	q.Status = to
	switch to {
	case QuoteStatusSent:
		q.SentAt = &at
	case QuoteStatusAccepted:
		q.AcceptedAt = &at
	case QuoteStatusDeclined:
		q.DeclinedAt = &at
	}
	return nil
}

func (m *mockRepository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	m.seq++
	return fmt.Sprintf("QU-%s-%04d", date.Format("0601"), m.seq), nil
}

type mockCustomerRepo struct {
	customers map[int64]*customers.Customer
}

func (m *mockCustomerRepo) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) List(ctx context.Context, req customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	return nil, 0, nil
}

func (m *mockCustomerRepo) Create(ctx context.Context, c customers.Customer) (int64, error) {
	return 0, nil
}

func (m *mockCustomerRepo) Update(ctx context.Context, c customers.Customer) error {
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	customerRepo := &mockCustomerRepo{customers: map[int64]*customers.Customer{
		1: {ID: 1, Name: "Anna Andersson"},
	}}
	return NewService(repo, customerRepo, decimal.NewFromInt(25), pricing.DefaultRates()), repo
}

func rotCreateRequest() CreateQuoteRequest {
	return CreateQuoteRequest{
		CustomerID:      1,
		QuoteDate:       time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ValidUntil:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DeductionRegime: pricing.RegimeROT,
		Lines: []QuoteLineRequest{
			{Description: "Badrumsrenovering, arbete", Quantity: decPtr("40"), UnitPrice: decPtr("250"), Category: pricing.CategoryWork},
			{Description: "Kakel och fog", Quantity: decPtr("1"), UnitPrice: decPtr("2000"), Category: pricing.CategoryMaterial},
		},
	}
}

func TestCreateComputesROTTotals(t *testing.T) {
	svc, repo := newTestService()

	quote, err := svc.Create(context.Background(), rotCreateRequest(), 9)
	require.NoError(t, err)

	// 10 000 labor + 2 000 material, 25% VAT, ROT 30% of labor.
	assert.True(t, quote.Subtotal.Equal(dec("12000")), "subtotal %s", quote.Subtotal)
	assert.True(t, quote.VATAmount.Equal(dec("3000")), "vat %s", quote.VATAmount)
	assert.True(t, quote.TotalAmount.Equal(dec("15000")), "total %s", quote.TotalAmount)
	assert.True(t, quote.ROTAmount.Equal(dec("3000")), "rot %s", quote.ROTAmount)
	assert.True(t, quote.RUTAmount.IsZero())
	assert.True(t, quote.NetPayable.Equal(dec("12000")), "net %s", quote.NetPayable)

	assert.Equal(t, QuoteStatusDraft, quote.Status)
	assert.Equal(t, "SEK", quote.Currency)
	assert.Equal(t, int64(9), quote.CreatedBy)
	assert.Len(t, repo.lines[quote.ID], 2)
	assert.Contains(t, quote.DocNumber, "QU-")
}

func TestCreateRejectsUnknownCustomer(t *testing.T) {
	svc, _ := newTestService()
	req := rotCreateRequest()
	req.CustomerID = 999

	_, err := svc.Create(context.Background(), req, 1)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateRejectsHalfFilledLine(t *testing.T) {
	svc, _ := newTestService()
	req := rotCreateRequest()
	req.Lines[0].UnitPrice = nil

	_, err := svc.Create(context.Background(), req, 1)

	var verr *pricing.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unit_price", verr.Field)
	assert.Equal(t, 0, verr.Index)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc, _ := newTestService()
	req := rotCreateRequest()
	req.Lines[0].UnitPrice = decPtr("-5")

	_, err := svc.Create(context.Background(), req, 1)

	var verr *pricing.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unit_price", verr.Field)
}

func TestUpdateRepricesWhenRegimeChanges(t *testing.T) {
	svc, _ := newTestService()
	quote, err := svc.Create(context.Background(), rotCreateRequest(), 1)
	require.NoError(t, err)

	regime := pricing.RegimeNone
	updated, err := svc.Update(context.Background(), quote.ID, UpdateQuoteRequest{DeductionRegime: &regime})
	require.NoError(t, err)

	assert.True(t, updated.ROTAmount.IsZero())
	assert.True(t, updated.NetPayable.Equal(updated.TotalAmount))
}

func TestUpdateRejectsNonDraft(t *testing.T) {
	svc, _ := newTestService()
	quote, err := svc.Create(context.Background(), rotCreateRequest(), 1)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), quote.ID)
	require.NoError(t, err)

	notes := "late edit"
	_, err = svc.Update(context.Background(), quote.ID, UpdateQuoteRequest{Notes: &notes})
	assert.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestLifecycleTransitions(t *testing.T) {
	svc, _ := newTestService()
	quote, err := svc.Create(context.Background(), rotCreateRequest(), 1)
	require.NoError(t, err)

	// Accept before send is rejected.
	_, err = svc.Accept(context.Background(), quote.ID)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)

	sent, err := svc.Send(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusSent, sent.Status)
	assert.NotNil(t, sent.SentAt)

	// A second send is rejected.
	_, err = svc.Send(context.Background(), quote.ID)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)

	accepted, err := svc.Accept(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.AcceptedAt)

	// Declining an accepted quote is rejected.
	_, err = svc.Decline(context.Background(), quote.ID)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)

	// Transitions on unknown ids stay a plain not found.
	_, err = svc.Accept(context.Background(), 9999)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestAcceptLosesRaceWithDecline(t *testing.T) {
	svc, _ := newTestService()
	quote, err := svc.Create(context.Background(), rotCreateRequest(), 1)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), quote.ID)
	require.NoError(t, err)

	// The decline commits first; the racing accept's guarded update matches
	// zero rows and must not overwrite the declined state.
	_, err = svc.Decline(context.Background(), quote.ID)
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), quote.ID)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)

	declined, err := svc.Get(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusDeclined, declined.Status)
}

func TestPreviewToleratesPartialInput(t *testing.T) {
	svc, _ := newTestService()

	totals, err := svc.Preview(PreviewRequest{
		DeductionRegime: pricing.RegimeRUT,
		Lines: []QuoteLineRequest{
			{Description: "Flyttstädning", Quantity: decPtr("10"), Category: pricing.CategoryWork},
			{Description: "Fönsterputs", Quantity: decPtr("2"), UnitPrice: decPtr("400"), Category: pricing.CategoryWork},
		},
	})
	require.NoError(t, err)

	// The half-filled first row contributes zero; nothing throws.
	assert.True(t, totals.Subtotal.Equal(dec("800")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.DeductionAmount.Equal(dec("400")), "deduction %s", totals.DeductionAmount)
}

func TestPreviewRejectsNegativeInput(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Preview(PreviewRequest{
		DeductionRegime: pricing.RegimeNone,
		Lines: []QuoteLineRequest{
			{Description: "x", Quantity: decPtr("-1"), UnitPrice: decPtr("100"), Category: pricing.CategoryWork},
		},
	})

	var verr *pricing.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)
}
