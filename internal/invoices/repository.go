package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/FIXCOse/fixco-platform/internal/platform/db"
	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
)

// Repository defines data access for invoices and payments.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByDocNumber(ctx context.Context, docNumber string) (*Invoice, error)
	GetByQuoteID(ctx context.Context, quoteID int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	ListOutstanding(ctx context.Context) ([]Invoice, error)
	Create(ctx context.Context, invoice Invoice) (int64, error)
	InsertLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error
	MarkQuoteInvoiced(ctx context.Context, quoteID int64) error
	UpdateStatus(ctx context.Context, id int64, from, to InvoiceStatus, at time.Time) error
	AddPayment(ctx context.Context, payment Payment) (int64, error)
	SetAmountPaid(ctx context.Context, id int64, amount decimal.Decimal) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const invoiceColumns = `id, doc_number, quote_id, customer_id, status, invoice_date, due_date, currency,
	discount_percent, deduction_regime, household_size,
	subtotal, discount_amount, vat_amount, total_amount, rot_amount, rut_amount, net_payable, amount_paid,
	notes, created_by, sent_at, paid_at, voided_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return r.hydrate(ctx, row)
}

func (r *repository) GetByDocNumber(ctx context.Context, docNumber string) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE doc_number = $1`, docNumber)
	return r.hydrate(ctx, row)
}

func (r *repository) GetByQuoteID(ctx context.Context, quoteID int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE quote_id = $1`, quoteID)
	return r.hydrate(ctx, row)
}

func (r *repository) hydrate(ctx context.Context, row pgx.Row) (*Invoice, error) {
	invoice, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, invoice); err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	whereClause := "WHERE TRUE"
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		whereClause += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.QuoteID != nil {
		whereClause += fmt.Sprintf(" AND quote_id = $%d", argPos)
		args = append(args, *req.QuoteID)
		argPos++
	}
	if req.Status != nil {
		whereClause += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		whereClause += fmt.Sprintf(" AND invoice_date >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		whereClause += fmt.Sprintf(" AND invoice_date <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM invoices "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM invoices %s ORDER BY invoice_date DESC, id DESC LIMIT $%d OFFSET $%d",
		invoiceColumns, whereClause, argPos, argPos+1,
	)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *invoice)
	}
	return invoices, total, rows.Err()
}

func (r *repository) ListOutstanding(ctx context.Context) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE status = 'sent' ORDER BY due_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *invoice)
	}
	return invoices, rows.Err()
}

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (doc_number, quote_id, customer_id, status, invoice_date, due_date, currency,
			discount_percent, deduction_regime, household_size,
			subtotal, discount_amount, vat_amount, total_amount, rot_amount, rut_amount, net_payable, amount_paid,
			notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW(), NOW())
		RETURNING id
	`, inv.DocNumber, inv.QuoteID, inv.CustomerID, inv.Status, inv.InvoiceDate, inv.DueDate, inv.Currency,
		numeric(inv.DiscountPercent), inv.DeductionRegime, inv.HouseholdSize,
		numeric(inv.Subtotal), numeric(inv.DiscountAmount), numeric(inv.VATAmount), numeric(inv.TotalAmount),
		numeric(inv.ROTAmount), numeric(inv.RUTAmount), numeric(inv.NetPayable), numeric(inv.AmountPaid),
		textOrNil(inv.Notes), inv.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error {
	for _, line := range lines {
		_, err := r.db.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, description, quantity, unit_price, category, amount, line_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, invoiceID, line.Description, numeric(line.Quantity), numeric(line.UnitPrice),
			line.Category, numeric(line.Amount), line.LineOrder)
		if err != nil {
			return fmt.Errorf("insert invoice line: %w", err)
		}
	}
	return nil
}

// MarkQuoteInvoiced flips the source quote inside the same transaction that
// creates the invoice, so a quote can never be invoiced twice.
func (r *repository) MarkQuoteInvoiced(ctx context.Context, quoteID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotes SET status = 'invoiced', updated_at = NOW()
		WHERE id = $1 AND status = 'accepted'
	`, quoteID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quote is not in accepted state", httpx.ErrInvalidState)
	}
	return nil
}

// UpdateStatus moves an invoice between lifecycle states. The source status
// is part of the WHERE clause so two racing transitions cannot both win; the
// loser matches zero rows.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to InvoiceStatus, at time.Time) error {
	var column string
	switch to {
	case InvoiceStatusSent:
		column = "sent_at"
	case InvoiceStatusPaid:
		column = "paid_at"
	case InvoiceStatusVoid:
		column = "voided_at"
	default:
		column = ""
	}

	query := "UPDATE invoices SET status = $1, updated_at = NOW()"
	args := []interface{}{to}
	if column != "" {
		query += fmt.Sprintf(", %s = $2 WHERE id = $3 AND status = $4", column)
		args = append(args, at, id, from)
	} else {
		query += " WHERE id = $2 AND status = $3"
		args = append(args, id, from)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrInvalidState
	}
	return nil
}

func (r *repository) AddPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, paid_at, method, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id
	`, p.InvoiceID, numeric(p.Amount), p.PaidAt, p.Method, textOrNil(p.Reference)).Scan(&id)
	return id, err
}

func (r *repository) SetAmountPaid(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices SET amount_paid = $1, updated_at = NOW() WHERE id = $2`,
		numeric(amount), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	// IN-{YY}{MM}-{SEQ}
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "IN", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("IN-%s-%04d", date.Format("0601"), seq), nil
}

func (r *repository) loadLines(ctx context.Context, invoice *Invoice) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, category, amount, line_order
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_order, id
	`, invoice.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var line InvoiceLine
		var quantity, unitPrice, amount pgtype.Numeric
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.Description, &quantity,
			&unitPrice, &line.Category, &amount, &line.LineOrder); err != nil {
			return err
		}
		line.Quantity = fromNumeric(quantity)
		line.UnitPrice = fromNumeric(unitPrice)
		line.Amount = fromNumeric(amount)
		invoice.Lines = append(invoice.Lines, line)
	}
	return rows.Err()
}

func (r *repository) loadPayments(ctx context.Context, invoice *Invoice) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, amount, paid_at, method, reference, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY paid_at, id
	`, invoice.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p Payment
		var amount pgtype.Numeric
		var reference pgtype.Text
		if err := rows.Scan(&p.ID, &p.InvoiceID, &amount, &p.PaidAt, &p.Method, &reference, &p.CreatedAt); err != nil {
			return err
		}
		p.Amount = fromNumeric(amount)
		if reference.Valid {
			p.Reference = &reference.String
		}
		invoice.Payments = append(invoice.Payments, p)
	}
	return rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var discountPercent, subtotal, discountAmount, vatAmount, totalAmount, rotAmount, rutAmount, netPayable, amountPaid pgtype.Numeric
	var notes pgtype.Text
	var sentAt, paidAt, voidedAt pgtype.Timestamptz

	err := row.Scan(
		&inv.ID, &inv.DocNumber, &inv.QuoteID, &inv.CustomerID, &inv.Status, &inv.InvoiceDate, &inv.DueDate, &inv.Currency,
		&discountPercent, &inv.DeductionRegime, &inv.HouseholdSize,
		&subtotal, &discountAmount, &vatAmount, &totalAmount, &rotAmount, &rutAmount, &netPayable, &amountPaid,
		&notes, &inv.CreatedBy, &sentAt, &paidAt, &voidedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}

	inv.DiscountPercent = fromNumeric(discountPercent)
	inv.Subtotal = fromNumeric(subtotal)
	inv.DiscountAmount = fromNumeric(discountAmount)
	inv.VATAmount = fromNumeric(vatAmount)
	inv.TotalAmount = fromNumeric(totalAmount)
	inv.ROTAmount = fromNumeric(rotAmount)
	inv.RUTAmount = fromNumeric(rutAmount)
	inv.NetPayable = fromNumeric(netPayable)
	inv.AmountPaid = fromNumeric(amountPaid)
	if notes.Valid {
		inv.Notes = &notes.String
	}
	if sentAt.Valid {
		inv.SentAt = &sentAt.Time
	}
	if paidAt.Valid {
		inv.PaidAt = &paidAt.Time
	}
	if voidedAt.Valid {
		inv.VoidedAt = &voidedAt.Time
	}
	return &inv, nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}

// fromNumeric converts through the numeric's coefficient and exponent, never
// float64, so values round-trip exactly whatever the column precision.
func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func textOrNil(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}
