package quotes

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

// Repository defines data access for quotes.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quote, error)
	GetByDocNumber(ctx context.Context, docNumber string) (*Quote, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error)
	Create(ctx context.Context, quote Quote) (int64, error)
	UpdateDraft(ctx context.Context, quote Quote) error
	ReplaceLines(ctx context.Context, quoteID int64, lines []QuoteLine) error
	UpdateStatus(ctx context.Context, id int64, from, to QuoteStatus, at time.Time) error
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

const quoteColumns = `id, doc_number, customer_id, status, quote_date, valid_until, currency,
	discount_percent, deduction_regime, household_size,
	subtotal, discount_amount, vat_amount, total_amount, rot_amount, rut_amount, net_payable,
	notes, created_by, sent_at, accepted_at, declined_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	quote, err := scanQuote(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

func (r *repository) GetByDocNumber(ctx context.Context, docNumber string) (*Quote, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE doc_number = $1`, docNumber)
	quote, err := scanQuote(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	whereClause := "WHERE TRUE"
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		whereClause += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		whereClause += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		whereClause += fmt.Sprintf(" AND quote_date >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		whereClause += fmt.Sprintf(" AND quote_date <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotes "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM quotes %s ORDER BY quote_date DESC, id DESC LIMIT $%d OFFSET $%d",
		quoteColumns, whereClause, argPos, argPos+1,
	)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, *quote)
	}
	return quotes, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotes (doc_number, customer_id, status, quote_date, valid_until, currency,
			discount_percent, deduction_regime, household_size,
			subtotal, discount_amount, vat_amount, total_amount, rot_amount, rut_amount, net_payable,
			notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		RETURNING id
	`, q.DocNumber, q.CustomerID, q.Status, q.QuoteDate, q.ValidUntil, q.Currency,
		numeric(q.DiscountPercent), q.DeductionRegime, q.HouseholdSize,
		numeric(q.Subtotal), numeric(q.DiscountAmount), numeric(q.VATAmount), numeric(q.TotalAmount),
		numeric(q.ROTAmount), numeric(q.RUTAmount), numeric(q.NetPayable),
		textOrNil(q.Notes), q.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) UpdateDraft(ctx context.Context, q Quote) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotes SET quote_date = $1, valid_until = $2, discount_percent = $3,
			deduction_regime = $4, household_size = $5,
			subtotal = $6, discount_amount = $7, vat_amount = $8, total_amount = $9,
			rot_amount = $10, rut_amount = $11, net_payable = $12,
			notes = $13, updated_at = NOW()
		WHERE id = $14 AND status = 'draft'
	`, q.QuoteDate, q.ValidUntil, numeric(q.DiscountPercent),
		q.DeductionRegime, q.HouseholdSize,
		numeric(q.Subtotal), numeric(q.DiscountAmount), numeric(q.VATAmount), numeric(q.TotalAmount),
		numeric(q.ROTAmount), numeric(q.RUTAmount), numeric(q.NetPayable),
		textOrNil(q.Notes), q.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quote is no longer a draft", httpx.ErrInvalidState)
	}
	return nil
}

func (r *repository) ReplaceLines(ctx context.Context, quoteID int64, lines []QuoteLine) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quote_lines WHERE quote_id = $1`, quoteID); err != nil {
		return err
	}
	for _, line := range lines {
		_, err := r.db.Exec(ctx, `
			INSERT INTO quote_lines (quote_id, description, quantity, unit_price, category, amount, line_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, quoteID, line.Description, numeric(line.Quantity), numeric(line.UnitPrice),
			line.Category, numeric(line.Amount), line.LineOrder)
		if err != nil {
			return fmt.Errorf("insert quote line: %w", err)
		}
	}
	return nil
}

// UpdateStatus moves a quote between lifecycle states. The source status is
// part of the WHERE clause so two racing transitions cannot both win; the
// loser matches zero rows.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to QuoteStatus, at time.Time) error {
	var column string
	switch to {
	case QuoteStatusSent:
		column = "sent_at"
	case QuoteStatusAccepted:
		column = "accepted_at"
	case QuoteStatusDeclined:
		column = "declined_at"
	default:
		column = ""
	}

	query := "UPDATE quotes SET status = $1, updated_at = NOW()"
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

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	// QU-{YY}{MM}-{SEQ}
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "QU", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QU-%s-%04d", date.Format("0601"), seq), nil
}

func (r *repository) loadLines(ctx context.Context, quote *Quote) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, quote_id, description, quantity, unit_price, category, amount, line_order
		FROM quote_lines WHERE quote_id = $1 ORDER BY line_order, id
	`, quote.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var line QuoteLine
		var quantity, unitPrice, amount pgtype.Numeric
		if err := rows.Scan(&line.ID, &line.QuoteID, &line.Description, &quantity,
			&unitPrice, &line.Category, &amount, &line.LineOrder); err != nil {
			return err
		}
		line.Quantity = fromNumeric(quantity)
		line.UnitPrice = fromNumeric(unitPrice)
		line.Amount = fromNumeric(amount)
		quote.Lines = append(quote.Lines, line)
	}
	return rows.Err()
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	var discountPercent, subtotal, discountAmount, vatAmount, totalAmount, rotAmount, rutAmount, netPayable pgtype.Numeric
	var notes pgtype.Text
	var sentAt, acceptedAt, declinedAt pgtype.Timestamptz

	err := row.Scan(
		&q.ID, &q.DocNumber, &q.CustomerID, &q.Status, &q.QuoteDate, &q.ValidUntil, &q.Currency,
		&discountPercent, &q.DeductionRegime, &q.HouseholdSize,
		&subtotal, &discountAmount, &vatAmount, &totalAmount, &rotAmount, &rutAmount, &netPayable,
		&notes, &q.CreatedBy, &sentAt, &acceptedAt, &declinedAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}

	q.DiscountPercent = fromNumeric(discountPercent)
	q.Subtotal = fromNumeric(subtotal)
	q.DiscountAmount = fromNumeric(discountAmount)
	q.VATAmount = fromNumeric(vatAmount)
	q.TotalAmount = fromNumeric(totalAmount)
	q.ROTAmount = fromNumeric(rotAmount)
	q.RUTAmount = fromNumeric(rutAmount)
	q.NetPayable = fromNumeric(netPayable)
	if notes.Valid {
		q.Notes = &notes.String
	}
	if sentAt.Valid {
		q.SentAt = &sentAt.Time
	}
	if acceptedAt.Valid {
		q.AcceptedAt = &acceptedAt.Time
	}
	if declinedAt.Valid {
		q.DeclinedAt = &declinedAt.Time
	}
	return &q, nil
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
