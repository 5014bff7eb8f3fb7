package workorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
)

// Repository defines data access for work orders. Every transition is a
// single guarded UPDATE; the status predicate in the WHERE clause makes
// concurrent claims race-safe without explicit locking.
type Repository interface {
	Get(ctx context.Context, id int64) (*WorkOrder, error)
	List(ctx context.Context, req ListWorkOrdersRequest) ([]WorkOrder, int, error)
	Create(ctx context.Context, order WorkOrder) (int64, error)
	Claim(ctx context.Context, id, workerID int64, at time.Time) error
	Offer(ctx context.Context, id, workerID int64, at time.Time) error
	AcceptOffer(ctx context.Context, id, workerID int64, at time.Time) error
	DeclineOffer(ctx context.Context, id, workerID int64) error
	Start(ctx context.Context, id, workerID int64, at time.Time) error
	Complete(ctx context.Context, id, workerID int64, at time.Time) error
	Cancel(ctx context.Context, id int64, at time.Time) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository builds the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const orderColumns = `id, customer_id, quote_id, title, description, address, mode, status,
	assigned_to, offered_to, scheduled_date, created_by,
	offered_at, assigned_at, started_at, completed_at, cancelled_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*WorkOrder, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *repository) List(ctx context.Context, req ListWorkOrdersRequest) ([]WorkOrder, int, error) {
	whereClause := "WHERE TRUE"
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		whereClause += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}
	if req.Mode != nil {
		whereClause += fmt.Sprintf(" AND mode = $%d", argPos)
		args = append(args, *req.Mode)
		argPos++
	}
	if req.CustomerID != nil {
		whereClause += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.AssignedTo != nil {
		whereClause += fmt.Sprintf(" AND assigned_to = $%d", argPos)
		args = append(args, *req.AssignedTo)
		argPos++
	}
	if req.DateFrom != nil {
		whereClause += fmt.Sprintf(" AND scheduled_date >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		whereClause += fmt.Sprintf(" AND scheduled_date <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM work_orders "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM work_orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		orderColumns, whereClause, argPos, argPos+1,
	)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []WorkOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *order)
	}
	return orders, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o WorkOrder) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO work_orders (customer_id, quote_id, title, description, address, mode, status,
			assigned_to, scheduled_date, created_by, assigned_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id
	`, o.CustomerID, o.QuoteID, o.Title, textOrNil(o.Description), textOrNil(o.Address),
		o.Mode, o.Status, o.AssignedTo, o.ScheduledDate, o.CreatedBy, o.AssignedAt).Scan(&id)
	return id, err
}

func (r *repository) Claim(ctx context.Context, id, workerID int64, at time.Time) error {
	return r.guarded(ctx, `
		UPDATE work_orders SET status = 'assigned', assigned_to = $2, assigned_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'open' AND mode = 'pool'
	`, id, workerID, at)
}

func (r *repository) Offer(ctx context.Context, id, workerID int64, at time.Time) error {
	return r.guarded(ctx, `
		UPDATE work_orders SET status = 'offered', offered_to = $2, offered_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'open' AND mode = 'request'
	`, id, workerID, at)
}

func (r *repository) AcceptOffer(ctx context.Context, id, workerID int64, at time.Time) error {
	return r.guarded(ctx, `
		UPDATE work_orders SET status = 'assigned', assigned_to = $2, assigned_at = $3,
			offered_to = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'offered' AND offered_to = $2
	`, id, workerID, at)
}

func (r *repository) DeclineOffer(ctx context.Context, id, workerID int64) error {
	return r.guarded(ctx, `
		UPDATE work_orders SET status = 'open', offered_to = NULL, offered_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'offered' AND offered_to = $2
	`, id, workerID)
}

func (r *repository) Start(ctx context.Context, id, workerID int64, at time.Time) error {
	return r.guarded(ctx, `
		UPDATE work_orders SET status = 'in_progress', started_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'assigned' AND assigned_to = $2
	`, id, workerID, at)
}

func (r *repository) Complete(ctx context.Context, id, workerID int64, at time.Time) error {
	return r.guarded(ctx, `
		UPDATE work_orders SET status = 'completed', completed_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress' AND assigned_to = $2
	`, id, workerID, at)
}

func (r *repository) Cancel(ctx context.Context, id int64, at time.Time) error {
	return r.guarded(ctx, `
		UPDATE work_orders SET status = 'cancelled', cancelled_at = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
	`, id, at)
}

// guarded runs a transition UPDATE and maps zero affected rows to an invalid
// state error. The order may not exist, may be in the wrong state, or may
// belong to another worker; the caller's Get distinguishes if it matters.
func (r *repository) guarded(ctx context.Context, query string, args ...interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrInvalidState
	}
	return nil
}

func scanOrder(row pgx.Row) (*WorkOrder, error) {
	var o WorkOrder
	var description, address pgtype.Text
	var quoteID, assignedTo, offeredTo pgtype.Int8
	var scheduledDate, offeredAt, assignedAt, startedAt, completedAt, cancelledAt pgtype.Timestamptz

	err := row.Scan(
		&o.ID, &o.CustomerID, &quoteID, &o.Title, &description, &address, &o.Mode, &o.Status,
		&assignedTo, &offeredTo, &scheduledDate, &o.CreatedBy,
		&offeredAt, &assignedAt, &startedAt, &completedAt, &cancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}

	if description.Valid {
		o.Description = &description.String
	}
	if address.Valid {
		o.Address = &address.String
	}
	if quoteID.Valid {
		o.QuoteID = &quoteID.Int64
	}
	if assignedTo.Valid {
		o.AssignedTo = &assignedTo.Int64
	}
	if offeredTo.Valid {
		o.OfferedTo = &offeredTo.Int64
	}
	if scheduledDate.Valid {
		o.ScheduledDate = &scheduledDate.Time
	}
	if offeredAt.Valid {
		o.OfferedAt = &offeredAt.Time
	}
	if assignedAt.Valid {
		o.AssignedAt = &assignedAt.Time
	}
	if startedAt.Valid {
		o.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		o.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		o.CancelledAt = &cancelledAt.Time
	}
	return &o, nil
}

func textOrNil(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}
