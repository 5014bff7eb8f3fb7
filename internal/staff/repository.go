package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
)

// Repository defines data access for staff accounts.
type Repository interface {
	Get(ctx context.Context, id int64) (*Staff, error)
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	List(ctx context.Context, req ListStaffRequest) ([]Staff, int, error)
	Create(ctx context.Context, member Staff) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const staffColumns = `id, name, email, phone, role, active, password_hash, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	return scanStaff(row)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE email = $1`, email)
	return scanStaff(row)
}

func (r *repository) List(ctx context.Context, req ListStaffRequest) ([]Staff, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	conditions = append(conditions, "TRUE")
	if req.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argPos))
		args = append(args, *req.Role)
		argPos++
	}
	if req.ActiveOnly {
		conditions = append(conditions, "active")
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM staff "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM staff %s ORDER BY name, id LIMIT $%d OFFSET $%d",
		staffColumns, whereClause, argPos, argPos+1,
	)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var members []Staff
	for rows.Next() {
		member, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, *member)
	}
	return members, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, member Staff) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO staff (name, email, phone, role, active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`, member.Name, member.Email, textOrNil(member.Phone), member.Role, member.Active, member.PasswordHash).Scan(&id)
	return id, err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE staff SET active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	return err
}

func scanStaff(row pgx.Row) (*Staff, error) {
	var member Staff
	var phone pgtype.Text
	err := row.Scan(
		&member.ID, &member.Name, &member.Email, &phone, &member.Role,
		&member.Active, &member.PasswordHash, &member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if phone.Valid {
		member.Phone = &phone.String
	}
	return &member, nil
}

func textOrNil(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}
