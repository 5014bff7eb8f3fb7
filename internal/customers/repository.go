package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
)

// Repository defines data access for customers.
type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, customer Customer) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `id, name, email, phone, street, postal_code, city,
	personal_number, property_designation, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	whereClause := "WHERE TRUE"
	var args []interface{}
	argPos := 1

	if req.Search != "" {
		whereClause += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM customers %s ORDER BY name, id LIMIT $%d OFFSET $%d",
		customerColumns, whereClause, argPos, argPos+1,
	)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *customer)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone, street, postal_code, city,
			personal_number, property_designation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id
	`, c.Name, textOrNil(c.Email), textOrNil(c.Phone), textOrNil(c.Street),
		textOrNil(c.PostalCode), textOrNil(c.City),
		textOrNil(c.PersonalNumber), textOrNil(c.PropertyDesignation)).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, c Customer) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE customers SET name = $1, email = $2, phone = $3, street = $4,
			postal_code = $5, city = $6, personal_number = $7,
			property_designation = $8, updated_at = NOW()
		WHERE id = $9
	`, c.Name, textOrNil(c.Email), textOrNil(c.Phone), textOrNil(c.Street),
		textOrNil(c.PostalCode), textOrNil(c.City),
		textOrNil(c.PersonalNumber), textOrNil(c.PropertyDesignation), c.ID)
	return err
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	var email, phone, street, postalCode, city, personalNumber, property pgtype.Text
	err := row.Scan(
		&c.ID, &c.Name, &email, &phone, &street, &postalCode, &city,
		&personalNumber, &property, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	c.Email = stringOrNil(email)
	c.Phone = stringOrNil(phone)
	c.Street = stringOrNil(street)
	c.PostalCode = stringOrNil(postalCode)
	c.City = stringOrNil(city)
	c.PersonalNumber = stringOrNil(personalNumber)
	c.PropertyDesignation = stringOrNil(property)
	return &c, nil
}

func textOrNil(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func stringOrNil(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
