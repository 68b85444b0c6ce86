package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibernabel/lamas-backend/internal/domain/customer"
)

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) Create(ctx context.Context, in customer.CreateInput) (*customer.Customer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
INSERT INTO customers (nid, lead_channel, is_referred, referred_by)
VALUES ($1, $2, $3, $4)
RETURNING id, nid, lead_channel, is_referred, referred_by, is_active, created_at, updated_at
`
	out := &customer.Customer{}
	err = tx.QueryRow(ctx, q, in.NID, in.LeadChannel, in.IsReferred, in.ReferredBy).
		Scan(&out.ID, &out.NID, &out.LeadChannel, &out.IsReferred, &out.ReferredBy, &out.IsActive, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, customer.ErrNIDTaken
		}
		return nil, err
	}

	qd := `
INSERT INTO customer_details (customer_id, first_name, last_name, email)
VALUES ($1, $2, $3, $4)
RETURNING id, customer_id, first_name, last_name, email, nickname, birthday, created_at, updated_at
`
	detail := &customer.Detail{}
	err = tx.QueryRow(ctx, qd, out.ID, in.FirstName, in.LastName, in.Email).
		Scan(&detail.ID, &detail.CustomerID, &detail.FirstName, &detail.LastName, &detail.Email, &detail.Nickname, &detail.Birthday, &detail.CreatedAt, &detail.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	out.Detail = detail
	return out, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	q := `SELECT id, nid, lead_channel, is_referred, referred_by, is_active, created_at, updated_at FROM customers WHERE id = $1`
	out := &customer.Customer{}
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&out.ID, &out.NID, &out.LeadChannel, &out.IsReferred, &out.ReferredBy, &out.IsActive, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	qd := `SELECT id, customer_id, first_name, last_name, email, nickname, birthday, created_at, updated_at FROM customer_details WHERE customer_id = $1`
	detail := &customer.Detail{}
	err = r.pool.QueryRow(ctx, qd, id).
		Scan(&detail.ID, &detail.CustomerID, &detail.FirstName, &detail.LastName, &detail.Email, &detail.Nickname, &detail.Birthday, &detail.CreatedAt, &detail.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		out.Detail = nil
	case err != nil:
		return nil, err
	default:
		out.Detail = detail
	}
	return out, nil
}

func (r *CustomerRepository) List(ctx context.Context, f customer.ListFilter) ([]customer.Customer, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	builder := strings.Builder{}
	builder.WriteString(`
SELECT c.id, c.nid, c.lead_channel, c.is_referred, c.referred_by, c.is_active, c.created_at, c.updated_at
FROM customers c
LEFT JOIN customer_details d ON d.customer_id = c.id
WHERE 1=1`)

	args := []any{}
	argPos := 1
	if f.IsActive != nil {
		builder.WriteString(" AND c.is_active = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, *f.IsActive)
		argPos++
	}
	if strings.TrimSpace(f.LeadChannel) != "" {
		builder.WriteString(" AND c.lead_channel = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, f.LeadChannel)
		argPos++
	}
	if strings.TrimSpace(f.Search) != "" {
		builder.WriteString(" AND (c.nid ILIKE $")
		builder.WriteString(strconv.Itoa(argPos))
		builder.WriteString(" OR d.first_name ILIKE $")
		builder.WriteString(strconv.Itoa(argPos))
		builder.WriteString(" OR d.last_name ILIKE $")
		builder.WriteString(strconv.Itoa(argPos))
		builder.WriteString(")")
		args = append(args, "%"+strings.TrimSpace(f.Search)+"%")
		argPos++
	}
	builder.WriteString(" ORDER BY c.created_at DESC")
	builder.WriteString(" LIMIT $")
	builder.WriteString(strconv.Itoa(argPos))
	args = append(args, f.Limit)
	argPos++
	builder.WriteString(" OFFSET $")
	builder.WriteString(strconv.Itoa(argPos))
	args = append(args, f.Offset)

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]customer.Customer, 0)
	for rows.Next() {
		var item customer.Customer
		if err := rows.Scan(&item.ID, &item.NID, &item.LeadChannel, &item.IsReferred, &item.ReferredBy, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CustomerRepository) ExistsByNID(ctx context.Context, nid string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE nid = $1)`, nid).Scan(&exists)
	return exists, err
}

func (r *CustomerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND is_active = true)`, id).Scan(&exists)
	return exists, err
}

func (r *CustomerRepository) SoftDelete(ctx context.Context, id int64) error {
	q := `UPDATE customers SET is_active = false, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
