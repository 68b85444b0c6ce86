package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibernabel/lamas-backend/internal/domain/creditrisk"
)

type CreditRiskRepository struct {
	pool *pgxpool.Pool
}

func NewCreditRiskRepository(pool *pgxpool.Pool) *CreditRiskRepository {
	return &CreditRiskRepository{pool: pool}
}

func (r *CreditRiskRepository) ListCategories(ctx context.Context) ([]creditrisk.Category, error) {
	q := `SELECT id, name, description, created_at FROM credit_risk_categories ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]creditrisk.Category, 0)
	for rows.Next() {
		var item creditrisk.Category
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CreditRiskRepository) ListRisks(ctx context.Context) ([]creditrisk.Risk, error) {
	q := `SELECT id, name, description, category_id, created_at FROM credit_risks ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]creditrisk.Risk, 0)
	for rows.Next() {
		var item creditrisk.Risk
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.CategoryID, &item.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CreditRiskRepository) GetRisk(ctx context.Context, id int64) (*creditrisk.Risk, error) {
	q := `SELECT id, name, description, category_id, created_at FROM credit_risks WHERE id = $1`
	out := &creditrisk.Risk{}
	err := r.pool.QueryRow(ctx, q, id).Scan(&out.ID, &out.Name, &out.Description, &out.CategoryID, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, creditrisk.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
