package creditrisk

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("credit risk not found")

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Risk struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListRisks(ctx context.Context) ([]Risk, error)
	GetRisk(ctx context.Context, id int64) (*Risk, error)
}
