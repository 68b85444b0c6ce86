package customer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("customer not found")
	ErrNIDTaken = errors.New("nid already registered")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type Customer struct {
	ID          int64     `json:"id"`
	NID         string    `json:"nid"`
	LeadChannel string    `json:"lead_channel,omitempty"`
	IsReferred  bool      `json:"is_referred"`
	ReferredBy  string    `json:"referred_by,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Detail      *Detail   `json:"detail,omitempty"`
}

type Detail struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name,omitempty"`
	Email      string     `json:"email,omitempty"`
	Nickname   string     `json:"nickname,omitempty"`
	Birthday   *time.Time `json:"birthday,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type CreateInput struct {
	NID         string `json:"nid"`
	LeadChannel string `json:"lead_channel"`
	IsReferred  bool   `json:"is_referred"`
	ReferredBy  string `json:"referred_by"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
}

type ListFilter struct {
	IsActive    *bool
	LeadChannel string
	Search      string
	Limit       int32
	Offset      int32
}

// NIDValidation is the response of the pre-registration NID check.
type NIDValidation struct {
	NID      string `json:"nid"`
	IsValid  bool   `json:"is_valid"`
	IsUnique bool   `json:"is_unique"`
	Message  string `json:"message,omitempty"`
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Customer, error)
	GetByID(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, f ListFilter) ([]Customer, error)
	ExistsByNID(ctx context.Context, nid string) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	SoftDelete(ctx context.Context, id int64) error
}
