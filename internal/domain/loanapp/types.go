package loanapp

import (
	"context"
	"fmt"
	"time"
)

// Status is the workflow state of a loan application. It is only ever
// changed through Service.Transition.
type Status string

const (
	StatusReceived Status = "received"
	StatusVerified Status = "verified"
	StatusAssigned Status = "assigned"
	StatusAnalyzed Status = "analyzed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusArchived Status = "archived"
)

var allStatuses = []Status{
	StatusReceived,
	StatusVerified,
	StatusAssigned,
	StatusAnalyzed,
	StatusApproved,
	StatusRejected,
	StatusArchived,
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	for _, known := range allStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// PaymentFrequency of the requested loan installments.
const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

type Application struct {
	ID              int64      `json:"id"`
	CustomerID      int64      `json:"customer_id"`
	UserID          *int64     `json:"user_id,omitempty"`
	Status          Status     `json:"status"`
	ChangedStatusAt *time.Time `json:"changed_status_at,omitempty"`
	IsAnswered      bool       `json:"is_answered"`
	IsApproved      bool       `json:"is_approved"`
	IsRejected      bool       `json:"is_rejected"`
	IsArchived      bool       `json:"is_archived"`
	IsNew           bool       `json:"is_new"`
	IsEdited        bool       `json:"is_edited"`
	IsActive        bool       `json:"is_active"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Detail          *Detail    `json:"detail,omitempty"`
	Notes           []Note     `json:"notes"`
}

type Detail struct {
	ID                int64     `json:"id"`
	LoanApplicationID int64     `json:"loan_application_id"`
	Amount            float64   `json:"amount"`
	Term              int32     `json:"term"`
	Rate              float64   `json:"rate"`
	Quota             float64   `json:"quota"`
	Frequency         string    `json:"frequency"`
	Purpose           string    `json:"purpose"`
	CustomerComment   string    `json:"customer_comment"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Note is an append-only audit entry. Notes are never edited or removed.
type Note struct {
	ID                int64     `json:"id"`
	LoanApplicationID int64     `json:"loan_application_id"`
	Note              string    `json:"note"`
	UserID            *int64    `json:"user_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type DetailInput struct {
	Amount          float64 `json:"amount"`
	Term            int32   `json:"term"`
	Rate            float64 `json:"rate"`
	Quota           float64 `json:"quota"`
	Frequency       string  `json:"frequency"`
	Purpose         string  `json:"purpose"`
	CustomerComment string  `json:"customer_comment"`
}

type CreateInput struct {
	CustomerID int64
	UserID     *int64
	Detail     DetailInput
}

type TransitionInput struct {
	ID     int64
	Target Status
	Note   string
	UserID *int64
}

type ListFilter struct {
	CustomerID *int64
	Status     Status
	IsActive   *bool
	IsApproved *bool
	IsRejected *bool
	Limit      int32
	Offset     int32
}

type ListItem struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Status     Status    `json:"status"`
	Amount     *float64  `json:"amount,omitempty"`
	IsAnswered bool      `json:"is_answered"`
	IsApproved bool      `json:"is_approved"`
	IsRejected bool      `json:"is_rejected"`
	IsArchived bool      `json:"is_archived"`
	IsNew      bool      `json:"is_new"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusPatch is the full set of column changes a single transition applies.
// Timestamp pointers are nil when the transition does not enter that state;
// the repository must preserve an already-set timestamp (set once, never
// overwritten).
type StatusPatch struct {
	From            Status
	To              Status
	ChangedStatusAt time.Time
	SetAnswered     bool
	SetApproved     bool
	SetRejected     bool
	SetArchived     bool
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	ArchivedAt      *time.Time
}

// ApplyTransitionInput is executed atomically by the repository: the status
// update is a compare-and-swap on (id, patch.From), and the optional note and
// the status event are written in the same transaction.
type ApplyTransitionInput struct {
	ID     int64
	Patch  StatusPatch
	Note   string
	UserID *int64
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Application, error)
	GetByID(ctx context.Context, id int64) (*Application, error)
	List(ctx context.Context, f ListFilter) ([]ListItem, error)
	ApplyTransition(ctx context.Context, in ApplyTransitionInput) (*Application, error)
	UpdateDetail(ctx context.Context, id int64, in DetailInput) error
	SoftDelete(ctx context.Context, id int64) error
	AppendNote(ctx context.Context, applicationID int64, text string, userID *int64) (*Note, error)
	ListNotes(ctx context.Context, applicationID int64) ([]Note, error)
}

type CustomerDirectory interface {
	Exists(ctx context.Context, customerID int64) (bool, error)
}

type CreditRiskEntry struct {
	ID   int64
	Name string
}

type CreditRiskCatalog interface {
	GetRisk(ctx context.Context, riskID int64) (*CreditRiskEntry, error)
}
