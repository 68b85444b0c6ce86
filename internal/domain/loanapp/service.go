package loanapp

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service owns every mutation of a loan application. Status, flags and
// timestamps are never written outside Transition.
type Service struct {
	repo      Repository
	customers CustomerDirectory
	risks     CreditRiskCatalog
	now       func() time.Time
}

func NewService(repo Repository, customers CustomerDirectory, risks CreditRiskCatalog) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		risks:     risks,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Application, error) {
	if err := validateDetail(in.Detail); err != nil {
		return nil, err
	}

	exists, err := s.customers.Exists(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("customer %d: %w", in.CustomerID, ErrCustomerNotFound)
	}

	return s.repo.Create(ctx, in)
}

func (s *Service) Get(ctx context.Context, id int64) (*Application, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]ListItem, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) UpdateDetail(ctx context.Context, id int64, in DetailInput) (*Application, error) {
	if err := validateDetail(in); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDetail(ctx, id, in); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}

// Transition validates the requested status change against the transition
// table and applies it all-or-nothing: status, derived flags, timestamps and
// the optional note are committed together or not at all.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (*Application, error) {
	app, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(app.Status, in.Target) {
		return nil, &InvalidTransitionError{From: app.Status, To: in.Target}
	}

	return s.repo.ApplyTransition(ctx, ApplyTransitionInput{
		ID:     in.ID,
		Patch:  s.statusPatch(app.Status, in.Target),
		Note:   strings.TrimSpace(in.Note),
		UserID: in.UserID,
	})
}

// statusPatch derives the flag and timestamp changes for a transition. Flags
// are a pure function of the target status so they cannot drift from it.
func (s *Service) statusPatch(from, to Status) StatusPatch {
	now := s.now()
	patch := StatusPatch{From: from, To: to, ChangedStatusAt: now}

	switch to {
	case StatusApproved:
		patch.SetApproved = true
		patch.SetAnswered = true
		patch.ApprovedAt = &now
	case StatusRejected:
		patch.SetRejected = true
		patch.SetAnswered = true
		patch.RejectedAt = &now
	case StatusArchived:
		patch.SetArchived = true
		patch.ArchivedAt = &now
	}
	return patch
}

func (s *Service) AddNote(ctx context.Context, applicationID int64, text string, userID *int64) (*Note, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &ValidationError{Field: "note", Message: "must not be empty"}
	}
	if _, err := s.repo.GetByID(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.repo.AppendNote(ctx, applicationID, trimmed, userID)
}

func (s *Service) ListNotes(ctx context.Context, applicationID int64) ([]Note, error) {
	if _, err := s.repo.GetByID(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.repo.ListNotes(ctx, applicationID)
}

// AssociateCreditRisk records the association as a system note so it shows up
// in the same chronological ledger as analyst commentary.
func (s *Service) AssociateCreditRisk(ctx context.Context, applicationID, riskID int64) (*Application, error) {
	if _, err := s.repo.GetByID(ctx, applicationID); err != nil {
		return nil, err
	}

	risk, err := s.risks.GetRisk(ctx, riskID)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("[CREDIT_RISK] Associated credit risk: '%s' (ID: %d)", risk.Name, risk.ID)
	if _, err := s.repo.AppendNote(ctx, applicationID, note, nil); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, applicationID)
}

func validateDetail(in DetailInput) error {
	if in.Amount <= 0 {
		return &ValidationError{Field: "amount", Message: "must be positive"}
	}
	if in.Term <= 0 {
		return &ValidationError{Field: "term", Message: "must be a positive number of months"}
	}
	if in.Rate < 0 {
		return &ValidationError{Field: "rate", Message: "must not be negative"}
	}
	switch in.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return &ValidationError{Field: "frequency", Message: "must be one of daily, weekly, biweekly, monthly"}
	}
	return nil
}
