package customer

import (
	"context"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Customer, error) {
	in.NID = strings.TrimSpace(in.NID)
	in.FirstName = strings.TrimSpace(in.FirstName)

	if !validNID(in.NID) {
		return nil, &ValidationError{Field: "nid", Message: "must be exactly 11 digits"}
	}
	if in.FirstName == "" {
		return nil, &ValidationError{Field: "first_name", Message: "must not be empty"}
	}

	taken, err := s.repo.ExistsByNID(ctx, in.NID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNIDTaken
	}

	return s.repo.Create(ctx, in)
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Customer, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}

// ValidateNID checks format and uniqueness without creating anything. Used by
// onboarding forms before submission.
func (s *Service) ValidateNID(ctx context.Context, nid string) (*NIDValidation, error) {
	nid = strings.TrimSpace(nid)
	if !validNID(nid) {
		return &NIDValidation{NID: nid, IsValid: false, IsUnique: false, Message: "NID must be exactly 11 digits"}, nil
	}

	taken, err := s.repo.ExistsByNID(ctx, nid)
	if err != nil {
		return nil, err
	}
	if taken {
		return &NIDValidation{NID: nid, IsValid: true, IsUnique: false, Message: "NID already exists"}, nil
	}
	return &NIDValidation{NID: nid, IsValid: true, IsUnique: true}, nil
}

// Exists satisfies the loan application service's customer directory.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func validNID(nid string) bool {
	if len(nid) != 11 {
		return false
	}
	for _, r := range nid {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
