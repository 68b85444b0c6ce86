package creditrisk

import "context"

// Service exposes the read-only risk catalog. Risks are seeded data; there is
// no write path here.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) ListRisks(ctx context.Context) ([]Risk, error) {
	return s.repo.ListRisks(ctx)
}

func (s *Service) GetRisk(ctx context.Context, id int64) (*Risk, error) {
	return s.repo.GetRisk(ctx, id)
}
