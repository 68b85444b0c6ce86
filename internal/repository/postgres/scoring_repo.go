package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibernabel/lamas-backend/internal/scoring"
)

type ScoringResultRepository struct {
	pool *pgxpool.Pool
}

func NewScoringResultRepository(pool *pgxpool.Pool) *ScoringResultRepository {
	return &ScoringResultRepository{pool: pool}
}

func (r *ScoringResultRepository) GetByApplication(ctx context.Context, applicationID int64) (*scoring.Result, error) {
	q := `
SELECT id, loan_application_id, decision, score, confidence, risk_level,
       suggested_amount, suggested_term, correlation_id, created_at
FROM scoring_results WHERE loan_application_id = $1
`
	out := &scoring.Result{}
	err := r.pool.QueryRow(ctx, q, applicationID).Scan(
		&out.ID, &out.LoanApplicationID, &out.Decision, &out.Score, &out.Confidence, &out.RiskLevel,
		&out.SuggestedAmount, &out.SuggestedTerm, &out.CorrelationID, &out.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create relies on the unique index over loan_application_id to guarantee at
// most one stored result per application.
func (r *ScoringResultRepository) Create(ctx context.Context, in scoring.CreateResultInput) (*scoring.Result, error) {
	q := `
INSERT INTO scoring_results (
  loan_application_id, decision, score, confidence, risk_level,
  suggested_amount, suggested_term, correlation_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, loan_application_id, decision, score, confidence, risk_level,
          suggested_amount, suggested_term, correlation_id, created_at
`
	out := &scoring.Result{}
	err := r.pool.QueryRow(ctx, q,
		in.LoanApplicationID, string(in.Evaluation.Decision), in.Evaluation.Score, in.Evaluation.Confidence,
		string(in.Evaluation.RiskLevel), in.Evaluation.SuggestedAmount, in.Evaluation.SuggestedTerm, in.CorrelationID,
	).Scan(
		&out.ID, &out.LoanApplicationID, &out.Decision, &out.Score, &out.Confidence, &out.RiskLevel,
		&out.SuggestedAmount, &out.SuggestedTerm, &out.CorrelationID, &out.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, scoring.ErrAlreadyEvaluated
		}
		return nil, err
	}
	return out, nil
}
