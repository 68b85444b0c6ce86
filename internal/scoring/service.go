package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ibernabel/lamas-backend/internal/domain/loanapp"
)

// ErrAlreadyEvaluated is returned by the result repository when an insert
// races against another evaluation of the same application.
var ErrAlreadyEvaluated = errors.New("scoring result already stored")

// NotEvaluableError reports an evaluate request on an application whose
// status admits no analysis step.
type NotEvaluableError struct {
	Status loanapp.Status
}

func (e *NotEvaluableError) Error() string {
	return fmt.Sprintf("application in status %q cannot be evaluated, expected %q or %q", e.Status, loanapp.StatusAssigned, loanapp.StatusAnalyzed)
}

type CreateResultInput struct {
	LoanApplicationID int64
	CorrelationID     string
	Evaluation        Evaluation
}

type ResultRepository interface {
	// GetByApplication returns (nil, nil) when no result is stored yet.
	GetByApplication(ctx context.Context, applicationID int64) (*Result, error)
	Create(ctx context.Context, in CreateResultInput) (*Result, error)
}

// Workflow is the slice of the loan-application service the evaluator needs.
// All status changes go through it so the transition table stays the single
// authority.
type Workflow interface {
	Get(ctx context.Context, id int64) (*loanapp.Application, error)
	Transition(ctx context.Context, in loanapp.TransitionInput) (*loanapp.Application, error)
	AddNote(ctx context.Context, applicationID int64, text string, userID *int64) (*loanapp.Note, error)
}

// Policy holds the deployment-configurable routing knobs: the confidence an
// APPROVED decision needs for auto-approval, and the requested amount above
// which any approval is escalated to manual review.
type Policy struct {
	AutoApproveConfidence float64
	EscalationAmount      float64
}

type Service struct {
	gateway  Gateway
	results  ResultRepository
	workflow Workflow
	policy   Policy
}

func NewService(gateway Gateway, results ResultRepository, workflow Workflow, policy Policy) *Service {
	return &Service{gateway: gateway, results: results, workflow: workflow, policy: policy}
}

// Evaluate scores an application through the external gateway and routes its
// status from the decision. A second call returns the stored result without
// touching the gateway again. The application row is read before the call and
// written only after it returns; no lock is held for the duration.
func (s *Service) Evaluate(ctx context.Context, applicationID int64, userID *int64) (*Result, error) {
	existing, err := s.results.GetByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	app, err := s.workflow.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != loanapp.StatusAssigned && app.Status != loanapp.StatusAnalyzed {
		return nil, &NotEvaluableError{Status: app.Status}
	}
	if app.Detail == nil {
		return nil, &loanapp.ValidationError{Field: "detail", Message: "financial detail is required for scoring"}
	}

	correlationID := uuid.NewString()
	eval, err := s.gateway.Score(ctx, Request{
		CorrelationID:     correlationID,
		LoanApplicationID: app.ID,
		CustomerID:        app.CustomerID,
		Amount:            app.Detail.Amount,
		TermMonths:        app.Detail.Term,
		Rate:              app.Detail.Rate,
		Frequency:         app.Detail.Frequency,
		Purpose:           app.Detail.Purpose,
	})
	if err != nil {
		return nil, err
	}

	stored, err := s.results.Create(ctx, CreateResultInput{
		LoanApplicationID: app.ID,
		CorrelationID:     correlationID,
		Evaluation:        *eval,
	})
	if errors.Is(err, ErrAlreadyEvaluated) {
		return s.results.GetByApplication(ctx, applicationID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.route(ctx, app, eval, userID); err != nil {
		return nil, err
	}
	return stored, nil
}

type routeTarget int

const (
	routeApproved routeTarget = iota
	routeRejected
	routeReview
)

// decide maps a decision onto the workflow. The monetary escalation override
// applies to approval paths only: an auto-rejection stands regardless of the
// requested amount.
func (s *Service) decide(amount float64, eval *Evaluation) (routeTarget, string) {
	if eval.Decision == DecisionRejected {
		return routeRejected, ""
	}
	if s.policy.EscalationAmount > 0 && amount > s.policy.EscalationAmount {
		return routeReview, fmt.Sprintf("requested amount %.2f exceeds escalation threshold %.2f", amount, s.policy.EscalationAmount)
	}
	switch eval.Decision {
	case DecisionApproved:
		if eval.Confidence >= s.policy.AutoApproveConfidence {
			return routeApproved, ""
		}
		return routeReview, fmt.Sprintf("confidence %.2f below auto-approval threshold %.2f", eval.Confidence, s.policy.AutoApproveConfidence)
	case DecisionApprovedPendingReview:
		return routeReview, "approved pending human review"
	default:
		return routeReview, "manual review requested by scorer"
	}
}

func (s *Service) route(ctx context.Context, app *loanapp.Application, eval *Evaluation, userID *int64) error {
	summary := fmt.Sprintf("[AI_EVALUATION] decision=%s score=%d confidence=%.2f risk=%s", eval.Decision, eval.Score, eval.Confidence, eval.RiskLevel)

	if app.Status == loanapp.StatusAssigned {
		// Scoring is the analysis step.
		if _, err := s.workflow.Transition(ctx, loanapp.TransitionInput{ID: app.ID, Target: loanapp.StatusAnalyzed, Note: summary, UserID: userID}); err != nil {
			return err
		}
	} else {
		if _, err := s.workflow.AddNote(ctx, app.ID, summary, userID); err != nil {
			return err
		}
	}

	target, reason := s.decide(app.Detail.Amount, eval)
	switch target {
	case routeApproved:
		_, err := s.workflow.Transition(ctx, loanapp.TransitionInput{ID: app.ID, Target: loanapp.StatusApproved, Note: "[AI_EVALUATION] auto-approved", UserID: userID})
		if err != nil {
			return err
		}
	case routeRejected:
		_, err := s.workflow.Transition(ctx, loanapp.TransitionInput{ID: app.ID, Target: loanapp.StatusRejected, Note: "[AI_EVALUATION] auto-rejected", UserID: userID})
		if err != nil {
			return err
		}
	case routeReview:
		// Stays in analyzed awaiting a human decision.
		if _, err := s.workflow.AddNote(ctx, app.ID, "[AI_EVALUATION] flagged for manual review: "+reason, userID); err != nil {
			return err
		}
		if eval.SuggestedAmount != nil {
			note := fmt.Sprintf("[AI_EVALUATION] suggested amount: %.2f (requested amount %.2f preserved)", *eval.SuggestedAmount, app.Detail.Amount)
			if _, err := s.workflow.AddNote(ctx, app.ID, note, userID); err != nil {
				return err
			}
		}
	}
	return nil
}
