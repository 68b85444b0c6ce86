package scoring

import (
	"context"
	"fmt"
	"time"
)

// Decision returned by the external credit scoring service.
type Decision string

const (
	DecisionApproved              Decision = "APPROVED"
	DecisionRejected              Decision = "REJECTED"
	DecisionManualReview          Decision = "MANUAL_REVIEW"
	DecisionApprovedPendingReview Decision = "APPROVED_PENDING_REVIEW"
)

func parseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionApproved, DecisionRejected, DecisionManualReview, DecisionApprovedPendingReview:
		return Decision(raw), nil
	}
	return "", fmt.Errorf("unknown decision %q", raw)
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Evaluation is the payload the scorer returns for one application.
type Evaluation struct {
	Decision        Decision  `json:"decision"`
	Score           int32     `json:"score"`
	Confidence      float64   `json:"confidence"`
	RiskLevel       RiskLevel `json:"risk_level"`
	SuggestedAmount *float64  `json:"suggested_amount,omitempty"`
	SuggestedTerm   *int32    `json:"suggested_term,omitempty"`
}

// Result is a stored Evaluation. At most one per application; re-analysis
// would create a new row rather than mutate this one.
type Result struct {
	ID                int64     `json:"id"`
	LoanApplicationID int64     `json:"loan_application_id"`
	Decision          Decision  `json:"decision"`
	Score             int32     `json:"score"`
	Confidence        float64   `json:"confidence"`
	RiskLevel         RiskLevel `json:"risk_level"`
	SuggestedAmount   *float64  `json:"suggested_amount,omitempty"`
	SuggestedTerm     *int32    `json:"suggested_term,omitempty"`
	CorrelationID     string    `json:"correlation_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// Request carries the applicant and loan data the scorer needs.
type Request struct {
	CorrelationID     string  `json:"correlation_id"`
	LoanApplicationID int64   `json:"loan_application_id"`
	CustomerID        int64   `json:"customer_id"`
	Amount            float64 `json:"amount"`
	TermMonths        int32   `json:"term_months"`
	Rate              float64 `json:"rate"`
	Frequency         string  `json:"frequency"`
	Purpose           string  `json:"purpose"`
}

// Gateway is the external scoring collaborator. Implementations must bound
// the call duration; callers hold no locks while it runs.
type Gateway interface {
	Score(ctx context.Context, req Request) (*Evaluation, error)
}

// GatewayError wraps any failure of the external call: timeout, non-2xx,
// malformed payload. It is retryable by the caller; no state was committed.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("scoring gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
