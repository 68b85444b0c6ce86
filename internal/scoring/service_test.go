package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ibernabel/lamas-backend/internal/domain/loanapp"
)

type gatewayMock struct {
	eval  *Evaluation
	err   error
	calls int
}

func (m *gatewayMock) Score(_ context.Context, _ Request) (*Evaluation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.eval, nil
}

type resultsMock struct {
	stored *Result
	nextID int64
}

func (m *resultsMock) GetByApplication(_ context.Context, applicationID int64) (*Result, error) {
	if m.stored != nil && m.stored.LoanApplicationID == applicationID {
		cp := *m.stored
		return &cp, nil
	}
	return nil, nil
}

func (m *resultsMock) Create(_ context.Context, in CreateResultInput) (*Result, error) {
	if m.stored != nil && m.stored.LoanApplicationID == in.LoanApplicationID {
		return nil, ErrAlreadyEvaluated
	}
	m.nextID++
	m.stored = &Result{
		ID:                m.nextID,
		LoanApplicationID: in.LoanApplicationID,
		Decision:          in.Evaluation.Decision,
		Score:             in.Evaluation.Score,
		Confidence:        in.Evaluation.Confidence,
		RiskLevel:         in.Evaluation.RiskLevel,
		SuggestedAmount:   in.Evaluation.SuggestedAmount,
		SuggestedTerm:     in.Evaluation.SuggestedTerm,
		CorrelationID:     in.CorrelationID,
		CreatedAt:         time.Now().UTC(),
	}
	cp := *m.stored
	return &cp, nil
}

type workflowMock struct {
	app         *loanapp.Application
	notes       []string
	transitions int
}

func (m *workflowMock) Get(_ context.Context, id int64) (*loanapp.Application, error) {
	if m.app == nil || m.app.ID != id {
		return nil, loanapp.ErrNotFound
	}
	cp := *m.app
	return &cp, nil
}

func (m *workflowMock) Transition(ctx context.Context, in loanapp.TransitionInput) (*loanapp.Application, error) {
	if m.app == nil || m.app.ID != in.ID {
		return nil, loanapp.ErrNotFound
	}
	if !loanapp.CanTransition(m.app.Status, in.Target) {
		return nil, &loanapp.InvalidTransitionError{From: m.app.Status, To: in.Target}
	}
	m.transitions++
	m.app.Status = in.Target
	if in.Note != "" {
		m.notes = append(m.notes, in.Note)
	}
	cp := *m.app
	return &cp, nil
}

func (m *workflowMock) AddNote(_ context.Context, _ int64, text string, _ *int64) (*loanapp.Note, error) {
	m.notes = append(m.notes, text)
	return &loanapp.Note{Note: text}, nil
}

func assignedApp(amount float64) *loanapp.Application {
	return &loanapp.Application{
		ID:         1,
		CustomerID: 2,
		Status:     loanapp.StatusAssigned,
		Detail: &loanapp.Detail{
			LoanApplicationID: 1,
			Amount:            amount,
			Term:              12,
			Rate:              2.5,
			Frequency:         loanapp.FrequencyMonthly,
		},
	}
}

func newTestPolicy() Policy {
	return Policy{AutoApproveConfidence: 0.85, EscalationAmount: 500000}
}

func TestEvaluateAutoApprove(t *testing.T) {
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionApproved, Score: 92, Confidence: 0.95, RiskLevel: RiskLow}}
	results := &resultsMock{}
	workflow := &workflowMock{app: assignedApp(100000)}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	result, err := svc.Evaluate(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Decision != DecisionApproved {
		t.Fatalf("unexpected decision %s", result.Decision)
	}
	if workflow.app.Status != loanapp.StatusApproved {
		t.Fatalf("expected auto-approval, status is %s", workflow.app.Status)
	}
	if len(workflow.notes) != 2 || !strings.HasPrefix(workflow.notes[0], "[AI_EVALUATION] decision=APPROVED") {
		t.Fatalf("unexpected notes: %v", workflow.notes)
	}
}

func TestEvaluateFromAnalyzedSkipsAnalysisTransition(t *testing.T) {
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionApproved, Score: 90, Confidence: 0.95, RiskLevel: RiskLow}}
	results := &resultsMock{}
	app := assignedApp(100000)
	app.Status = loanapp.StatusAnalyzed
	workflow := &workflowMock{app: app}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	if _, err := svc.Evaluate(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if workflow.app.Status != loanapp.StatusApproved {
		t.Fatalf("expected auto-approval, status is %s", workflow.app.Status)
	}
	// Already analyzed: the summary is a plain note, and the only transition
	// is the routing one.
	if workflow.transitions != 1 {
		t.Fatalf("expected 1 transition, got %d", workflow.transitions)
	}
	if len(workflow.notes) != 2 || !strings.HasPrefix(workflow.notes[0], "[AI_EVALUATION] decision=APPROVED") {
		t.Fatalf("unexpected notes: %v", workflow.notes)
	}
}

func TestEvaluateAutoReject(t *testing.T) {
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionRejected, Score: 40, Confidence: 0.9, RiskLevel: RiskHigh}}
	results := &resultsMock{}
	workflow := &workflowMock{app: assignedApp(100000)}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	if _, err := svc.Evaluate(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if workflow.app.Status != loanapp.StatusRejected {
		t.Fatalf("expected auto-rejection, status is %s", workflow.app.Status)
	}
}

func TestEvaluateLowConfidenceStaysForReview(t *testing.T) {
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionApproved, Score: 75, Confidence: 0.6, RiskLevel: RiskMedium}}
	results := &resultsMock{}
	workflow := &workflowMock{app: assignedApp(100000)}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	if _, err := svc.Evaluate(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if workflow.app.Status != loanapp.StatusAnalyzed {
		t.Fatalf("expected pending review in analyzed, status is %s", workflow.app.Status)
	}
	found := false
	for _, note := range workflow.notes {
		if strings.Contains(note, "flagged for manual review") {
			found = true
		}
	}
	if !found {
		t.Fatalf("review note missing: %v", workflow.notes)
	}
}

func TestEvaluateEscalationOverridesApproval(t *testing.T) {
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionApproved, Score: 95, Confidence: 0.99, RiskLevel: RiskLow}}
	results := &resultsMock{}
	workflow := &workflowMock{app: assignedApp(750000)}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	if _, err := svc.Evaluate(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if workflow.app.Status != loanapp.StatusAnalyzed {
		t.Fatalf("escalation must block auto-approval, status is %s", workflow.app.Status)
	}
}

func TestEvaluateEscalationDoesNotBlockRejection(t *testing.T) {
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionRejected, Score: 20, Confidence: 0.9, RiskLevel: RiskCritical}}
	results := &resultsMock{}
	workflow := &workflowMock{app: assignedApp(750000)}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	if _, err := svc.Evaluate(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if workflow.app.Status != loanapp.StatusRejected {
		t.Fatalf("rejection must stand despite amount, status is %s", workflow.app.Status)
	}
}

func TestEvaluateManualReviewRecordsSuggestedAmount(t *testing.T) {
	suggested := 30000.0
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionManualReview, Score: 55, Confidence: 0.7, RiskLevel: RiskMedium, SuggestedAmount: &suggested}}
	results := &resultsMock{}
	workflow := &workflowMock{app: assignedApp(100000)}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	if _, err := svc.Evaluate(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if workflow.app.Detail.Amount != 100000 {
		t.Fatalf("requested amount must be preserved")
	}
	found := false
	for _, note := range workflow.notes {
		if strings.Contains(note, "suggested amount: 30000.00") && strings.Contains(note, "100000.00 preserved") {
			found = true
		}
	}
	if !found {
		t.Fatalf("suggested amount note missing: %v", workflow.notes)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionRejected, Score: 40, Confidence: 0.9, RiskLevel: RiskHigh}}
	results := &resultsMock{}
	workflow := &workflowMock{app: assignedApp(100000)}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	first, err := svc.Evaluate(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Evaluate(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gateway.calls != 1 {
		t.Fatalf("gateway called %d times, want 1", gateway.calls)
	}
	if first.ID != second.ID || first.Decision != second.Decision {
		t.Fatalf("second evaluation returned a different result")
	}
}

func TestEvaluateGatewayFailureLeavesStateUntouched(t *testing.T) {
	gateway := &gatewayMock{err: &GatewayError{Op: "call", Err: errors.New("timeout")}}
	results := &resultsMock{}
	workflow := &workflowMock{app: assignedApp(100000)}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	_, err := svc.Evaluate(context.Background(), 1, nil)
	var gerr *GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if workflow.app.Status != loanapp.StatusAssigned {
		t.Fatalf("status mutated on gateway failure")
	}
	if results.stored != nil {
		t.Fatalf("result stored on gateway failure")
	}
	if len(workflow.notes) != 0 {
		t.Fatalf("notes written on gateway failure")
	}
}

func TestEvaluateRejectsUnanalyzableStatus(t *testing.T) {
	gateway := &gatewayMock{eval: &Evaluation{Decision: DecisionApproved, Score: 90, Confidence: 0.9, RiskLevel: RiskLow}}
	results := &resultsMock{}
	app := assignedApp(100000)
	app.Status = loanapp.StatusReceived
	workflow := &workflowMock{app: app}
	svc := NewService(gateway, results, workflow, newTestPolicy())

	_, err := svc.Evaluate(context.Background(), 1, nil)
	var nerr *NotEvaluableError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotEvaluableError, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway must not be called for status %s", app.Status)
	}
}

func TestEvaluateNotFound(t *testing.T) {
	svc := NewService(&gatewayMock{}, &resultsMock{}, &workflowMock{}, newTestPolicy())
	_, err := svc.Evaluate(context.Background(), 9, nil)
	if !errors.Is(err, loanapp.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
