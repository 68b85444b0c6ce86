package loanapp

import (
	"context"
	"errors"
	"testing"
	"time"
)

type repoMock struct {
	apps       map[int64]*Application
	notes      map[int64][]Note
	nextNoteID int64

	conflictOnApply bool
}

func newRepoMock() *repoMock {
	return &repoMock{apps: map[int64]*Application{}, notes: map[int64][]Note{}}
}

func (m *repoMock) seed(id int64, status Status) *Application {
	app := &Application{
		ID:         id,
		CustomerID: 1,
		Status:     status,
		IsNew:      status == StatusReceived,
		IsActive:   true,
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Detail: &Detail{
			LoanApplicationID: id,
			Amount:            50000,
			Term:              12,
			Rate:              2.5,
			Frequency:         FrequencyMonthly,
		},
	}
	m.apps[id] = app
	return app
}

func (m *repoMock) Create(_ context.Context, in CreateInput) (*Application, error) {
	id := int64(len(m.apps) + 1)
	app := &Application{
		ID:         id,
		CustomerID: in.CustomerID,
		UserID:     in.UserID,
		Status:     StatusReceived,
		IsNew:      true,
		IsActive:   true,
		Detail: &Detail{
			LoanApplicationID: id,
			Amount:            in.Detail.Amount,
			Term:              in.Detail.Term,
			Rate:              in.Detail.Rate,
			Quota:             in.Detail.Quota,
			Frequency:         in.Detail.Frequency,
			Purpose:           in.Detail.Purpose,
			CustomerComment:   in.Detail.CustomerComment,
		},
	}
	m.apps[id] = app
	cp := *app
	return &cp, nil
}

func (m *repoMock) GetByID(_ context.Context, id int64) (*Application, error) {
	app, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *app
	cp.Notes = append([]Note(nil), m.notes[id]...)
	return &cp, nil
}

func (m *repoMock) List(_ context.Context, _ ListFilter) ([]ListItem, error) {
	return []ListItem{}, nil
}

func (m *repoMock) ApplyTransition(ctx context.Context, in ApplyTransitionInput) (*Application, error) {
	app, ok := m.apps[in.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.conflictOnApply || app.Status != in.Patch.From {
		return nil, ErrConflict
	}

	app.Status = in.Patch.To
	at := in.Patch.ChangedStatusAt
	app.ChangedStatusAt = &at
	app.IsNew = false
	app.IsAnswered = app.IsAnswered || in.Patch.SetAnswered
	app.IsApproved = app.IsApproved || in.Patch.SetApproved
	app.IsRejected = app.IsRejected || in.Patch.SetRejected
	app.IsArchived = app.IsArchived || in.Patch.SetArchived
	if app.ApprovedAt == nil && in.Patch.ApprovedAt != nil {
		app.ApprovedAt = in.Patch.ApprovedAt
	}
	if app.RejectedAt == nil && in.Patch.RejectedAt != nil {
		app.RejectedAt = in.Patch.RejectedAt
	}
	if app.ArchivedAt == nil && in.Patch.ArchivedAt != nil {
		app.ArchivedAt = in.Patch.ArchivedAt
	}

	if in.Note != "" {
		if _, err := m.AppendNote(ctx, in.ID, in.Note, in.UserID); err != nil {
			return nil, err
		}
	}
	return m.GetByID(ctx, in.ID)
}

func (m *repoMock) UpdateDetail(_ context.Context, id int64, in DetailInput) error {
	app, ok := m.apps[id]
	if !ok {
		return ErrNotFound
	}
	app.Detail.Amount = in.Amount
	app.Detail.Term = in.Term
	app.Detail.Rate = in.Rate
	app.Detail.Frequency = in.Frequency
	app.IsEdited = true
	return nil
}

func (m *repoMock) SoftDelete(_ context.Context, id int64) error {
	app, ok := m.apps[id]
	if !ok {
		return ErrNotFound
	}
	app.IsActive = false
	return nil
}

func (m *repoMock) AppendNote(_ context.Context, applicationID int64, text string, userID *int64) (*Note, error) {
	m.nextNoteID++
	note := Note{ID: m.nextNoteID, LoanApplicationID: applicationID, Note: text, UserID: userID}
	m.notes[applicationID] = append(m.notes[applicationID], note)
	return &note, nil
}

func (m *repoMock) ListNotes(_ context.Context, applicationID int64) ([]Note, error) {
	return append([]Note(nil), m.notes[applicationID]...), nil
}

type customersMock struct {
	known map[int64]bool
}

func (m *customersMock) Exists(_ context.Context, id int64) (bool, error) {
	return m.known[id], nil
}

type risksMock struct {
	risks map[int64]string
}

func (m *risksMock) GetRisk(_ context.Context, id int64) (*CreditRiskEntry, error) {
	name, ok := m.risks[id]
	if !ok {
		return nil, errors.New("credit risk not found")
	}
	return &CreditRiskEntry{ID: id, Name: name}, nil
}

func newTestService(repo *repoMock) *Service {
	svc := NewService(repo, &customersMock{known: map[int64]bool{1: true}}, &risksMock{risks: map[int64]string{7: "Over-indebtedness"}})
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateStartsReceived(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)

	app, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Detail:     DetailInput{Amount: 25000, Term: 24, Rate: 3.2, Frequency: FrequencyBiweekly},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != StatusReceived || !app.IsNew || app.IsAnswered {
		t.Fatalf("unexpected initial state: %+v", app)
	}
}

func TestCreateRejectsInvalidDetail(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)

	cases := []DetailInput{
		{Amount: 0, Term: 12, Rate: 1, Frequency: FrequencyMonthly},
		{Amount: 1000, Term: 0, Rate: 1, Frequency: FrequencyMonthly},
		{Amount: 1000, Term: 12, Rate: -1, Frequency: FrequencyMonthly},
		{Amount: 1000, Term: 12, Rate: 1, Frequency: "yearly"},
	}
	for i, in := range cases {
		_, err := svc.Create(context.Background(), CreateInput{CustomerID: 1, Detail: in})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestCreateUnknownCustomer(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 99,
		Detail:     DetailInput{Amount: 1000, Term: 6, Rate: 1, Frequency: FrequencyWeekly},
	})
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestTransitionApproveSetsFlags(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusAnalyzed)

	app, err := svc.Transition(context.Background(), TransitionInput{ID: 1, Target: StatusApproved})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != StatusApproved || !app.IsApproved || !app.IsAnswered || app.IsNew {
		t.Fatalf("flags out of sync: %+v", app)
	}
	if app.ApprovedAt == nil || app.ChangedStatusAt == nil {
		t.Fatalf("timestamps not set: %+v", app)
	}

	// Re-approving must fail and must not touch approved_at.
	firstApprovedAt := *app.ApprovedAt
	_, err = svc.Transition(context.Background(), TransitionInput{ID: 1, Target: StatusApproved})
	var iterr *InvalidTransitionError
	if !errors.As(err, &iterr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	after, _ := repo.GetByID(context.Background(), 1)
	if !after.ApprovedAt.Equal(firstApprovedAt) {
		t.Fatalf("approved_at changed on failed re-approval")
	}
}

func TestTransitionRejectSetsFlags(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusReceived)

	app, err := svc.Transition(context.Background(), TransitionInput{ID: 1, Target: StatusRejected})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !app.IsRejected || !app.IsAnswered || app.RejectedAt == nil {
		t.Fatalf("flags out of sync: %+v", app)
	}
}

func TestInvalidTransitionLeavesRecordUntouched(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusVerified)
	before, _ := repo.GetByID(context.Background(), 1)

	_, err := svc.Transition(context.Background(), TransitionInput{ID: 1, Target: StatusApproved, Note: "should not appear"})
	var iterr *InvalidTransitionError
	if !errors.As(err, &iterr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	after, _ := repo.GetByID(context.Background(), 1)
	if after.Status != before.Status || after.ChangedStatusAt != nil || after.IsAnswered != before.IsAnswered {
		t.Fatalf("record mutated by failed transition: %+v", after)
	}
	if len(after.Notes) != 0 {
		t.Fatalf("note appended by failed transition")
	}
}

func TestApprovedIsSemiTerminal(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusApproved)

	if _, err := svc.Transition(context.Background(), TransitionInput{ID: 1, Target: StatusVerified}); err == nil {
		t.Fatalf("approved -> verified must fail")
	}
	app, err := svc.Transition(context.Background(), TransitionInput{ID: 1, Target: StatusArchived})
	if err != nil {
		t.Fatalf("approved -> archived must succeed: %v", err)
	}
	if !app.IsArchived || app.ArchivedAt == nil {
		t.Fatalf("archive flags not set: %+v", app)
	}
}

func TestTransitionNotFound(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)

	_, err := svc.Transition(context.Background(), TransitionInput{ID: 42, Target: StatusVerified})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionConflictSurfaced(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusReceived)
	repo.conflictOnApply = true

	_, err := svc.Transition(context.Background(), TransitionInput{ID: 1, Target: StatusVerified})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTransitionWithNoteAppends(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusReceived)
	userID := int64(3)

	app, err := svc.Transition(context.Background(), TransitionInput{ID: 1, Target: StatusVerified, Note: "  documents checked  ", UserID: &userID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(app.Notes) != 1 || app.Notes[0].Note != "documents checked" {
		t.Fatalf("unexpected notes: %+v", app.Notes)
	}
	if app.Notes[0].UserID == nil || *app.Notes[0].UserID != 3 {
		t.Fatalf("note actor not recorded")
	}
}

func TestAddNoteRejectsEmpty(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusReceived)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.AddNote(context.Background(), 1, text, nil)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for %q, got %v", text, err)
		}
	}
	notes, _ := svc.ListNotes(context.Background(), 1)
	if len(notes) != 0 {
		t.Fatalf("note count changed by rejected appends")
	}
}

func TestNotesKeepAppendOrder(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusReceived)

	texts := []string{"Missing income proof", "Income proof received", "Forwarded to analyst"}
	for _, text := range texts {
		if _, err := svc.AddNote(context.Background(), 1, text, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	notes, err := svc.ListNotes(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != len(texts) {
		t.Fatalf("expected %d notes, got %d", len(texts), len(notes))
	}
	for i, text := range texts {
		if notes[i].Note != text {
			t.Fatalf("note %d out of order: %q", i, notes[i].Note)
		}
	}
}

func TestAssociateCreditRiskWritesSystemNote(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusAssigned)

	app, err := svc.AssociateCreditRisk(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(app.Notes) != 1 {
		t.Fatalf("expected one system note, got %d", len(app.Notes))
	}
	want := "[CREDIT_RISK] Associated credit risk: 'Over-indebtedness' (ID: 7)"
	if app.Notes[0].Note != want {
		t.Fatalf("unexpected note %q", app.Notes[0].Note)
	}
}

func TestUpdateDetailMarksEdited(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(repo)
	repo.seed(1, StatusReceived)

	app, err := svc.UpdateDetail(context.Background(), 1, DetailInput{Amount: 80000, Term: 36, Rate: 4, Frequency: FrequencyMonthly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !app.IsEdited || app.Detail.Amount != 80000 {
		t.Fatalf("detail not updated: %+v", app)
	}
}
