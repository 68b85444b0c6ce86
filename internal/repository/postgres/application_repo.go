package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibernabel/lamas-backend/internal/domain/loanapp"
)

const applicationColumns = `
  id, customer_id, user_id, status, changed_status_at,
  is_answered, is_approved, is_rejected, is_archived, is_new, is_edited, is_active,
  approved_at, rejected_at, archived_at, created_at, updated_at`

type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*loanapp.Application, error) {
	out := &loanapp.Application{}
	err := row.Scan(
		&out.ID, &out.CustomerID, &out.UserID, &out.Status, &out.ChangedStatusAt,
		&out.IsAnswered, &out.IsApproved, &out.IsRejected, &out.IsArchived, &out.IsNew, &out.IsEdited, &out.IsActive,
		&out.ApprovedAt, &out.RejectedAt, &out.ArchivedAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, in loanapp.CreateInput) (*loanapp.Application, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
INSERT INTO loan_applications (customer_id, user_id, status)
VALUES ($1, $2, 'received')
RETURNING` + applicationColumns
	app, err := scanApplication(tx.QueryRow(ctx, q, in.CustomerID, in.UserID))
	if err != nil {
		return nil, err
	}

	qd := `
INSERT INTO loan_application_details (
  loan_application_id, amount, term, rate, quota, frequency, purpose, customer_comment
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, loan_application_id, amount, term, rate, quota, frequency, purpose, customer_comment, created_at, updated_at
`
	detail := &loanapp.Detail{}
	err = tx.QueryRow(ctx, qd,
		app.ID, in.Detail.Amount, in.Detail.Term, in.Detail.Rate, in.Detail.Quota,
		in.Detail.Frequency, in.Detail.Purpose, in.Detail.CustomerComment,
	).Scan(
		&detail.ID, &detail.LoanApplicationID, &detail.Amount, &detail.Term, &detail.Rate, &detail.Quota,
		&detail.Frequency, &detail.Purpose, &detail.CustomerComment, &detail.CreatedAt, &detail.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	app.Detail = detail
	app.Notes = []loanapp.Note{}
	return app, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*loanapp.Application, error) {
	q := `SELECT` + applicationColumns + ` FROM loan_applications WHERE id = $1`
	app, err := scanApplication(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, loanapp.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	qd := `
SELECT id, loan_application_id, amount, term, rate, quota, frequency, purpose, customer_comment, created_at, updated_at
FROM loan_application_details WHERE loan_application_id = $1
`
	detail := &loanapp.Detail{}
	err = r.pool.QueryRow(ctx, qd, id).Scan(
		&detail.ID, &detail.LoanApplicationID, &detail.Amount, &detail.Term, &detail.Rate, &detail.Quota,
		&detail.Frequency, &detail.Purpose, &detail.CustomerComment, &detail.CreatedAt, &detail.UpdatedAt,
	)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		app.Detail = nil
	case err != nil:
		return nil, err
	default:
		app.Detail = detail
	}

	notes, err := r.ListNotes(ctx, id)
	if err != nil {
		return nil, err
	}
	app.Notes = notes
	return app, nil
}

func (r *ApplicationRepository) List(ctx context.Context, f loanapp.ListFilter) ([]loanapp.ListItem, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	builder := strings.Builder{}
	builder.WriteString(`
SELECT la.id, la.customer_id, la.status, d.amount,
       la.is_answered, la.is_approved, la.is_rejected, la.is_archived, la.is_new, la.is_active,
       la.created_at, la.updated_at
FROM loan_applications la
LEFT JOIN loan_application_details d ON d.loan_application_id = la.id
WHERE 1=1`)

	args := []any{}
	argPos := 1
	if f.CustomerID != nil {
		builder.WriteString(" AND la.customer_id = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, *f.CustomerID)
		argPos++
	}
	if f.Status != "" {
		builder.WriteString(" AND la.status = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, string(f.Status))
		argPos++
	}
	if f.IsActive != nil {
		builder.WriteString(" AND la.is_active = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, *f.IsActive)
		argPos++
	}
	if f.IsApproved != nil {
		builder.WriteString(" AND la.is_approved = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, *f.IsApproved)
		argPos++
	}
	if f.IsRejected != nil {
		builder.WriteString(" AND la.is_rejected = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, *f.IsRejected)
		argPos++
	}
	builder.WriteString(" ORDER BY la.created_at DESC")
	builder.WriteString(" LIMIT $")
	builder.WriteString(strconv.Itoa(argPos))
	args = append(args, f.Limit)
	argPos++
	builder.WriteString(" OFFSET $")
	builder.WriteString(strconv.Itoa(argPos))
	args = append(args, f.Offset)

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loanapp.ListItem, 0)
	for rows.Next() {
		var item loanapp.ListItem
		if err := rows.Scan(
			&item.ID, &item.CustomerID, &item.Status, &item.Amount,
			&item.IsAnswered, &item.IsApproved, &item.IsRejected, &item.IsArchived, &item.IsNew, &item.IsActive,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyTransition commits the status change, the optional note and the status
// event in one transaction. The UPDATE is a compare-and-swap on the status
// the caller validated against; losing the race yields ErrConflict and
// nothing is written.
func (r *ApplicationRepository) ApplyTransition(ctx context.Context, in loanapp.ApplyTransitionInput) (*loanapp.Application, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
UPDATE loan_applications
SET status = $3,
    changed_status_at = $4,
    is_new = false,
    is_answered = is_answered OR $5,
    is_approved = is_approved OR $6,
    is_rejected = is_rejected OR $7,
    is_archived = is_archived OR $8,
    approved_at = COALESCE(approved_at, $9),
    rejected_at = COALESCE(rejected_at, $10),
    archived_at = COALESCE(archived_at, $11),
    updated_at = NOW()
WHERE id = $1 AND status = $2
`
	tag, err := tx.Exec(ctx, q,
		in.ID, string(in.Patch.From), string(in.Patch.To), in.Patch.ChangedStatusAt,
		in.Patch.SetAnswered, in.Patch.SetApproved, in.Patch.SetRejected, in.Patch.SetArchived,
		in.Patch.ApprovedAt, in.Patch.RejectedAt, in.Patch.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loan_applications WHERE id = $1)`, in.ID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, loanapp.ErrNotFound
		}
		return nil, loanapp.ErrConflict
	}

	if in.Note != "" {
		qn := `INSERT INTO loan_application_notes (loan_application_id, note, user_id) VALUES ($1, $2, $3)`
		if _, err := tx.Exec(ctx, qn, in.ID, in.Note, in.UserID); err != nil {
			return nil, err
		}
	}

	qe := `
INSERT INTO application_status_events (loan_application_id, from_status, to_status, occurred_at)
VALUES ($1, $2, $3, $4)
`
	if _, err := tx.Exec(ctx, qe, in.ID, string(in.Patch.From), string(in.Patch.To), in.Patch.ChangedStatusAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, in.ID)
}

func (r *ApplicationRepository) UpdateDetail(ctx context.Context, id int64, in loanapp.DetailInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
INSERT INTO loan_application_details (
  loan_application_id, amount, term, rate, quota, frequency, purpose, customer_comment
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (loan_application_id)
DO UPDATE SET
  amount = EXCLUDED.amount,
  term = EXCLUDED.term,
  rate = EXCLUDED.rate,
  quota = EXCLUDED.quota,
  frequency = EXCLUDED.frequency,
  purpose = EXCLUDED.purpose,
  customer_comment = EXCLUDED.customer_comment,
  updated_at = NOW()
`
	if _, err := tx.Exec(ctx, q, id, in.Amount, in.Term, in.Rate, in.Quota, in.Frequency, in.Purpose, in.CustomerComment); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE loan_applications SET is_edited = true, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ApplicationRepository) SoftDelete(ctx context.Context, id int64) error {
	q := `UPDATE loan_applications SET is_active = false, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *ApplicationRepository) AppendNote(ctx context.Context, applicationID int64, text string, userID *int64) (*loanapp.Note, error) {
	q := `
INSERT INTO loan_application_notes (loan_application_id, note, user_id)
VALUES ($1, $2, $3)
RETURNING id, loan_application_id, note, user_id, created_at
`
	note := &loanapp.Note{}
	err := r.pool.QueryRow(ctx, q, applicationID, text, userID).
		Scan(&note.ID, &note.LoanApplicationID, &note.Note, &note.UserID, &note.CreatedAt)
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (r *ApplicationRepository) ListNotes(ctx context.Context, applicationID int64) ([]loanapp.Note, error) {
	q := `
SELECT id, loan_application_id, note, user_id, created_at
FROM loan_application_notes
WHERE loan_application_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loanapp.Note, 0)
	for rows.Next() {
		var note loanapp.Note
		if err := rows.Scan(&note.ID, &note.LoanApplicationID, &note.Note, &note.UserID, &note.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListArchivable returns answered applications whose decision is older than
// cutoff and that were not archived yet. Used by the archival worker.
func (r *ApplicationRepository) ListArchivable(ctx context.Context, cutoff int32, limit int32) ([]loanapp.ListItem, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
SELECT la.id, la.customer_id, la.status, d.amount,
       la.is_answered, la.is_approved, la.is_rejected, la.is_archived, la.is_new, la.is_active,
       la.created_at, la.updated_at
FROM loan_applications la
LEFT JOIN loan_application_details d ON d.loan_application_id = la.id
WHERE la.status IN ('approved', 'rejected')
  AND la.is_archived = false
  AND COALESCE(la.approved_at, la.rejected_at) < NOW() - make_interval(days => $1)
ORDER BY la.changed_status_at ASC
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loanapp.ListItem, 0)
	for rows.Next() {
		var item loanapp.ListItem
		if err := rows.Scan(
			&item.ID, &item.CustomerID, &item.Status, &item.Amount,
			&item.IsAnswered, &item.IsApproved, &item.IsRejected, &item.IsArchived, &item.IsNew, &item.IsActive,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
