package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibernabel/lamas-backend/internal/ws"
)

// StatusEventRepository reads the status-change events the transition
// executor writes. The events feed the websocket notifier.
type StatusEventRepository struct {
	pool *pgxpool.Pool
}

func NewStatusEventRepository(pool *pgxpool.Pool) *StatusEventRepository {
	return &StatusEventRepository{pool: pool}
}

func (r *StatusEventRepository) ListEventsSince(ctx context.Context, lastID int64, limit int32) ([]ws.StatusEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT id, loan_application_id, from_status, to_status, occurred_at
FROM application_status_events
WHERE id > $1
ORDER BY id ASC
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ws.StatusEvent, 0)
	for rows.Next() {
		var ev ws.StatusEvent
		if err := rows.Scan(&ev.ID, &ev.LoanApplicationID, &ev.FromStatus, &ev.ToStatus, &ev.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
