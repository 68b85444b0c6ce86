package ws

import (
	"context"
	"encoding/json"
	"time"
)

// StatusEvent is one row of the status-change log the transition executor
// writes alongside every transition.
type StatusEvent struct {
	ID                int64
	LoanApplicationID int64
	FromStatus        string
	ToStatus          string
	OccurredAt        time.Time
}

type EventRepository interface {
	ListEventsSince(ctx context.Context, lastID int64, limit int32) ([]StatusEvent, error)
}

// Notifier polls the status-change log and fans events out to subscribed
// analyst sessions.
type Notifier struct {
	repo         EventRepository
	hub          *Hub
	pollInterval time.Duration
	lastID       int64
}

func NewNotifier(repo EventRepository, hub *Hub, pollInterval time.Duration) *Notifier {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Notifier{repo: repo, hub: hub, pollInterval: pollInterval}
}

func (n *Notifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (n *Notifier) tick(ctx context.Context) error {
	events, err := n.repo.ListEventsSince(ctx, n.lastID, 100)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.ID > n.lastID {
			n.lastID = ev.ID
		}
		payload, _ := json.Marshal(map[string]any{
			"event": "application_status_changed",
			"data": map[string]any{
				"loan_application_id": ev.LoanApplicationID,
				"from_status":         ev.FromStatus,
				"to_status":           ev.ToStatus,
				"occurred_at":         ev.OccurredAt.UTC().Format(time.RFC3339),
			},
		})
		n.hub.Publish(TopicAllApplications, payload)
		n.hub.Publish(ApplicationTopic(ev.LoanApplicationID), payload)
	}
	return nil
}
