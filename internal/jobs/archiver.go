package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/ibernabel/lamas-backend/internal/domain/loanapp"
)

type ApplicationSource interface {
	// ListArchivable returns answered, not yet archived applications whose
	// decision is older than olderThanDays.
	ListArchivable(ctx context.Context, olderThanDays int32, limit int32) ([]loanapp.ListItem, error)
}

type Transitioner interface {
	Transition(ctx context.Context, in loanapp.TransitionInput) (*loanapp.Application, error)
}

// Archiver closes out decided applications: approved and rejected records
// older than the retention window are moved to archived through the regular
// transition path, so the audit ledger and status events stay complete.
type Archiver struct {
	source        ApplicationSource
	workflow      Transitioner
	olderThanDays int32
}

func NewArchiver(source ApplicationSource, workflow Transitioner, olderThanDays int32) *Archiver {
	if olderThanDays <= 0 {
		olderThanDays = 30
	}
	return &Archiver{source: source, workflow: workflow, olderThanDays: olderThanDays}
}

// RunOnce archives at most batchSize applications. A record that was archived
// or otherwise moved by someone else between listing and transition is
// skipped, not an error.
func (a *Archiver) RunOnce(ctx context.Context, batchSize int32) (int, error) {
	items, err := a.source.ListArchivable(ctx, a.olderThanDays, batchSize)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, item := range items {
		note := fmt.Sprintf("[AUTO_ARCHIVE] Archived after %d days in status '%s'", a.olderThanDays, item.Status)
		_, err := a.workflow.Transition(ctx, loanapp.TransitionInput{ID: item.ID, Target: loanapp.StatusArchived, Note: note})
		if err != nil {
			var iterr *loanapp.InvalidTransitionError
			if errors.Is(err, loanapp.ErrConflict) || errors.Is(err, loanapp.ErrNotFound) || errors.As(err, &iterr) {
				continue
			}
			return archived, err
		}
		archived++
	}
	return archived, nil
}
