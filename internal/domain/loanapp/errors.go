package loanapp

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("loan application not found")

	ErrCustomerNotFound = errors.New("customer not found")

	// ErrConflict means a transition raced against another writer and lost:
	// the row no longer carries the status the transition was validated
	// against. Callers should refetch and re-evaluate.
	ErrConflict = errors.New("loan application was modified concurrently")
)

// InvalidTransitionError reports a status change that the transition table
// does not permit. The message names the violated rule so analysts can see
// why the action was rejected.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	allowed := AllowedNextStates(e.From)
	if len(allowed) == 0 {
		return fmt.Sprintf("cannot transition from %q: terminal state", e.From)
	}
	return fmt.Sprintf("cannot transition from %q to %q, allowed: %v", e.From, e.To, allowed)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
