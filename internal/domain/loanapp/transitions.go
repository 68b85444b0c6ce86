package loanapp

// transitionTable maps each status to the statuses it may move to. Built once,
// never mutated. archived is terminal; approved and rejected may only be
// archived.
var transitionTable = map[Status][]Status{
	StatusReceived: {StatusVerified, StatusRejected},
	StatusVerified: {StatusAssigned, StatusRejected},
	StatusAssigned: {StatusAnalyzed, StatusRejected},
	StatusAnalyzed: {StatusApproved, StatusRejected},
	StatusApproved: {StatusArchived},
	StatusRejected: {StatusArchived},
	StatusArchived: {},
}

// AllowedNextStates returns the statuses reachable from current. The result
// is a copy; every valid status maps to a slice, possibly empty.
func AllowedNextStates(current Status) []Status {
	next := transitionTable[current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to Status) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
