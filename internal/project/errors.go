package project

import "fmt"

// PreconditionError means an event arrived without the state it depends on.
type PreconditionError struct {
	Event   string
	StakeID string
	Note    string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s for stake %s: %s", e.Event, e.StakeID, e.Note)
}

// RedundantEventError means an event would re-apply effects already recorded.
type RedundantEventError struct {
	Event   string
	StakeID string
	Reason  string
}

func (e *RedundantEventError) Error() string {
	return fmt.Sprintf("redundant %s for stake %s: %s", e.Event, e.StakeID, e.Reason)
}
