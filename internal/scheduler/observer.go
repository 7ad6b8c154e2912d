package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/dokzlo13/robotd/internal/actions"
)

// EndReason says why an action left Running.
type EndReason int

const (
	EndFinished EndReason = iota
	EndInterrupted
	EndFaulted
)

// String returns a human-readable name for the reason.
func (r EndReason) String() string {
	switch r {
	case EndFinished:
		return "finished"
	case EndInterrupted:
		return "interrupted"
	case EndFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Run identifies one activation of an action.
type Run struct {
	ID        uuid.UUID
	Action    actions.Action
	Period    uint64
	StartedAt time.Time
}

// Observer receives lifecycle notifications synchronously from RunPeriod.
// Implementations must not block and must not call back into the scheduler.
type Observer interface {
	ActionStarted(run Run)
	ActionEnded(run Run, reason EndReason, period uint64, err error)
}
