package scheduler

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDefaultNotRequired is returned when a default action does not require its resource.
var ErrDefaultNotRequired = errors.New("default action does not require its resource")

// ErrUnregisteredResource is returned when an action requires a resource the scheduler does not know.
var ErrUnregisteredResource = errors.New("resource not registered")

// Phase names the callback that faulted.
type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseTick     Phase = "tick"
	PhaseStop     Phase = "stop"
	PhasePeriodic Phase = "periodic"
)

// FaultError reports a failed action or periodic callback.
// RunPeriod joins every fault of the pass with errors.Join.
type FaultError struct {
	Name  string
	RunID uuid.UUID
	Phase Phase
	Err   error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Name, e.Phase, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

// Faults extracts every FaultError from an error returned by RunPeriod.
func Faults(err error) []*FaultError {
	if err == nil {
		return nil
	}
	var out []*FaultError
	var walk func(error)
	walk = func(err error) {
		if fe, ok := err.(*FaultError); ok {
			out = append(out, fe)
			return
		}
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := e.Unwrap(); inner != nil {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

// safeCall runs fn, converting a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// safeTick runs tick, converting a panic into an error.
func safeTick(tick func() (bool, error)) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			done, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	return tick()
}
