// Package actionstest provides a scripted action and a lifecycle trace for tests.
package actionstest

import (
	"fmt"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/resource"
)

// Trace records lifecycle calls as "name:event" strings, optionally
// prefixed with the current period.
type Trace struct {
	Period     int
	WithPeriod bool
	Events     []string
}

func (t *Trace) add(name, event string) {
	if t == nil {
		return
	}
	if t.WithPeriod {
		t.Events = append(t.Events, fmt.Sprintf("%d %s:%s", t.Period, name, event))
		return
	}
	t.Events = append(t.Events, name+":"+event)
}

// Reset clears the recorded events.
func (t *Trace) Reset() {
	t.Events = nil
}

// Action is a scripted action. FinishAfter = 0 never finishes.
type Action struct {
	actions.Base
	Trace       *Trace
	FinishAfter int

	StartErr  error
	TickErr   error
	StopErr   error
	TickPanic any

	Starts int
	Ticks  int
	Stops  int
	// LastInterrupted is the argument of the most recent Stop.
	LastInterrupted bool
}

// New creates a scripted action.
func New(tr *Trace, name string, finishAfter int, requires ...*resource.Resource) *Action {
	return &Action{
		Base:        actions.NewBase(name, requires...),
		Trace:       tr,
		FinishAfter: finishAfter,
	}
}

func (a *Action) Start() error {
	a.Starts++
	a.Ticks = 0
	a.Trace.add(a.Name(), "start")
	return a.StartErr
}

func (a *Action) Tick() (bool, error) {
	a.Trace.add(a.Name(), "tick")
	if a.TickPanic != nil {
		panic(a.TickPanic)
	}
	if a.TickErr != nil {
		return false, a.TickErr
	}
	a.Ticks++
	return a.FinishAfter > 0 && a.Ticks >= a.FinishAfter, nil
}

func (a *Action) Stop(interrupted bool) error {
	a.Stops++
	a.LastInterrupted = interrupted
	if interrupted {
		a.Trace.add(a.Name(), "stop(interrupted)")
	} else {
		a.Trace.add(a.Name(), "stop")
	}
	return a.StopErr
}
