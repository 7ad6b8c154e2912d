// Package scheduler arbitrates exclusive resource claims between actions and
// drives them one period at a time.
//
// The scheduler is single-threaded and cooperative: RunPeriod must be called
// from one goroutine, and no callback it invokes may block. It is not safe
// for concurrent use; readers on other goroutines should use a Snapshot
// published by the caller.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/resource"
)

// Periodic is implemented by anything that wants a hook once per period,
// called at the start of the execution pass before any action ticks.
type Periodic interface {
	Periodic() error
}

type entry struct {
	action actions.Action
	run    Run
}

// Scheduler owns the set of running actions and the resource claim table.
// Actions are tracked by identity, so they must be comparable (pointer types).
type Scheduler struct {
	resources []*resource.Resource
	known     map[*resource.Resource]struct{}
	defaults  map[*resource.Resource]actions.Action
	periodics []Periodic
	observers []Observer

	running  []*entry
	byAction map[actions.Action]*entry
	claims   map[*resource.Resource]*entry

	pendingStart  []actions.Action
	pendingCancel []actions.Action

	period uint64
	now    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// WithClock overrides the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		known:    make(map[*resource.Resource]struct{}),
		defaults: make(map[*resource.Resource]actions.Action),
		byAction: make(map[actions.Action]*entry),
		claims:   make(map[*resource.Resource]*entry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddResource registers a resource. Registration order is the order of the
// default pass. A resource with a periodic hook gets it called every period.
func (s *Scheduler) AddResource(r *resource.Resource) error {
	if _, ok := s.known[r]; ok {
		return fmt.Errorf("resource %q already registered", r.Name())
	}
	s.known[r] = struct{}{}
	s.resources = append(s.resources, r)
	if r.HasPeriodic() {
		s.periodics = append(s.periodics, r)
	}
	return nil
}

// AddPeriodic registers a periodic hook.
func (s *Scheduler) AddPeriodic(p Periodic) {
	s.periodics = append(s.periodics, p)
}

// SetDefault makes a the default action of r. Passing nil clears it.
// a must require r, and every resource a requires must be registered.
func (s *Scheduler) SetDefault(r *resource.Resource, a actions.Action) error {
	if _, ok := s.known[r]; !ok {
		return fmt.Errorf("%w: %q", ErrUnregisteredResource, r.Name())
	}
	if a == nil {
		delete(s.defaults, r)
		return nil
	}
	if !requires(a, r) {
		return fmt.Errorf("%w: %q default %q", ErrDefaultNotRequired, r.Name(), a.Name())
	}
	if err := s.Validate(a); err != nil {
		return err
	}
	s.defaults[r] = a
	return nil
}

// Default returns the default action of r, or nil.
func (s *Scheduler) Default(r *resource.Resource) actions.Action {
	return s.defaults[r]
}

// Validate checks that every resource a (and any of its children) requires is registered.
func (s *Scheduler) Validate(a actions.Action) error {
	for _, r := range a.Requirements() {
		if _, ok := s.known[r]; !ok {
			return fmt.Errorf("%w: %q required by %q", ErrUnregisteredResource, r.Name(), a.Name())
		}
	}
	if p, ok := a.(actions.Parent); ok {
		for _, child := range p.Children() {
			if err := s.Validate(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// RequestStart asks for a to run from this period on. Repeated requests in
// one period collapse into one; a request for a running action is a no-op.
func (s *Scheduler) RequestStart(a actions.Action) {
	for _, p := range s.pendingStart {
		if p == a {
			return
		}
	}
	s.pendingStart = append(s.pendingStart, a)
}

// RequestCancel asks for a to be stopped this period if it is running.
func (s *Scheduler) RequestCancel(a actions.Action) {
	for _, p := range s.pendingCancel {
		if p == a {
			return
		}
	}
	s.pendingCancel = append(s.pendingCancel, a)
}

// RunPeriod performs one arbitration and execution pass:
// cancellations, then start requests (evicting incumbents), then one tick of
// every running action, then default actions for idle resources.
// Faults are joined into the returned error; a faulted action is always
// stopped and its claims released.
func (s *Scheduler) RunPeriod() error {
	var errs []error

	cancels, starts := s.pendingCancel, s.pendingStart
	s.pendingCancel, s.pendingStart = nil, nil

	for _, a := range cancels {
		if e, ok := s.byAction[a]; ok {
			errs = append(errs, s.end(e, EndInterrupted, nil))
		}
	}

	for _, a := range starts {
		errs = append(errs, s.start(a))
	}

	errs = append(errs, s.execute()...)

	for _, r := range s.resources {
		if _, claimed := s.claims[r]; claimed {
			continue
		}
		d, ok := s.defaults[r]
		if !ok || s.IsRunning(d) {
			continue
		}
		errs = append(errs, s.start(d))
	}

	s.period++
	return errors.Join(errs...)
}

// CancelAll stops every running action as interrupted and drops pending requests.
func (s *Scheduler) CancelAll() error {
	s.pendingCancel, s.pendingStart = nil, nil

	var errs []error
	for len(s.running) > 0 {
		errs = append(errs, s.end(s.running[0], EndInterrupted, nil))
	}
	return errors.Join(errs...)
}

// IsRunning reports whether a is currently running.
func (s *Scheduler) IsRunning(a actions.Action) bool {
	_, ok := s.byAction[a]
	return ok
}

// Owner returns the action holding the claim on r, or nil.
func (s *Scheduler) Owner(r *resource.Resource) actions.Action {
	if e, ok := s.claims[r]; ok {
		return e.action
	}
	return nil
}

// Running returns the running actions in start order.
func (s *Scheduler) Running() []actions.Action {
	out := make([]actions.Action, len(s.running))
	for i, e := range s.running {
		out[i] = e.action
	}
	return out
}

// Period returns the number of completed passes.
func (s *Scheduler) Period() uint64 {
	return s.period
}

// Resources returns the registered resources in registration order.
func (s *Scheduler) Resources() []*resource.Resource {
	return s.resources
}

func (s *Scheduler) execute() []error {
	var errs []error

	for _, p := range s.periodics {
		if err := safeCall(p.Periodic); err != nil {
			errs = append(errs, &FaultError{Name: periodicName(p), Phase: PhasePeriodic, Err: err})
		}
	}

	ticking := make([]*entry, len(s.running))
	copy(ticking, s.running)

	for _, e := range ticking {
		if s.byAction[e.action] != e {
			continue
		}
		done, err := safeTick(e.action.Tick)
		if err != nil {
			fault := &FaultError{Name: e.action.Name(), RunID: e.run.ID, Phase: PhaseTick, Err: err}
			errs = append(errs, fault, s.end(e, EndFaulted, fault))
			continue
		}
		if done {
			errs = append(errs, s.end(e, EndFinished, nil))
		}
	}
	return errs
}

// start claims every resource a requires, evicting their current owners,
// and then calls a.Start.
func (s *Scheduler) start(a actions.Action) error {
	if s.IsRunning(a) {
		return nil
	}

	var errs []error
	for _, r := range a.Requirements() {
		if owner, ok := s.claims[r]; ok && owner.action != a {
			log.Debug().
				Str("action", owner.action.Name()).
				Str("by", a.Name()).
				Str("resource", r.Name()).
				Msg("Evicting action")
			errs = append(errs, s.end(owner, EndInterrupted, nil))
		}
	}

	e := &entry{
		action: a,
		run: Run{
			ID:        uuid.New(),
			Action:    a,
			Period:    s.period,
			StartedAt: s.now(),
		},
	}
	for _, r := range a.Requirements() {
		s.claims[r] = e
	}
	s.running = append(s.running, e)
	s.byAction[a] = e

	log.Debug().
		Str("action", a.Name()).
		Str("run_id", e.run.ID.String()).
		Strs("requires", resource.Names(a.Requirements())).
		Uint64("period", s.period).
		Msg("Action started")

	for _, o := range s.observers {
		o.ActionStarted(e.run)
	}

	if err := safeCall(a.Start); err != nil {
		fault := &FaultError{Name: a.Name(), RunID: e.run.ID, Phase: PhaseStart, Err: err}
		errs = append(errs, fault, s.end(e, EndFaulted, fault))
	}

	return errors.Join(errs...)
}

// end calls Stop on e's action and releases everything it holds.
// Release happens even when Stop fails or panics.
func (s *Scheduler) end(e *entry, reason EndReason, cause error) error {
	interrupted := reason != EndFinished
	stopErr := safeCall(func() error { return e.action.Stop(interrupted) })

	s.release(e)

	var fault error
	if stopErr != nil {
		fault = &FaultError{Name: e.action.Name(), RunID: e.run.ID, Phase: PhaseStop, Err: stopErr}
		if cause == nil {
			cause = fault
			reason = EndFaulted
		}
	}

	logEvent := log.Debug()
	if reason == EndFaulted {
		logEvent = log.Error().AnErr("cause", cause)
	}
	logEvent.
		Str("action", e.action.Name()).
		Str("run_id", e.run.ID.String()).
		Str("reason", reason.String()).
		Uint64("period", s.period).
		Msg("Action ended")

	for _, o := range s.observers {
		o.ActionEnded(e.run, reason, s.period, cause)
	}

	return fault
}

func (s *Scheduler) release(e *entry) {
	for r, owner := range s.claims {
		if owner == e {
			delete(s.claims, r)
		}
	}
	delete(s.byAction, e.action)
	for i, r := range s.running {
		if r == e {
			s.running = append(s.running[:i], s.running[i+1:]...)
			break
		}
	}
}

func requires(a actions.Action, r *resource.Resource) bool {
	for _, req := range a.Requirements() {
		if req == r {
			return true
		}
	}
	return false
}

func periodicName(p Periodic) string {
	if n, ok := p.(fmt.Stringer); ok {
		return n.String()
	}
	return fmt.Sprintf("%T", p)
}
