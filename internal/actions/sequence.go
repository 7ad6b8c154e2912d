package actions

import (
	"fmt"

	"github.com/dokzlo13/robotd/internal/resource"
)

// Sequence runs child actions one at a time, in order, each to completion.
//
// Its requirement set is the union of every child's requirements so the
// scheduler can resolve conflicts up front, even though only the active
// child is doing anything at a given instant.
type Sequence struct {
	Base
	children []Action
	cursor   int
	active   bool
}

// NewSequence creates a composite action over children.
func NewSequence(name string, children ...Action) *Sequence {
	reqs := make([][]*resource.Resource, len(children))
	for i, child := range children {
		reqs[i] = child.Requirements()
	}
	return &Sequence{
		Base:     NewBase(name, resource.Union(reqs...)...),
		children: children,
	}
}

// Children returns the child actions in order.
func (s *Sequence) Children() []Action {
	return s.children
}

// Current returns the active child, or nil when none is running.
func (s *Sequence) Current() Action {
	if !s.active {
		return nil
	}
	return s.children[s.cursor]
}

// Start resets the cursor and starts the first child.
func (s *Sequence) Start() error {
	s.cursor = 0
	s.active = false
	if len(s.children) == 0 {
		return nil
	}
	return s.startCurrent()
}

// Tick ticks the active child and advances when it finishes.
// The next child is started in the same period but first ticked in the next one.
func (s *Sequence) Tick() (bool, error) {
	if !s.active {
		return true, nil
	}

	child := s.children[s.cursor]
	done, err := child.Tick()
	if err != nil {
		return false, fmt.Errorf("step %d (%s): %w", s.cursor, child.Name(), err)
	}
	if !done {
		return false, nil
	}

	s.active = false
	if err := child.Stop(false); err != nil {
		return false, fmt.Errorf("step %d (%s) stop: %w", s.cursor, child.Name(), err)
	}

	s.cursor++
	if s.cursor >= len(s.children) {
		return true, nil
	}
	if err := s.startCurrent(); err != nil {
		return false, err
	}
	return false, nil
}

// Stop stops the active child, if any, passing interrupted through.
func (s *Sequence) Stop(interrupted bool) error {
	if !s.active {
		return nil
	}
	s.active = false

	child := s.children[s.cursor]
	if err := child.Stop(interrupted); err != nil {
		return fmt.Errorf("step %d (%s) stop: %w", s.cursor, child.Name(), err)
	}
	return nil
}

func (s *Sequence) startCurrent() error {
	child := s.children[s.cursor]
	// A child that fails to start still counts as entered, so Stop reaches it.
	s.active = true
	if err := child.Start(); err != nil {
		return fmt.Errorf("step %d (%s) start: %w", s.cursor, child.Name(), err)
	}
	return nil
}
