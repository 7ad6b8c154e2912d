// Package trigger turns input levels into scheduler start and cancel requests.
package trigger

import (
	"fmt"

	"github.com/dokzlo13/robotd/internal/actions"
)

// Mode selects how a binding reacts to its source.
type Mode int

const (
	// OnPress requests a start on the rising edge only.
	OnPress Mode = iota
	// WhileHeld requests a start every period the level is true and a cancel
	// on the falling edge.
	WhileHeld
)

// String returns the config name of the mode.
func (m Mode) String() string {
	switch m {
	case OnPress:
		return "on_press"
	case WhileHeld:
		return "while_held"
	default:
		return "unknown"
	}
}

// ParseMode parses a config mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "on_press":
		return OnPress, nil
	case "while_held":
		return WhileHeld, nil
	default:
		return 0, fmt.Errorf("unknown binding mode %q", s)
	}
}

// Requester receives start and cancel requests. *scheduler.Scheduler implements it.
type Requester interface {
	RequestStart(a actions.Action)
	RequestCancel(a actions.Action)
}

// Binding wires one input source to one action.
// Its only state across periods is the previous sampled level.
type Binding struct {
	source Source
	mode   Mode
	action actions.Action
	prev   bool
}

// New creates a binding. The previous level starts out false, so a source
// that is already true on the first poll counts as a rising edge.
func New(source Source, mode Mode, action actions.Action) *Binding {
	return &Binding{source: source, mode: mode, action: action}
}

// Action returns the bound action.
func (b *Binding) Action() actions.Action { return b.action }

// Mode returns the binding mode.
func (b *Binding) Mode() Mode { return b.mode }

// Source returns the input source.
func (b *Binding) Source() Source { return b.source }

// Poll samples the source once and issues requests to r.
func (b *Binding) Poll(r Requester) {
	cur := b.source.Level()

	switch b.mode {
	case OnPress:
		if cur && !b.prev {
			r.RequestStart(b.action)
		}
	case WhileHeld:
		if cur {
			r.RequestStart(b.action)
		} else if b.prev {
			r.RequestCancel(b.action)
		}
	}

	b.prev = cur
}

// Release forgets the previous level. A while_held binding whose level was
// true requests a cancel first, since no falling edge will be polled for it.
func (b *Binding) Release(r Requester) {
	if b.mode == WhileHeld && b.prev {
		r.RequestCancel(b.action)
	}
	b.prev = false
}

// String describes the binding for logs.
func (b *Binding) String() string {
	return fmt.Sprintf("%s %s -> %s", b.source, b.mode, b.action.Name())
}
