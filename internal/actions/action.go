// Package actions provides schedulable units of control logic and the
// catalog of action kinds that configuration can instantiate.
package actions

import (
	"github.com/dokzlo13/robotd/internal/resource"
)

// Action is a unit of control logic with an explicit lifecycle.
//
// The scheduler calls Start exactly once when the action enters Running,
// Tick exactly once per period while it is Running, and Stop exactly once
// when it leaves Running. interrupted is true when the action was cancelled
// or evicted rather than finishing on its own. None of the callbacks may block.
type Action interface {
	Name() string
	Requirements() []*resource.Resource
	Start() error
	Tick() (done bool, err error)
	Stop(interrupted bool) error
}

// Parent is implemented by actions that own child actions.
// Configuration validation walks it to reject cycles.
type Parent interface {
	Children() []Action
}

// Base carries the name and requirement set shared by most actions.
// Embed it and implement the lifecycle methods.
type Base struct {
	name     string
	requires []*resource.Resource
}

// NewBase creates a Base. Duplicate resources are dropped.
func NewBase(name string, requires ...*resource.Resource) Base {
	return Base{name: name, requires: resource.Union(requires)}
}

func (b *Base) Name() string                       { return b.name }
func (b *Base) Requirements() []*resource.Resource { return b.requires }

// AddRequirements extends the requirement set.
func (b *Base) AddRequirements(rs ...*resource.Resource) {
	b.requires = resource.Union(b.requires, rs)
}

// Func is an Action assembled from optional callbacks.
// A nil OnTick never finishes; nil OnStart/OnStop are no-ops.
type Func struct {
	Base
	OnStart func() error
	OnTick  func() (bool, error)
	OnStop  func(interrupted bool) error
}

// NewFunc creates a callback-driven action.
func NewFunc(name string, requires ...*resource.Resource) *Func {
	return &Func{Base: NewBase(name, requires...)}
}

func (f *Func) Start() error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart()
}

func (f *Func) Tick() (bool, error) {
	if f.OnTick == nil {
		return false, nil
	}
	return f.OnTick()
}

func (f *Func) Stop(interrupted bool) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(interrupted)
}
