// Package robot holds the assembled registration table: resources, their
// default actions, input bindings and the autonomous action, all validated
// before the control loop starts.
package robot

import (
	"fmt"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/hal"
	"github.com/dokzlo13/robotd/internal/resource"
	"github.com/dokzlo13/robotd/internal/scheduler"
	"github.com/dokzlo13/robotd/internal/trigger"
)

// Robot is the validated registration table the control loop runs.
type Robot struct {
	sched      *scheduler.Scheduler
	controller hal.Controller
	outputs    *hal.Outputs

	resources  []*resource.Resource
	byName     map[string]*resource.Resource
	bindings   []*trigger.Binding
	autonomous actions.Action
}

// New creates an empty robot around a scheduler.
func New(sched *scheduler.Scheduler, controller hal.Controller, outputs *hal.Outputs) *Robot {
	return &Robot{
		sched:      sched,
		controller: controller,
		outputs:    outputs,
		byName:     make(map[string]*resource.Resource),
	}
}

// AddResource registers a resource with the scheduler.
func (r *Robot) AddResource(res *resource.Resource) error {
	if _, exists := r.byName[res.Name()]; exists {
		return fmt.Errorf("resource %q already registered", res.Name())
	}
	if err := r.sched.AddResource(res); err != nil {
		return err
	}
	r.byName[res.Name()] = res
	r.resources = append(r.resources, res)
	return nil
}

// Resource looks up a registered resource by name.
func (r *Robot) Resource(name string) (*resource.Resource, bool) {
	res, ok := r.byName[name]
	return res, ok
}

// Resources returns the registered resources in registration order.
func (r *Robot) Resources() []*resource.Resource {
	return r.resources
}

// OnPeriodic installs a periodic hook on the named resource.
func (r *Robot) OnPeriodic(name string, fn func() error) error {
	res, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", actions.ErrUnknownResource, name)
	}
	if !res.HasPeriodic() {
		r.sched.AddPeriodic(res)
	}
	res.OnPeriodic(fn)
	return nil
}

// SetDefault makes a the default action of the named resource.
func (r *Robot) SetDefault(name string, a actions.Action) error {
	res, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", actions.ErrUnknownResource, name)
	}
	if err := r.Validate(a); err != nil {
		return err
	}
	return r.sched.SetDefault(res, a)
}

// Bind adds an input binding. Bindings are polled in the order they were added.
func (r *Robot) Bind(b *trigger.Binding) error {
	if err := r.Validate(b.Action()); err != nil {
		return fmt.Errorf("binding %s: %w", b, err)
	}
	r.bindings = append(r.bindings, b)
	return nil
}

// Bindings returns the bindings in registration order.
func (r *Robot) Bindings() []*trigger.Binding {
	return r.bindings
}

// SetAutonomous designates the action run in autonomous mode.
func (r *Robot) SetAutonomous(a actions.Action) error {
	if err := r.Validate(a); err != nil {
		return err
	}
	r.autonomous = a
	return nil
}

// Autonomous returns the autonomous action, or nil.
func (r *Robot) Autonomous() actions.Action {
	return r.autonomous
}

// Validate rejects actions that contain themselves or require unregistered resources.
func (r *Robot) Validate(a actions.Action) error {
	if a == nil {
		return fmt.Errorf("%w: nil", actions.ErrUnknownAction)
	}
	if err := actions.CheckCycles(a); err != nil {
		return err
	}
	return r.sched.Validate(a)
}

// Scheduler returns the scheduler.
func (r *Robot) Scheduler() *scheduler.Scheduler {
	return r.sched
}

// Controller returns the driver input device.
func (r *Robot) Controller() hal.Controller {
	return r.controller
}

// Outputs returns the output table.
func (r *Robot) Outputs() *hal.Outputs {
	return r.outputs
}
