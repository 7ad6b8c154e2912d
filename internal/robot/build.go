package robot

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/config"
	"github.com/dokzlo13/robotd/internal/hal"
	"github.com/dokzlo13/robotd/internal/resource"
	"github.com/dokzlo13/robotd/internal/scheduler"
	"github.com/dokzlo13/robotd/internal/trigger"
)

// Build assembles a Robot from the declarative table.
//
// Every role an action name fills (a default slot, each binding, the
// autonomous slot, each step of a sequence) gets its own instance, so no
// mutable action state is shared between roles.
func Build(cfg config.RobotConfig, kinds *actions.Registry, sched *scheduler.Scheduler, controller hal.Controller) (*Robot, error) {
	outputs := hal.NewOutputs()
	r := New(sched, controller, outputs)

	for _, rc := range cfg.Resources {
		if rc.Name == "" || strings.Contains(rc.Name, ".") {
			return nil, fmt.Errorf("invalid resource name %q", rc.Name)
		}
		if err := r.AddResource(resource.New(rc.Name)); err != nil {
			return nil, err
		}
		for _, oc := range rc.Outputs {
			if err := outputs.Add(hal.NewSimOutput(rc.Name+"."+oc.Name, oc.Inverted)); err != nil {
				return nil, err
			}
		}
	}

	b := &builder{
		kinds: kinds,
		specs: make(map[string]actions.Spec, len(cfg.Actions)),
	}
	for _, spec := range cfg.Actions {
		if spec.Name == "" {
			return nil, fmt.Errorf("action with kind %q has no name", spec.Kind)
		}
		if _, exists := b.specs[spec.Name]; exists {
			return nil, fmt.Errorf("action %q defined twice", spec.Name)
		}
		b.specs[spec.Name] = spec
	}
	b.ctx = actions.NewContext(controller, outputs, r.Resources(), b.resolve)

	// Build every definition once so broken ones fail even if nothing references them.
	for _, spec := range cfg.Actions {
		if _, err := b.instantiate(spec.Name); err != nil {
			return nil, err
		}
	}

	for _, rc := range cfg.Resources {
		if rc.Default == "" {
			continue
		}
		a, err := b.instantiate(rc.Default)
		if err != nil {
			return nil, fmt.Errorf("resource %q default: %w", rc.Name, err)
		}
		if err := r.SetDefault(rc.Name, a); err != nil {
			return nil, err
		}
	}

	for i, bc := range cfg.Bindings {
		source, err := trigger.ParseSource(controller, bc.Input)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		mode, err := trigger.ParseMode(bc.Mode)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		a, err := b.instantiate(bc.Action)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		if err := r.Bind(trigger.New(source, mode, a)); err != nil {
			return nil, err
		}
	}

	if cfg.Autonomous != "" {
		a, err := b.instantiate(cfg.Autonomous)
		if err != nil {
			return nil, fmt.Errorf("autonomous: %w", err)
		}
		if err := r.SetAutonomous(a); err != nil {
			return nil, err
		}
	}

	log.Debug().
		Int("resources", len(r.Resources())).
		Int("actions", len(cfg.Actions)).
		Int("bindings", len(r.Bindings())).
		Bool("autonomous", r.Autonomous() != nil).
		Msg("Robot assembled")

	return r, nil
}

type builder struct {
	kinds *actions.Registry
	specs map[string]actions.Spec
	ctx   *actions.Context
	stack []string
}

func (b *builder) resolve(name string) (actions.Action, error) {
	return b.instantiate(name)
}

// instantiate builds a fresh instance of the named action. A name that is
// already being built further up the stack is a sequence that contains itself.
func (b *builder) instantiate(name string) (actions.Action, error) {
	for _, n := range b.stack {
		if n == name {
			return nil, fmt.Errorf("%w: %s -> %s", actions.ErrCycle, strings.Join(b.stack, " -> "), name)
		}
	}
	spec, ok := b.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", actions.ErrUnknownAction, name)
	}

	b.stack = append(b.stack, name)
	defer func() { b.stack = b.stack[:len(b.stack)-1] }()

	return b.kinds.Build(b.ctx, spec)
}
