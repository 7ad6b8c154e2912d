package app

import (
	"fmt"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/config"
	"github.com/dokzlo13/robotd/internal/hal"
	luart "github.com/dokzlo13/robotd/internal/lua"
	"github.com/dokzlo13/robotd/internal/robot"
	"github.com/dokzlo13/robotd/internal/scheduler"
)

// Assembly is everything the control loop needs, built from configuration
// but not yet running. The validate command builds one and throws it away.
type Assembly struct {
	Kinds      *actions.Registry
	Lua        *luart.Runtime // nil without a script
	Scheduler  *scheduler.Scheduler
	Controller *hal.SimController
	Robot      *robot.Robot
}

// Assemble builds the kind registry, loads the optional script and
// assembles the robot. baseDir resolves a relative script path.
func Assemble(cfg *config.Config, baseDir string, opts ...scheduler.Option) (*Assembly, error) {
	a := &Assembly{
		Kinds:      actions.NewRegistry(),
		Scheduler:  scheduler.New(opts...),
		Controller: hal.NewSimController(),
	}

	if err := actions.RegisterBuiltins(a.Kinds); err != nil {
		return nil, err
	}

	if cfg.Script != "" {
		a.Lua = luart.NewRuntime()
		if err := a.Lua.LoadScript(cfg.Script, baseDir); err != nil {
			a.Close()
			return nil, err
		}
		if err := a.Lua.RegisterKinds(a.Kinds); err != nil {
			a.Close()
			return nil, err
		}
	}

	rb, err := robot.Build(cfg.Robot, a.Kinds, a.Scheduler, a.Controller)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("robot: %w", err)
	}
	a.Robot = rb

	if a.Lua != nil {
		if err := a.Lua.Attach(rb); err != nil {
			a.Close()
			return nil, fmt.Errorf("script: %w", err)
		}
	}

	return a, nil
}

// Close releases the Lua state.
func (a *Assembly) Close() {
	if a.Lua != nil {
		a.Lua.Close()
	}
}
