// Package lua hosts the optional robot script. The script defines scripted
// actions and resource periodic hooks; after loading, the Lua state is only
// touched from the control loop goroutine.
package lua

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/hal"
	"github.com/dokzlo13/robotd/internal/lua/modules"
	"github.com/dokzlo13/robotd/internal/robot"
)

// Runtime manages the Lua VM
type Runtime struct {
	L *lua.LState

	actionModule   *modules.ActionModule
	resourceModule *modules.ResourceModule
}

// NewRuntime creates a new Lua runtime with the robot modules preloaded
func NewRuntime() *Runtime {
	L := lua.NewState()

	r := &Runtime{L: L}
	r.registerModules()

	return r
}

// registerModules registers all Lua modules
func (r *Runtime) registerModules() {
	r.L.PreloadModule("log", modules.NewLogModule().Loader)

	r.actionModule = modules.NewActionModule(r.L)
	r.L.PreloadModule("action", r.actionModule.Loader)

	r.resourceModule = modules.NewResourceModule()
	r.L.PreloadModule("resource", r.resourceModule.Loader)
}

// LoadScript loads and executes a Lua script. A relative path that does not
// exist is resolved against baseDir (the config file directory).
func (r *Runtime) LoadScript(path, baseDir string) error {
	if !filepath.IsAbs(path) && baseDir != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(baseDir, path)
		}
	}

	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().
		Strs("actions", r.actionModule.Names()).
		Int("periodic_hooks", len(r.resourceModule.Hooks())).
		Msg("Lua script loaded successfully")
	return nil
}

// LoadString executes Lua source directly
func (r *Runtime) LoadString(src string) error {
	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}
	return nil
}

// RegisterKinds adds the script action kind to the kind registry
func (r *Runtime) RegisterKinds(kinds *actions.Registry) error {
	return kinds.Register(modules.KindScript, r.actionModule.Build)
}

// Actions returns the names of the scripted actions the script defined
func (r *Runtime) Actions() []string {
	return r.actionModule.Names()
}

// Attach installs the script's periodic hooks on the assembled robot.
// A hook may drive only the outputs of its own resource.
func (r *Runtime) Attach(rb *robot.Robot) error {
	for _, h := range r.resourceModule.Hooks() {
		h := h // per-iteration copy: closures below capture h (module targets pre-1.22 loop semantics)
		if _, ok := rb.Resource(h.Resource); !ok {
			return fmt.Errorf("periodic hook: %w: %q", actions.ErrUnknownResource, h.Resource)
		}

		prefix := h.Resource + "."
		outputs := rb.Outputs()
		ctx := modules.NewHALTable(r.L, rb.Controller(), func(name string) (hal.Output, error) {
			if !strings.HasPrefix(name, prefix) {
				return nil, fmt.Errorf("%w: %q is not an output of %q", actions.ErrUnknownOutput, name, h.Resource)
			}
			out, ok := outputs.Get(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q", actions.ErrUnknownOutput, name)
			}
			return out, nil
		})

		fn := h.Fn
		if err := rb.OnPeriodic(h.Resource, func() error {
			return r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, ctx)
		}); err != nil {
			return err
		}
		log.Debug().Str("resource", h.Resource).Msg("Lua periodic hook installed")
	}
	return nil
}

// Close closes the Lua state
func (r *Runtime) Close() {
	r.L.Close()
}
