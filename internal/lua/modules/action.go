// Package modules implements the Lua modules available to robot scripts.
package modules

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/hal"
	"github.com/dokzlo13/robotd/internal/resource"
)

// KindScript is the action kind backed by a Lua definition.
const KindScript = "script"

// Definition is one action.define{} call: the lifecycle callbacks of a
// scripted action and the resources every instance requires.
type Definition struct {
	Name     string
	Requires []string
	start    *lua.LFunction
	tick     *lua.LFunction
	stop     *lua.LFunction
}

// ActionModule provides action.define() to Lua.
//
// The *lua.LState is captured at define time. Scripted actions run on the
// control loop goroutine only, which is the single goroutine touching L
// after the script is loaded.
type ActionModule struct {
	L    *lua.LState
	defs map[string]*Definition
}

// NewActionModule creates a new action module
func NewActionModule(L *lua.LState) *ActionModule {
	return &ActionModule{
		L:    L,
		defs: make(map[string]*Definition),
	}
}

// Loader is the module loader for Lua
func (m *ActionModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "define", L.NewFunction(m.define))

	L.Push(mod)
	return 1
}

// define{name=..., requires={...}, start=fn, tick=fn, stop=fn}
func (m *ActionModule) define(L *lua.LState) int {
	tbl := L.CheckTable(1)

	name, ok := tbl.RawGetString("name").(lua.LString)
	if !ok || name == "" {
		L.ArgError(1, "action.define requires a 'name' string")
		return 0
	}
	if _, exists := m.defs[string(name)]; exists {
		L.RaiseError("action %q already defined", string(name))
		return 0
	}

	def := &Definition{Name: string(name)}
	if reqs, ok := tbl.RawGetString("requires").(*lua.LTable); ok {
		reqs.ForEach(func(_, v lua.LValue) {
			def.Requires = append(def.Requires, lua.LVAsString(v))
		})
	}

	var err error
	if def.start, err = optFunction(tbl, "start"); err != nil {
		L.RaiseError("action %q: %s", def.Name, err.Error())
		return 0
	}
	if def.tick, err = optFunction(tbl, "tick"); err != nil {
		L.RaiseError("action %q: %s", def.Name, err.Error())
		return 0
	}
	if def.stop, err = optFunction(tbl, "stop"); err != nil {
		L.RaiseError("action %q: %s", def.Name, err.Error())
		return 0
	}

	m.defs[def.Name] = def
	log.Debug().Str("action", def.Name).Strs("requires", def.Requires).Msg("Scripted action defined")
	return 0
}

// Names returns the defined action names, sorted.
func (m *ActionModule) Names() []string {
	names := make([]string, 0, len(m.defs))
	for name := range m.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build is the actions.Builder for KindScript. The Lua definition is
// params.define, or the action name when that is empty.
func (m *ActionModule) Build(ctx *actions.Context, spec actions.Spec) (actions.Action, error) {
	var params struct {
		Define string `yaml:"define"`
	}
	if err := spec.Decode(&params); err != nil {
		return nil, err
	}
	defName := params.Define
	if defName == "" {
		defName = spec.Name
	}
	def, ok := m.defs[defName]
	if !ok {
		return nil, fmt.Errorf("%w: no scripted action %q (action %q)", actions.ErrInvalidParams, defName, spec.Name)
	}

	reqs, err := ctx.Resources(append(append([]string(nil), def.Requires...), spec.Requires...))
	if err != nil {
		return nil, fmt.Errorf("action %q: %w", spec.Name, err)
	}

	a := &ScriptAction{
		Base: actions.NewBase(spec.Name, reqs...),
		L:    m.L,
		def:  def,
	}

	self := m.L.NewTable()
	self.RawSetString("name", lua.LString(spec.Name))
	self.RawSetString("params", paramsTable(m.L, spec.Params))
	a.self = self

	allowed := make(map[*resource.Resource]bool, len(reqs))
	for _, r := range a.Requirements() {
		allowed[r] = true
	}
	a.ctx = NewHALTable(m.L, ctx.Controller(), func(name string) (hal.Output, error) {
		out, owner, err := ctx.Output(name)
		if err != nil {
			return nil, err
		}
		if !allowed[owner] {
			return nil, fmt.Errorf("output %q belongs to resource %q, which %q does not require", name, owner.Name(), spec.Name)
		}
		return out, nil
	})
	return a, nil
}

// ScriptAction is an action instance whose lifecycle runs Lua callbacks.
// Each instance has its own self table, so instances never share state
// unless the script uses globals.
type ScriptAction struct {
	actions.Base
	L    *lua.LState
	def  *Definition
	self *lua.LTable
	ctx  *lua.LTable
}

// Definition returns the Lua definition backing the action.
func (a *ScriptAction) Definition() string {
	return a.def.Name
}

// Start calls start(self, ctx).
func (a *ScriptAction) Start() error {
	if a.def.start == nil {
		return nil
	}
	return a.L.CallByParam(lua.P{Fn: a.def.start, NRet: 0, Protect: true}, a.self, a.ctx)
}

// Tick calls tick(self, ctx); a truthy result finishes the action.
// Without a tick callback the action runs until it is interrupted.
func (a *ScriptAction) Tick() (bool, error) {
	if a.def.tick == nil {
		return false, nil
	}
	if err := a.L.CallByParam(lua.P{Fn: a.def.tick, NRet: 1, Protect: true}, a.self, a.ctx); err != nil {
		return false, err
	}
	ret := a.L.Get(-1)
	a.L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// Stop calls stop(self, ctx, interrupted).
func (a *ScriptAction) Stop(interrupted bool) error {
	if a.def.stop == nil {
		return nil
	}
	return a.L.CallByParam(lua.P{Fn: a.def.stop, NRet: 0, Protect: true}, a.self, a.ctx, lua.LBool(interrupted))
}

func optFunction(tbl *lua.LTable, field string) (*lua.LFunction, error) {
	v := tbl.RawGetString(field)
	switch fn := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LFunction:
		return fn, nil
	default:
		return nil, fmt.Errorf("'%s' must be a function, got %s", field, v.Type().String())
	}
}
