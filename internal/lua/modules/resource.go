package modules

import (
	lua "github.com/yuin/gopher-lua"
)

// PeriodicHook is a resource.periodic() registration.
type PeriodicHook struct {
	Resource string
	Fn       *lua.LFunction
}

// ResourceModule provides resource.periodic() to Lua. Hooks are only
// recorded here; they are installed once the robot is assembled.
type ResourceModule struct {
	hooks []PeriodicHook
}

// NewResourceModule creates a new resource module
func NewResourceModule() *ResourceModule {
	return &ResourceModule{}
}

// Loader is the module loader for Lua
func (m *ResourceModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "periodic", L.NewFunction(m.periodic))

	L.Push(mod)
	return 1
}

// periodic(resource_name, fn) - Run fn(ctx) every period before actions tick
func (m *ResourceModule) periodic(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	for _, h := range m.hooks {
		if h.Resource == name {
			L.RaiseError("resource %q already has a periodic hook", name)
			return 0
		}
	}

	m.hooks = append(m.hooks, PeriodicHook{Resource: name, Fn: fn})
	return 0
}

// Hooks returns the recorded hooks in registration order.
func (m *ResourceModule) Hooks() []PeriodicHook {
	return m.hooks
}
