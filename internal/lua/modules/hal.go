package modules

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/robotd/internal/hal"
)

// OutputLookup resolves "<resource>.<output>" to an output the caller may drive.
type OutputLookup func(name string) (hal.Output, error)

// NewHALTable creates the ctx table passed to scripted callbacks:
//
//	ctx:set(output, value)   ctx:get(output)
//	ctx:button(id)           ctx:pov()         ctx:axis(id)
func NewHALTable(L *lua.LState, controller hal.Controller, lookup OutputLookup) *lua.LTable {
	tbl := L.NewTable()

	L.SetField(tbl, "set", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(2)
		value := float64(L.CheckNumber(3))
		out, err := lookup(name)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		out.Set(value)
		return 0
	}))

	L.SetField(tbl, "get", L.NewFunction(func(L *lua.LState) int {
		out, err := lookup(L.CheckString(2))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(lua.LNumber(out.Value()))
		return 1
	}))

	L.SetField(tbl, "button", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(2)
		L.Push(lua.LBool(controller != nil && controller.Button(id)))
		return 1
	}))

	L.SetField(tbl, "pov", L.NewFunction(func(L *lua.LState) int {
		angle := -1
		if controller != nil {
			angle = controller.POV()
		}
		L.Push(lua.LNumber(angle))
		return 1
	}))

	L.SetField(tbl, "axis", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(2)
		var v float64
		if controller != nil {
			v = controller.Axis(id)
		}
		L.Push(lua.LNumber(v))
		return 1
	}))

	return tbl
}
