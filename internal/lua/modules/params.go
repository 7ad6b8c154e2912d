package modules

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// paramsTable exposes an action's YAML params to Lua as self.params.
// Values keep the shapes yaml.v3 decodes into: scalars, []any and map[string]any.
func paramsTable(L *lua.LState, params map[string]any) *lua.LTable {
	tbl := L.NewTable()
	for k, v := range params {
		tbl.RawSetString(k, paramValue(L, v))
	}
	return tbl
}

func paramValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.CreateTable(len(val), 0)
		for _, item := range val {
			tbl.Append(paramValue(L, item))
		}
		return tbl
	case map[string]any:
		return paramsTable(L, val)
	default:
		return lua.LString(fmt.Sprint(v))
	}
}
