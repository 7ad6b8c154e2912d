package modules

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// LogModule provides logging functions to Lua
type LogModule struct{}

// NewLogModule creates a new log module
func NewLogModule() *LogModule {
	return &LogModule{}
}

// Loader is the module loader for Lua
func (m *LogModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(m.logger(zerolog.DebugLevel)))
	L.SetField(mod, "info", L.NewFunction(m.logger(zerolog.InfoLevel)))
	L.SetField(mod, "warn", L.NewFunction(m.logger(zerolog.WarnLevel)))
	L.SetField(mod, "error", L.NewFunction(m.logger(zerolog.ErrorLevel)))

	L.Push(mod)
	return 1
}

// logger returns log.<level>(msg, fields). Field values are logged with
// their Lua type; tables and functions are logged as their string form.
func (m *LogModule) logger(level zerolog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)

		event := log.WithLevel(level).Str("source", "lua")
		if fields, ok := L.Get(2).(*lua.LTable); ok {
			fields.ForEach(func(key, value lua.LValue) {
				event = addField(event, lua.LVAsString(key), value)
			})
		}
		event.Msg(msg)

		return 0
	}
}

func addField(event *zerolog.Event, key string, v lua.LValue) *zerolog.Event {
	switch val := v.(type) {
	case lua.LString:
		return event.Str(key, string(val))
	case lua.LNumber:
		return event.Float64(key, float64(val))
	case lua.LBool:
		return event.Bool(key, bool(val))
	default:
		return event.Str(key, v.String())
	}
}
