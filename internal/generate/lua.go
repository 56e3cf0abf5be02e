package generate

import (
	"context"
	"fmt"
	"math"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/cbegin/andromeda-go/internal/automation"
)

// Lua runs a script that builds the event list itself. The script sees the
// globals prompt and duration_ms and calls emit(time_ms, path, value[, curve])
// once per event. Each Generate call gets a fresh interpreter. Values are
// passed through as given, non-finite numbers included, like any other
// automation source.
type Lua struct {
	source string
	name   string
}

func NewLua(source string) *Lua {
	return &Lua{source: source, name: "<script>"}
}

func LoadLua(path string) (*Lua, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load lua script: %w", err)
	}
	return &Lua{source: string(src), name: path}, nil
}

func luaValue(v lua.LValue) automation.Value {
	switch v.Type() {
	case lua.LTNumber:
		return automation.Number(float64(v.(lua.LNumber)))
	case lua.LTString:
		return automation.String(string(v.(lua.LString)))
	case lua.LTBool:
		return automation.Bool(lua.LVAsBool(v))
	default:
		return automation.Value{}
	}
}

func (g *Lua) Generate(ctx context.Context, req Request) ([]automation.Event, error) {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	var events []automation.Event
	L.SetGlobal("prompt", lua.LString(req.Prompt))
	L.SetGlobal("duration_ms", lua.LNumber(req.DurationMS))
	L.SetGlobal("emit", L.NewFunction(func(L *lua.LState) int {
		t := float64(L.CheckNumber(1))
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			L.ArgError(1, "time_ms must be a finite non-negative number")
			return 0
		}
		events = append(events, automation.Event{
			TimeMS: uint64(t),
			Path:   L.CheckString(2),
			Value:  luaValue(L.Get(3)),
			Curve:  L.OptString(4, ""),
		})
		return 0
	}))

	if err := L.DoString(g.source); err != nil {
		return nil, fmt.Errorf("lua script %s: %w", g.name, err)
	}
	return events, nil
}
