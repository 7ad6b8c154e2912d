package trigger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dokzlo13/robotd/internal/hal"
)

// Source is a boolean input level sampled once per period.
type Source interface {
	Level() bool
}

// SourceFunc adapts a function to Source.
type SourceFunc func() bool

func (f SourceFunc) Level() bool { return f() }

func (f SourceFunc) String() string { return "func" }

// Button is true while a controller button is pressed.
type Button struct {
	Controller hal.Controller
	ID         int
}

func (b Button) Level() bool    { return b.Controller.Button(b.ID) }
func (b Button) String() string { return fmt.Sprintf("button:%d", b.ID) }

// POV is true while the controller hat points at Angle.
type POV struct {
	Controller hal.Controller
	Angle      int
}

func (p POV) Level() bool    { return p.Controller.POV() == p.Angle }
func (p POV) String() string { return fmt.Sprintf("pov:%d", p.Angle) }

// AxisThreshold is true while an axis is beyond a threshold: above it when
// Above is set, below it otherwise.
type AxisThreshold struct {
	Controller hal.Controller
	ID         int
	Threshold  float64
	Above      bool
}

func (a AxisThreshold) Level() bool {
	v := a.Controller.Axis(a.ID)
	if a.Above {
		return v > a.Threshold
	}
	return v < a.Threshold
}

func (a AxisThreshold) String() string {
	op := "<"
	if a.Above {
		op = ">"
	}
	return fmt.Sprintf("axis:%d%s%g", a.ID, op, a.Threshold)
}

// ParseSource parses an input spec: "button:<id>", "pov:<angle>",
// "axis:<id>><threshold>" or "axis:<id><<threshold>".
func ParseSource(c hal.Controller, spec string) (Source, error) {
	kind, arg, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, fmt.Errorf("invalid input %q: want <kind>:<arg>", spec)
	}

	switch kind {
	case "button":
		id, err := strconv.Atoi(arg)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid button in %q", spec)
		}
		return Button{Controller: c, ID: id}, nil

	case "pov":
		angle, err := strconv.Atoi(arg)
		if err != nil || angle < 0 || angle >= 360 {
			return nil, fmt.Errorf("invalid pov angle in %q", spec)
		}
		return POV{Controller: c, Angle: angle}, nil

	case "axis":
		above := true
		idStr, thrStr, found := strings.Cut(arg, ">")
		if !found {
			above = false
			idStr, thrStr, found = strings.Cut(arg, "<")
		}
		if !found {
			return nil, fmt.Errorf("invalid axis input %q: want axis:<id>><threshold> or axis:<id><<threshold>", spec)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid axis id in %q", spec)
		}
		thr, err := strconv.ParseFloat(thrStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid axis threshold in %q", spec)
		}
		return AxisThreshold{Controller: c, ID: id, Threshold: thr, Above: above}, nil

	default:
		return nil, fmt.Errorf("unknown input kind %q in %q", kind, spec)
	}
}
