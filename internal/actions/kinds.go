package actions

import (
	"fmt"
	"math"
	"sort"

	"github.com/dokzlo13/robotd/internal/hal"
	"github.com/dokzlo13/robotd/internal/resource"
)

// Built-in action kinds.
const (
	KindOutput       = "output"
	KindAxis         = "axis"
	KindToggleInvert = "toggle_invert"
	KindWait         = "wait"
	KindSequence     = "sequence"
)

// RegisterBuiltins registers the built-in kinds on r.
func RegisterBuiltins(r *Registry) error {
	builtins := map[string]Builder{
		KindOutput:       buildOutput,
		KindAxis:         buildAxis,
		KindToggleInvert: buildToggleInvert,
		KindWait:         buildWait,
		KindSequence:     buildSequence,
	}
	for _, kind := range []string{KindOutput, KindAxis, KindToggleInvert, KindWait, KindSequence} {
		if err := r.Register(kind, builtins[kind]); err != nil {
			return err
		}
	}
	return nil
}

// Wait finishes after a fixed number of ticks.
type Wait struct {
	Base
	ticks   int
	elapsed int
}

// NewWait creates an action that finishes on its ticks-th tick.
func NewWait(name string, ticks int, requires ...*resource.Resource) *Wait {
	return &Wait{Base: NewBase(name, requires...), ticks: ticks}
}

func (w *Wait) Start() error {
	w.elapsed = 0
	return nil
}

func (w *Wait) Tick() (bool, error) {
	w.elapsed++
	return w.elapsed >= w.ticks, nil
}

func (w *Wait) Stop(bool) error { return nil }

// OutputValue is one output driven at a fixed value.
type OutputValue struct {
	Output hal.Output
	Value  float64
}

// Output drives outputs at fixed values on every tick. With a positive tick
// limit it finishes after that many ticks; otherwise it runs until cancelled.
// Outputs are zeroed on stop, except after a natural finish when hold is set.
type Output struct {
	Base
	values  []OutputValue
	ticks   int
	hold    bool
	elapsed int
}

// NewOutput creates a fixed-value output action.
func NewOutput(name string, values []OutputValue, ticks int, hold bool, requires ...*resource.Resource) *Output {
	return &Output{
		Base:   NewBase(name, requires...),
		values: values,
		ticks:  ticks,
		hold:   hold,
	}
}

func (o *Output) Start() error {
	o.elapsed = 0
	return nil
}

func (o *Output) Tick() (bool, error) {
	for _, v := range o.values {
		v.Output.Set(v.Value)
	}
	o.elapsed++
	return o.ticks > 0 && o.elapsed >= o.ticks, nil
}

func (o *Output) Stop(interrupted bool) error {
	if o.hold && !interrupted {
		return nil
	}
	for _, v := range o.values {
		v.Output.Set(0)
	}
	return nil
}

// AxisMapping drives one output from the sum of some axes minus others.
type AxisMapping struct {
	Output   hal.Output
	Add      []int
	Subtract []int
	Scale    float64
	Deadband float64
}

func (m AxisMapping) value(c hal.Controller) float64 {
	var v float64
	for _, id := range m.Add {
		v += c.Axis(id)
	}
	for _, id := range m.Subtract {
		v -= c.Axis(id)
	}
	if math.Abs(v) < m.Deadband {
		return 0
	}
	return hal.Clamp(v * m.Scale)
}

// Axis continuously maps controller axes to outputs. It never finishes, which
// makes it the usual default action for a resource.
type Axis struct {
	Base
	controller hal.Controller
	mappings   []AxisMapping
	invert     *Flag
}

// NewAxis creates an axis-mapping action. invert may be nil.
func NewAxis(name string, controller hal.Controller, mappings []AxisMapping, invert *Flag, requires ...*resource.Resource) *Axis {
	return &Axis{
		Base:       NewBase(name, requires...),
		controller: controller,
		mappings:   mappings,
		invert:     invert,
	}
}

func (a *Axis) Start() error { return nil }

func (a *Axis) Tick() (bool, error) {
	sign := 1.0
	if a.invert != nil && a.invert.Get() {
		sign = -1
	}
	for _, m := range a.mappings {
		m.Output.Set(sign * m.value(a.controller))
	}
	return false, nil
}

func (a *Axis) Stop(bool) error {
	for _, m := range a.mappings {
		m.Output.Set(0)
	}
	return nil
}

// ToggleInvert flips a shared flag when started and finishes on its first tick.
type ToggleInvert struct {
	Base
	flag *Flag
}

// NewToggleInvert creates a flag-toggling action.
func NewToggleInvert(name string, flag *Flag, requires ...*resource.Resource) *ToggleInvert {
	return &ToggleInvert{Base: NewBase(name, requires...), flag: flag}
}

func (t *ToggleInvert) Start() error {
	t.flag.Toggle()
	return nil
}

func (t *ToggleInvert) Tick() (bool, error) { return true, nil }
func (t *ToggleInvert) Stop(bool) error     { return nil }

func buildWait(ctx *Context, spec Spec) (Action, error) {
	var p struct {
		Ticks int `yaml:"ticks"`
	}
	if err := spec.Decode(&p); err != nil {
		return nil, err
	}
	if p.Ticks <= 0 {
		return nil, fmt.Errorf("%w: %s: ticks must be positive", ErrInvalidParams, spec.Name)
	}
	reqs, err := ctx.Resources(spec.Requires)
	if err != nil {
		return nil, err
	}
	return NewWait(spec.Name, p.Ticks, reqs...), nil
}

func buildOutput(ctx *Context, spec Spec) (Action, error) {
	var p struct {
		Values map[string]float64 `yaml:"values"`
		Ticks  int                `yaml:"ticks"`
		Hold   bool               `yaml:"hold"`
	}
	if err := spec.Decode(&p); err != nil {
		return nil, err
	}
	if len(p.Values) == 0 {
		return nil, fmt.Errorf("%w: %s: values is empty", ErrInvalidParams, spec.Name)
	}

	reqs, err := ctx.Resources(spec.Requires)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(p.Values))
	for name := range p.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]OutputValue, 0, len(names))
	for _, name := range names {
		out, owner, err := ctx.Output(name)
		if err != nil {
			return nil, err
		}
		reqs = resource.Union(reqs, []*resource.Resource{owner})
		values = append(values, OutputValue{Output: out, Value: p.Values[name]})
	}

	return NewOutput(spec.Name, values, p.Ticks, p.Hold, reqs...), nil
}

func buildAxis(ctx *Context, spec Spec) (Action, error) {
	var p struct {
		Invert   string `yaml:"invert"`
		Mappings []struct {
			Output   string   `yaml:"output"`
			Add      []int    `yaml:"add"`
			Subtract []int    `yaml:"subtract"`
			Scale    *float64 `yaml:"scale"`
			Deadband float64  `yaml:"deadband"`
		} `yaml:"mappings"`
	}
	if err := spec.Decode(&p); err != nil {
		return nil, err
	}
	if len(p.Mappings) == 0 {
		return nil, fmt.Errorf("%w: %s: mappings is empty", ErrInvalidParams, spec.Name)
	}

	reqs, err := ctx.Resources(spec.Requires)
	if err != nil {
		return nil, err
	}

	mappings := make([]AxisMapping, 0, len(p.Mappings))
	for _, m := range p.Mappings {
		out, owner, err := ctx.Output(m.Output)
		if err != nil {
			return nil, err
		}
		reqs = resource.Union(reqs, []*resource.Resource{owner})

		scale := 1.0
		if m.Scale != nil {
			scale = *m.Scale
		}
		mappings = append(mappings, AxisMapping{
			Output:   out,
			Add:      m.Add,
			Subtract: m.Subtract,
			Scale:    scale,
			Deadband: m.Deadband,
		})
	}

	var invert *Flag
	if p.Invert != "" {
		invert = ctx.Flag(p.Invert)
	}

	return NewAxis(spec.Name, ctx.Controller(), mappings, invert, reqs...), nil
}

func buildToggleInvert(ctx *Context, spec Spec) (Action, error) {
	var p struct {
		Flag string `yaml:"flag"`
	}
	if err := spec.Decode(&p); err != nil {
		return nil, err
	}
	if p.Flag == "" {
		return nil, fmt.Errorf("%w: %s: flag is required", ErrInvalidParams, spec.Name)
	}
	reqs, err := ctx.Resources(spec.Requires)
	if err != nil {
		return nil, err
	}
	return NewToggleInvert(spec.Name, ctx.Flag(p.Flag), reqs...), nil
}

func buildSequence(ctx *Context, spec Spec) (Action, error) {
	var p struct {
		Steps []string `yaml:"steps"`
	}
	if err := spec.Decode(&p); err != nil {
		return nil, err
	}

	children := make([]Action, 0, len(p.Steps))
	for _, step := range p.Steps {
		child, err := ctx.Resolve(step)
		if err != nil {
			return nil, fmt.Errorf("sequence %q: %w", spec.Name, err)
		}
		children = append(children, child)
	}

	seq := NewSequence(spec.Name, children...)
	reqs, err := ctx.Resources(spec.Requires)
	if err != nil {
		return nil, err
	}
	seq.AddRequirements(reqs...)
	return seq, nil
}
