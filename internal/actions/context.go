package actions

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dokzlo13/robotd/internal/hal"
	"github.com/dokzlo13/robotd/internal/resource"
)

// Context is the capability set handed to action builders.
// It replaces any process-wide controller or subsystem globals: everything an
// action touches is reached through it at construction time.
type Context struct {
	controller hal.Controller
	outputs    *hal.Outputs
	resources  map[string]*resource.Resource
	resolve    func(name string) (Action, error)

	flagsMu sync.Mutex
	flags   map[string]*Flag
}

// NewContext creates a builder context.
// resolve builds a fresh instance of another named action (for composition);
// it may be nil when composition is not needed.
func NewContext(
	controller hal.Controller,
	outputs *hal.Outputs,
	resources []*resource.Resource,
	resolve func(name string) (Action, error),
) *Context {
	byName := make(map[string]*resource.Resource, len(resources))
	for _, r := range resources {
		byName[r.Name()] = r
	}
	return &Context{
		controller: controller,
		outputs:    outputs,
		resources:  byName,
		resolve:    resolve,
		flags:      make(map[string]*Flag),
	}
}

// Controller returns the driver input device.
func (c *Context) Controller() hal.Controller {
	return c.controller
}

// Resource looks up a registered resource by name.
func (c *Context) Resource(name string) (*resource.Resource, error) {
	r, ok := c.resources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return r, nil
}

// Resources looks up several resources by name.
func (c *Context) Resources(names []string) ([]*resource.Resource, error) {
	out := make([]*resource.Resource, 0, len(names))
	for _, name := range names {
		r, err := c.Resource(name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Output looks up an output named "<resource>.<output>" and returns it with
// the resource that owns it.
func (c *Context) Output(name string) (hal.Output, *resource.Resource, error) {
	resName, _, ok := strings.Cut(name, ".")
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q (want <resource>.<output>)", ErrUnknownOutput, name)
	}
	r, err := c.Resource(resName)
	if err != nil {
		return nil, nil, err
	}
	out, ok := c.outputs.Get(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
	return out, r, nil
}

// Resolve builds a fresh instance of another named action.
func (c *Context) Resolve(name string) (Action, error) {
	if c.resolve == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return c.resolve(name)
}

// Flag returns the shared flag with the given name, creating it on first use.
func (c *Context) Flag(name string) *Flag {
	c.flagsMu.Lock()
	defer c.flagsMu.Unlock()

	f, ok := c.flags[name]
	if !ok {
		f = &Flag{}
		c.flags[name] = f
	}
	return f
}

// Flag is a boolean shared between actions, e.g. a drivetrain inversion
// toggled by one action and read by another.
type Flag struct {
	mu sync.Mutex
	on bool
}

func (f *Flag) Get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

func (f *Flag) Toggle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = !f.on
	return f.on
}
