package hal

import (
	"fmt"
	"sort"
	"sync"
)

// Outputs is a lookup table of named outputs, keyed "<resource>.<output>".
type Outputs struct {
	mu      sync.RWMutex
	outputs map[string]Output
}

// NewOutputs creates an empty output table.
func NewOutputs() *Outputs {
	return &Outputs{outputs: make(map[string]Output)}
}

// Add registers an output under its name.
func (o *Outputs) Add(out Output) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.outputs[out.Name()]; exists {
		return fmt.Errorf("output %q already registered", out.Name())
	}
	o.outputs[out.Name()] = out
	return nil
}

// Get retrieves an output by name.
func (o *Outputs) Get(name string) (Output, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out, ok := o.outputs[name]
	return out, ok
}

// Names returns all output names, sorted.
func (o *Outputs) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.outputs))
	for name := range o.outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of every output's current value.
func (o *Outputs) Values() map[string]float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	values := make(map[string]float64, len(o.outputs))
	for name, out := range o.outputs {
		values[name] = out.Value()
	}
	return values
}

// ZeroAll sets every output to 0.
func (o *Outputs) ZeroAll() {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, out := range o.outputs {
		out.Set(0)
	}
}
