package hal

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// SimOutput is an in-memory Output that remembers the last value written.
type SimOutput struct {
	mu       sync.Mutex
	name     string
	value    float64
	inverted bool
}

// NewSimOutput creates a simulated output.
func NewSimOutput(name string, inverted bool) *SimOutput {
	return &SimOutput{name: name, inverted: inverted}
}

func (o *SimOutput) Name() string { return o.name }

// Set clamps and stores value, applying the inversion flag.
func (o *SimOutput) Set(value float64) {
	value = Clamp(value)
	if o.inverted {
		value = -value
	}

	o.mu.Lock()
	changed := o.value != value
	o.value = value
	o.mu.Unlock()

	if changed {
		log.Trace().Str("output", o.name).Float64("value", value).Msg("Output set")
	}
}

// Value returns the last value written, after inversion.
func (o *SimOutput) Value() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// SimController is a Controller whose state is set programmatically.
// Safe for concurrent use: the status server may write while the loop reads.
type SimController struct {
	mu      sync.RWMutex
	buttons map[int]bool
	axes    map[int]float64
	pov     int
}

// NewSimController creates a controller with nothing pressed and the hat centered.
func NewSimController() *SimController {
	return &SimController{
		buttons: make(map[int]bool),
		axes:    make(map[int]float64),
		pov:     -1,
	}
}

func (c *SimController) Button(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buttons[id]
}

func (c *SimController) POV() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pov
}

func (c *SimController) Axis(id int) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.axes[id]
}

// SetButton presses or releases a button.
func (c *SimController) SetButton(id int, pressed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buttons[id] = pressed
}

// SetPOV sets the hat angle; -1 centers it.
func (c *SimController) SetPOV(angle int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pov = angle
}

// SetAxis sets an axis value, clamped to [-1, 1].
func (c *SimController) SetAxis(id int, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.axes[id] = Clamp(value)
}
