// Package hal defines the narrow hardware surface actions talk to.
// Bus protocols and motor drivers live behind these interfaces.
package hal

// Output is a single motor or actuator output in the range [-1, 1].
type Output interface {
	Name() string
	Set(value float64)
	Value() float64
}

// Controller is a driver input device: buttons, one POV hat and analog axes.
type Controller interface {
	// Button reports whether button id is pressed.
	Button(id int) bool
	// POV returns the hat angle in degrees, or -1 when centered.
	POV() int
	// Axis returns the axis value in [-1, 1].
	Axis(id int) float64
}

// Clamp limits v to [-1, 1].
func Clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
