package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3))
	assert.Equal(t, -1.0, Clamp(-1.5))
	assert.Equal(t, 0.25, Clamp(0.25))
}

func TestSimOutputInversion(t *testing.T) {
	out := NewSimOutput("drive.right", true)
	out.Set(0.5)
	assert.Equal(t, -0.5, out.Value())

	out.Set(2)
	assert.Equal(t, -1.0, out.Value(), "clamped before inversion")
}

func TestOutputs(t *testing.T) {
	o := NewOutputs()
	require.NoError(t, o.Add(NewSimOutput("shooter.wheel", false)))
	require.NoError(t, o.Add(NewSimOutput("drive.left", false)))
	assert.Error(t, o.Add(NewSimOutput("drive.left", true)))

	assert.Equal(t, []string{"drive.left", "shooter.wheel"}, o.Names())

	left, ok := o.Get("drive.left")
	require.True(t, ok)
	left.Set(0.3)
	assert.Equal(t, map[string]float64{"drive.left": 0.3, "shooter.wheel": 0}, o.Values())

	o.ZeroAll()
	assert.Zero(t, left.Value())
}

func TestSimController(t *testing.T) {
	c := NewSimController()
	assert.Equal(t, -1, c.POV())
	assert.False(t, c.Button(1))

	c.SetButton(1, true)
	c.SetPOV(180)
	c.SetAxis(2, -4)

	assert.True(t, c.Button(1))
	assert.Equal(t, 180, c.POV())
	assert.Equal(t, -1.0, c.Axis(2))
}
