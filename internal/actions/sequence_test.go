package actions_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/actions/actionstest"
	"github.com/dokzlo13/robotd/internal/resource"
)

// runToCompletion starts a and ticks it until it reports done, then stops it.
func runToCompletion(t *testing.T, a actions.Action, maxTicks int) int {
	t.Helper()
	require.NoError(t, a.Start())
	for i := 1; i <= maxTicks; i++ {
		done, err := a.Tick()
		require.NoError(t, err)
		if done {
			require.NoError(t, a.Stop(false))
			return i
		}
	}
	t.Fatalf("%s did not finish in %d ticks", a.Name(), maxTicks)
	return 0
}

func TestSequenceRunsChildrenInOrder(t *testing.T) {
	tr := &actionstest.Trace{}
	x := actionstest.New(tr, "x", 1)
	y := actionstest.New(tr, "y", 2)
	z := actionstest.New(tr, "z", 1)
	seq := actions.NewSequence("xyz", x, y, z)

	ticks := runToCompletion(t, seq, 10)
	assert.Equal(t, 4, ticks)

	want := []string{
		"x:start", "x:tick", "x:stop", "y:start",
		"y:tick",
		"y:tick", "y:stop", "z:start",
		"z:tick", "z:stop",
	}
	if diff := cmp.Diff(want, tr.Events); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceRequirementsAreUnion(t *testing.T) {
	drive, shooter := resource.New("drive"), resource.New("shooter")
	seq := actions.NewSequence("auto",
		actionstest.New(nil, "a", 1, drive),
		actionstest.New(nil, "b", 1, drive, shooter),
	)
	assert.Equal(t, []*resource.Resource{drive, shooter}, seq.Requirements())
	assert.Len(t, seq.Children(), 2)
}

func TestEmptySequenceFinishesOnFirstTick(t *testing.T) {
	seq := actions.NewSequence("empty")
	assert.Empty(t, seq.Requirements())
	assert.Equal(t, 1, runToCompletion(t, seq, 3))
	assert.Nil(t, seq.Current())
}

func TestSequenceStopInterruptsActiveChildOnly(t *testing.T) {
	x := actionstest.New(nil, "x", 1)
	y := actionstest.New(nil, "y", 5)
	z := actionstest.New(nil, "z", 1)
	seq := actions.NewSequence("xyz", x, y, z)

	require.NoError(t, seq.Start())
	_, err := seq.Tick() // x finishes, y starts
	require.NoError(t, err)
	assert.Same(t, y, seq.Current())

	require.NoError(t, seq.Stop(true))

	assert.Equal(t, 1, x.Stops)
	assert.False(t, x.LastInterrupted)
	assert.Equal(t, 1, y.Stops)
	assert.True(t, y.LastInterrupted)
	assert.Equal(t, 0, z.Starts)
	assert.Equal(t, 0, z.Stops)

	// A second stop has nothing left to stop.
	require.NoError(t, seq.Stop(true))
	assert.Equal(t, 1, y.Stops)
}

func TestSequenceRestartsFromFirstChild(t *testing.T) {
	x := actionstest.New(nil, "x", 1)
	y := actionstest.New(nil, "y", 1)
	seq := actions.NewSequence("xy", x, y)

	runToCompletion(t, seq, 5)
	runToCompletion(t, seq, 5)

	assert.Equal(t, 2, x.Starts)
	assert.Equal(t, 2, y.Starts)
}

func TestSequenceChildErrorNamesStep(t *testing.T) {
	boom := errors.New("stall")
	x := actionstest.New(nil, "x", 1)
	y := actionstest.New(nil, "y", 1)
	y.TickErr = boom
	seq := actions.NewSequence("xy", x, y)

	require.NoError(t, seq.Start())
	_, err := seq.Tick()
	require.NoError(t, err)

	_, err = seq.Tick()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step 1 (y)")

	// The failed child is still active, so stopping the sequence reaches it.
	require.NoError(t, seq.Stop(true))
	assert.Equal(t, 1, y.Stops)
}

func TestCheckCycles(t *testing.T) {
	leaf := actionstest.New(nil, "leaf", 1)
	inner := actions.NewSequence("inner", leaf)
	outer := actions.NewSequence("outer", inner, leaf)
	require.NoError(t, actions.CheckCycles(outer))

	// Sequences are immutable once built, so a cycle needs a hand-made parent.
	loop := &selfParent{Func: actions.NewFunc("loop")}
	loop.children = []actions.Action{actions.NewSequence("wrap", loop)}

	err := actions.CheckCycles(loop)
	require.ErrorIs(t, err, actions.ErrCycle)
	assert.Contains(t, err.Error(), "loop -> wrap -> loop")
}

type selfParent struct {
	*actions.Func
	children []actions.Action
}

func (p *selfParent) Children() []actions.Action { return p.children }
