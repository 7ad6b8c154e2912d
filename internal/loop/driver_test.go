package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/robotd/internal/actions"
	"github.com/dokzlo13/robotd/internal/config"
	"github.com/dokzlo13/robotd/internal/hal"
	"github.com/dokzlo13/robotd/internal/robot"
	"github.com/dokzlo13/robotd/internal/scheduler"
)

const table = `
resources:
  - name: drive
    outputs: [{ name: left }]
    default: joystick
  - name: shooter
    outputs: [{ name: wheel }]
actions:
  - name: joystick
    kind: axis
    params: { mappings: [{ output: drive.left, add: [1] }] }
  - name: forward
    kind: output
    params: { values: { drive.left: 0.5 }, ticks: 3 }
  - name: shoot
    kind: output
    params: { values: { shooter.wheel: 1.0 } }
  - name: auto
    kind: sequence
    params: { steps: [forward, shoot] }
bindings:
  - { input: "button:6", mode: while_held, action: shoot }
`

type harness struct {
	driver     *Driver
	robot      *robot.Robot
	controller *hal.SimController
	modes      [][2]Mode
}

func newHarness(t *testing.T, autonomous string, cfg Config) *harness {
	t.Helper()

	var rc config.RobotConfig
	require.NoError(t, yaml.Unmarshal([]byte(table), &rc))
	rc.Autonomous = autonomous

	kinds := actions.NewRegistry()
	require.NoError(t, actions.RegisterBuiltins(kinds))
	controller := hal.NewSimController()
	r, err := robot.Build(rc, kinds, scheduler.New(), controller)
	require.NoError(t, err)

	h := &harness{robot: r, controller: controller}
	if cfg.Period == 0 {
		cfg.Period = 20 * time.Millisecond
	}
	cfg.OnModeChange = func(from, to Mode) {
		h.modes = append(h.modes, [2]Mode{from, to})
	}
	h.driver = New(r, cfg)
	return h
}

func (h *harness) running() []string {
	var names []string
	for _, a := range h.robot.Scheduler().Running() {
		names = append(names, a.Name())
	}
	return names
}

func (h *harness) output(t *testing.T, name string) float64 {
	t.Helper()
	out, ok := h.robot.Outputs().Get(name)
	require.True(t, ok)
	return out.Value()
}

func TestDisabledRunsNothing(t *testing.T) {
	h := newHarness(t, "auto", Config{})
	assert.Equal(t, Disabled, h.driver.Mode())

	h.controller.SetButton(6, true)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.driver.Step())
	}
	assert.Empty(t, h.running())
	assert.Equal(t, uint64(0), h.robot.Scheduler().Period())
}

func TestTeleopPollsBindings(t *testing.T) {
	h := newHarness(t, "auto", Config{})
	h.driver.SetMode(Teleop)

	require.NoError(t, h.driver.Step())
	assert.Equal(t, Teleop, h.driver.Mode())
	assert.Equal(t, []string{"joystick"}, h.running())

	h.controller.SetButton(6, true)
	require.NoError(t, h.driver.Step())
	assert.ElementsMatch(t, []string{"joystick", "shoot"}, h.running())
	assert.InDelta(t, 1.0, h.output(t, "shooter.wheel"), 1e-9)

	h.controller.SetButton(6, false)
	require.NoError(t, h.driver.Step())
	assert.Equal(t, []string{"joystick"}, h.running())
	assert.Zero(t, h.output(t, "shooter.wheel"))
}

func TestAutonomousIgnoresBindings(t *testing.T) {
	h := newHarness(t, "auto", Config{})
	h.driver.SetMode(Autonomous)

	h.controller.SetButton(6, true)
	require.NoError(t, h.driver.Step())

	// auto holds drive and shooter, so neither the default nor the binding runs.
	assert.Equal(t, []string{"auto"}, h.running())
}

func TestAutonomousDurationSwitchesToTeleop(t *testing.T) {
	h := newHarness(t, "auto", Config{
		Period:             20 * time.Millisecond,
		AutonomousDuration: 60 * time.Millisecond,
	})
	h.driver.SetMode(Autonomous)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.driver.Step())
		assert.Equal(t, Autonomous, h.driver.Mode(), "period %d", i)
		assert.Equal(t, []string{"auto"}, h.running(), "period %d", i)
	}

	require.NoError(t, h.driver.Step())
	assert.Equal(t, Teleop, h.driver.Mode())
	assert.Equal(t, []string{"joystick"}, h.running(), "auto cancelled, default back")

	assert.Equal(t, [][2]Mode{{Disabled, Autonomous}, {Autonomous, Teleop}}, h.modes)
}

func TestHeldActionEndsWhenLeavingTeleop(t *testing.T) {
	h := newHarness(t, "auto", Config{})
	h.driver.SetMode(Teleop)
	require.NoError(t, h.driver.Step())

	h.controller.SetButton(6, true)
	require.NoError(t, h.driver.Step())
	require.ElementsMatch(t, []string{"joystick", "shoot"}, h.running())

	h.driver.SetMode(Autonomous)
	require.NoError(t, h.driver.Step())
	assert.Equal(t, []string{"auto"}, h.running())

	h.controller.SetButton(6, false)
	h.driver.SetMode(Teleop)
	for i := 0; i < 5; i++ {
		require.NoError(t, h.driver.Step())
	}
	assert.NotContains(t, h.running(), "shoot")
	assert.Zero(t, h.output(t, "shooter.wheel"))
}

func TestHeldActionEndsWithoutAutonomousAction(t *testing.T) {
	h := newHarness(t, "", Config{})
	h.driver.SetMode(Teleop)
	h.controller.SetButton(6, true)
	require.NoError(t, h.driver.Step())
	require.Contains(t, h.running(), "shoot")

	h.driver.SetMode(Autonomous)
	require.ErrorIs(t, h.driver.Step(), ErrNoAutonomous)
	assert.NotContains(t, h.running(), "shoot", "nothing polls the button in autonomous")

	h.controller.SetButton(6, false)
	h.driver.SetMode(Teleop)
	require.NoError(t, h.driver.Step())
	assert.Equal(t, []string{"joystick"}, h.running())
}

func TestDisableCancelsAndZeroes(t *testing.T) {
	h := newHarness(t, "auto", Config{})
	h.driver.SetMode(Teleop)
	h.controller.SetButton(6, true)
	require.NoError(t, h.driver.Step())
	require.NoError(t, h.driver.Step())
	require.NotEmpty(t, h.running())

	h.driver.SetMode(Disabled)
	require.NoError(t, h.driver.Step())

	assert.Empty(t, h.running())
	assert.Zero(t, h.output(t, "shooter.wheel"))
	assert.Zero(t, h.output(t, "drive.left"))
}

func TestAutonomousWithoutAction(t *testing.T) {
	h := newHarness(t, "", Config{})
	h.driver.SetMode(Autonomous)

	err := h.driver.Step()
	require.ErrorIs(t, err, ErrNoAutonomous)
	assert.Equal(t, Autonomous, h.driver.Mode())
}

func TestSetModeKeepsLatest(t *testing.T) {
	h := newHarness(t, "auto", Config{})
	h.driver.SetMode(Autonomous)
	h.driver.SetMode(Teleop)

	require.NoError(t, h.driver.Step())
	assert.Equal(t, Teleop, h.driver.Mode())
	assert.Equal(t, [][2]Mode{{Disabled, Teleop}}, h.modes)
}

func TestStatus(t *testing.T) {
	h := newHarness(t, "auto", Config{})
	h.driver.SetMode(Teleop)
	require.NoError(t, h.driver.Step())
	require.NoError(t, h.driver.Step())

	st := h.driver.Status()
	assert.Equal(t, "teleop", st.Mode)
	assert.Equal(t, uint64(2), st.Scheduler.Period)
	assert.Equal(t, "joystick", st.Scheduler.Claims["drive"])
	assert.Empty(t, st.Faults)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, "auto", Config{Period: time.Millisecond})
	h.driver.SetMode(Teleop)
	h.controller.SetAxis(1, 0.4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.driver.Run(ctx) }()

	require.Eventually(t, func() bool {
		return h.driver.Status().Scheduler.Period >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, Disabled, h.driver.Mode())
	assert.Empty(t, h.running())
	assert.Zero(t, h.output(t, "drive.left"))
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Disabled, Autonomous, Teleop} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("practice")
	assert.Error(t, err)
}
