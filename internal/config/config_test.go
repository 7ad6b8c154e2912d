package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("robot: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 20*time.Millisecond, cfg.Loop.Period.Duration())
	assert.Equal(t, "teleop", cfg.Match.StartMode)
	assert.Equal(t, "./robotd.sqlite", cfg.Database.Path)
	assert.True(t, cfg.Ledger.IsEnabled())
	assert.Equal(t, 30*24*time.Hour, cfg.Ledger.Retention())
	assert.Equal(t, 24*time.Hour, cfg.Ledger.CleanupInterval.Duration())
	assert.Equal(t, "0.0.0.0", cfg.Status.Host)
	assert.Equal(t, 9090, cfg.Status.Port)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration())
	assert.Equal(t, 1, cfg.EventBus.GetWorkers())
	assert.Equal(t, 256, cfg.EventBus.GetQueueSize())
}

func TestParseRobotTable(t *testing.T) {
	data := `
loop:
  period: 10ms
  warn_overrun: true
match:
  start_mode: disabled
  autonomous_duration: 15s
ledger:
  enabled: false
robot:
  resources:
    - name: drive
      outputs:
        - { name: left }
        - { name: right, inverted: true }
      default: joystick
  actions:
    - name: joystick
      kind: axis
      params:
        mappings:
          - { output: drive.left, add: [1] }
    - name: forward
      kind: output
      requires: [drive]
      params: { values: { drive.left: 0.5 }, ticks: 3 }
  bindings:
    - { input: "pov:0", mode: while_held, action: forward }
  autonomous: forward
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.Loop.Period.Duration())
	assert.True(t, cfg.Loop.WarnOverrun)
	assert.Equal(t, "disabled", cfg.Match.StartMode)
	assert.Equal(t, 15*time.Second, cfg.Match.AutonomousDuration.Duration())
	assert.False(t, cfg.Ledger.IsEnabled())

	r := cfg.Robot
	require.Len(t, r.Resources, 1)
	assert.Equal(t, "drive", r.Resources[0].Name)
	assert.Equal(t, "joystick", r.Resources[0].Default)
	assert.Equal(t, []OutputConfig{{Name: "left"}, {Name: "right", Inverted: true}}, r.Resources[0].Outputs)

	require.Len(t, r.Actions, 2)
	assert.Equal(t, "axis", r.Actions[0].Kind)
	assert.Equal(t, []string{"drive"}, r.Actions[1].Requires)
	assert.Equal(t, 3, r.Actions[1].Params["ticks"])

	assert.Equal(t, []BindingConfig{{Input: "pov:0", Mode: "while_held", Action: "forward"}}, r.Bindings)
	assert.Equal(t, "forward", r.Autonomous)
}

func TestParseEnvExpansion(t *testing.T) {
	t.Setenv("ROBOTD_TEST_DB", "/var/lib/robotd/ledger.sqlite")

	cfg, err := Parse([]byte(`
database:
  path: ${ROBOTD_TEST_DB}
log:
  level: ${ROBOTD_TEST_UNSET_LEVEL:debug}
`))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/robotd/ledger.sqlite", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"bad duration":    "loop:\n  period: fast\n",
		"negative period": "loop:\n  period: -5ms\n",
		"bad yaml":        "robot: [\n",

		"negative cleanup interval": "ledger:\n  cleanup_interval: -1h\n",
		"negative retention":        "ledger:\n  retention_days: -3\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("status:\n  enabled: true\n  port: 8123\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Status.Enabled)
	assert.Equal(t, 8123, cfg.Status.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
