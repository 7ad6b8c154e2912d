package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/robotd/internal/actions"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig      `yaml:"log"`
	Loop            LoopConfig     `yaml:"loop"`
	Match           MatchConfig    `yaml:"match"`
	Database        DatabaseConfig `yaml:"database"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	EventBus        EventBusConfig `yaml:"eventbus"`
	Status          StatusConfig   `yaml:"status"`
	Script          string         `yaml:"script"` // Optional Lua script with scripted actions
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"`
	Robot           RobotConfig    `yaml:"robot"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// GetLevel returns the configured level, defaulting to info
func (c LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// LoopConfig contains control loop settings
type LoopConfig struct {
	Period      Duration `yaml:"period"`       // Control period (default: 20ms)
	WarnOverrun bool     `yaml:"warn_overrun"` // Log when a pass exceeds the period
}

// MatchConfig controls which mode the robot enters and for how long
type MatchConfig struct {
	StartMode          string   `yaml:"start_mode"`          // disabled, autonomous or teleop (default: teleop)
	AutonomousDuration Duration `yaml:"autonomous_duration"` // Switch to teleop after this long in autonomous (0 = stay)
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains action ledger settings
type LedgerConfig struct {
	Enabled         *bool    `yaml:"enabled"` // default: true
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// IsEnabled returns whether the ledger is enabled (default true)
func (c LedgerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Retention returns the retention period
func (c LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// StatusConfig contains status server settings
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 1)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 256)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 256
	}
	return c.QueueSize
}

// RobotConfig is the declarative registration table: resources with their
// outputs and default actions, named actions, input bindings and the
// autonomous action.
type RobotConfig struct {
	Resources  []ResourceConfig `yaml:"resources"`
	Actions    []actions.Spec   `yaml:"actions"`
	Bindings   []BindingConfig  `yaml:"bindings"`
	Autonomous string           `yaml:"autonomous"`
}

// ResourceConfig declares one resource
type ResourceConfig struct {
	Name    string         `yaml:"name"`
	Outputs []OutputConfig `yaml:"outputs"`
	Default string         `yaml:"default"` // Name of the default action, optional
}

// OutputConfig declares one output of a resource
type OutputConfig struct {
	Name     string `yaml:"name"`
	Inverted bool   `yaml:"inverted"`
}

// BindingConfig wires one input to one action
type BindingConfig struct {
	Input  string `yaml:"input"`  // button:<id>, pov:<angle>, axis:<id>><threshold>
	Mode   string `yaml:"mode"`   // on_press or while_held
	Action string `yaml:"action"` // Name of the action
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes and applies defaults
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./robotd.sqlite"
	}

	// Loop defaults
	if cfg.Loop.Period == 0 {
		cfg.Loop.Period = Duration(20 * time.Millisecond)
	}
	if cfg.Loop.Period.Duration() < 0 {
		return nil, fmt.Errorf("loop.period must be positive")
	}

	// Match defaults
	if cfg.Match.StartMode == "" {
		cfg.Match.StartMode = "teleop"
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}
	if cfg.Ledger.CleanupInterval.Duration() < 0 {
		return nil, fmt.Errorf("ledger.cleanup_interval must be positive")
	}
	if cfg.Ledger.RetentionDays < 0 {
		return nil, fmt.Errorf("ledger.retention_days must be positive")
	}

	// Status defaults
	if cfg.Status.Port == 0 {
		cfg.Status.Port = 9090
	}
	if cfg.Status.Host == "" {
		cfg.Status.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
