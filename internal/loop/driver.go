// Package loop drives the scheduler at a fixed period.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/robotd/internal/robot"
	"github.com/dokzlo13/robotd/internal/scheduler"
)

// ErrNoAutonomous is returned when autonomous mode is entered without an autonomous action.
var ErrNoAutonomous = errors.New("no autonomous action configured")

const maxRecentFaults = 16

// Mode is the match mode.
type Mode int

const (
	Disabled Mode = iota
	Autonomous
	Teleop
)

// String returns the config name of the mode.
func (m Mode) String() string {
	switch m {
	case Disabled:
		return "disabled"
	case Autonomous:
		return "autonomous"
	case Teleop:
		return "teleop"
	default:
		return "unknown"
	}
}

// ParseMode parses a config mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "disabled":
		return Disabled, nil
	case "autonomous":
		return Autonomous, nil
	case "teleop":
		return Teleop, nil
	default:
		return Disabled, fmt.Errorf("unknown mode %q", s)
	}
}

// Config holds driver configuration.
type Config struct {
	Period             time.Duration
	WarnOverrun        bool
	AutonomousDuration time.Duration // 0 = stay in autonomous until told otherwise

	// OnModeChange is called on the loop goroutine after a mode takes effect.
	OnModeChange func(from, to Mode)
}

// Status is a snapshot of driver state, safe to read from any goroutine.
type Status struct {
	Mode      string             `json:"mode"`
	Overruns  uint64             `json:"overruns"`
	Faults    []string           `json:"recent_faults"`
	Scheduler scheduler.Snapshot `json:"scheduler"`
}

// Driver is the control loop: once per period it polls input bindings (in
// teleop) and runs one scheduler pass. All scheduler access happens on the
// goroutine calling Step or Run.
type Driver struct {
	robot  *robot.Robot
	sched  *scheduler.Scheduler
	config Config

	modeCh     chan Mode
	mode       Mode
	autoPeriod uint64 // periods spent in the current autonomous run

	mu       sync.RWMutex
	status   Status
	overruns uint64
	faults   []string
}

// New creates a driver. It starts in Disabled; call SetMode to enable.
func New(r *robot.Robot, cfg Config) *Driver {
	d := &Driver{
		robot:  r,
		sched:  r.Scheduler(),
		config: cfg,
		modeCh: make(chan Mode, 1),
		mode:   Disabled,
	}
	d.publish()
	return d
}

// SetMode requests a mode change. It is applied at the start of the next
// period. Safe to call from any goroutine; only the latest request is kept.
func (d *Driver) SetMode(m Mode) {
	for {
		select {
		case d.modeCh <- m:
			return
		default:
		}
		select {
		case <-d.modeCh:
		default:
		}
	}
}

// Mode returns the mode in effect for the last period.
func (d *Driver) Mode() Mode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mode
}

// Status returns the last published status.
func (d *Driver) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st := d.status
	st.Faults = append([]string(nil), d.faults...)
	st.Overruns = d.overruns
	return st
}

// Run calls Step once per period until ctx is cancelled, then stops every
// running action and zeroes the outputs.
func (d *Driver) Run(ctx context.Context) error {
	log.Info().Dur("period", d.config.Period).Msg("Control loop started")

	ticker := time.NewTicker(d.config.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Control loop stopping")
			d.shutdown()
			return nil
		case <-ticker.C:
			started := time.Now()
			if err := d.Step(); err != nil {
				d.recordFaults(err)
			}
			if elapsed := time.Since(started); elapsed > d.config.Period {
				d.mu.Lock()
				d.overruns++
				d.mu.Unlock()
				if d.config.WarnOverrun {
					log.Warn().
						Dur("elapsed", elapsed).
						Dur("period", d.config.Period).
						Msg("Loop overrun")
				}
			}
		}
	}
}

// Step runs exactly one period: pending mode change, binding polls, then
// the scheduler pass. Nothing runs while disabled.
func (d *Driver) Step() error {
	var errs []error

	select {
	case m := <-d.modeCh:
		errs = append(errs, d.enter(m))
	default:
	}

	if d.mode == Autonomous && d.config.AutonomousDuration > 0 && d.config.Period > 0 {
		limit := uint64(d.config.AutonomousDuration / d.config.Period)
		if d.autoPeriod >= limit {
			log.Info().Uint64("periods", d.autoPeriod).Msg("Autonomous period over")
			errs = append(errs, d.enter(Teleop))
		}
	}

	if d.mode == Disabled {
		d.publish()
		return errors.Join(errs...)
	}

	if d.mode == Teleop {
		for _, b := range d.robot.Bindings() {
			b.Poll(d.sched)
		}
	}

	errs = append(errs, d.sched.RunPeriod())

	if d.mode == Autonomous {
		d.autoPeriod++
	}

	d.publish()
	return errors.Join(errs...)
}

func (d *Driver) enter(m Mode) error {
	if m == d.mode {
		return nil
	}
	log.Info().Str("from", d.mode.String()).Str("to", m.String()).Msg("Mode change")

	// Bindings are only polled in teleop; a held action must not outlive it.
	for _, b := range d.robot.Bindings() {
		b.Release(d.sched)
	}

	prev := d.mode
	d.setMode(m)
	if d.config.OnModeChange != nil {
		d.config.OnModeChange(prev, m)
	}

	switch m {
	case Disabled:
		err := d.sched.CancelAll()
		d.robot.Outputs().ZeroAll()
		return err

	case Autonomous:
		d.autoPeriod = 0
		auto := d.robot.Autonomous()
		if auto == nil {
			log.Warn().Msg("Autonomous mode entered with no autonomous action")
			return ErrNoAutonomous
		}
		d.sched.RequestStart(auto)

	case Teleop:
		if prev == Autonomous {
			if auto := d.robot.Autonomous(); auto != nil {
				d.sched.RequestCancel(auto)
			}
		}
	}
	return nil
}

func (d *Driver) setMode(m Mode) {
	d.mu.Lock()
	d.mode = m
	d.mu.Unlock()
}

func (d *Driver) shutdown() {
	if err := d.sched.CancelAll(); err != nil {
		d.recordFaults(err)
	}
	d.robot.Outputs().ZeroAll()
	d.setMode(Disabled)
	d.publish()
}

func (d *Driver) publish() {
	snap := d.sched.Snapshot()
	d.mu.Lock()
	d.status.Mode = d.mode.String()
	d.status.Scheduler = snap
	d.mu.Unlock()
}

func (d *Driver) recordFaults(err error) {
	faults := scheduler.Faults(err)

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(faults) == 0 {
		log.Error().Err(err).Msg("Control loop error")
		d.faults = appendBounded(d.faults, err.Error())
		return
	}
	for _, f := range faults {
		log.Error().
			Err(f.Err).
			Str("action", f.Name).
			Str("phase", string(f.Phase)).
			Msg("Action fault")
		d.faults = appendBounded(d.faults, f.Error())
	}
}

func appendBounded(s []string, v string) []string {
	s = append(s, v)
	if len(s) > maxRecentFaults {
		s = s[len(s)-maxRecentFaults:]
	}
	return s
}
