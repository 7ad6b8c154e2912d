package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/robotd/internal/config"
	"github.com/dokzlo13/robotd/internal/db"
	"github.com/dokzlo13/robotd/internal/eventbus"
	"github.com/dokzlo13/robotd/internal/ledger"
	"github.com/dokzlo13/robotd/internal/loop"
	"github.com/dokzlo13/robotd/internal/scheduler"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB       *db.DB         // nil when the ledger is disabled
	Ledger   *ledger.Ledger // nil when the ledger is disabled
	Bus      *eventbus.Bus
	Recorder *ledger.Recorder

	// Control
	Assembly *Assembly
	Driver   *loop.Driver

	// High-level services
	Loop   *LoopService
	Status *StatusService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config, baseDir string) (*Services, error) {
	s := &Services{cfg: cfg}

	startMode, err := loop.ParseMode(cfg.Match.StartMode)
	if err != nil {
		return nil, err
	}

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Recorder = ledger.NewRecorder(s.Bus)

	if cfg.Ledger.IsEnabled() {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB)
		s.Ledger.Subscribe(s.Bus)
	} else {
		log.Info().Msg("Action ledger is disabled")
	}

	s.Assembly, err = Assemble(cfg, baseDir, scheduler.WithObserver(s.Recorder))
	if err != nil {
		s.Close()
		return nil, err
	}

	sched := s.Assembly.Scheduler
	s.Driver = loop.New(s.Assembly.Robot, loop.Config{
		Period:             cfg.Loop.Period.Duration(),
		WarnOverrun:        cfg.Loop.WarnOverrun,
		AutonomousDuration: cfg.Match.AutonomousDuration.Duration(),
		OnModeChange: func(from, to loop.Mode) {
			s.Recorder.ModeChanged(from.String(), to.String(), sched.Period())
		},
	})

	s.Loop = NewLoopService(cfg, s.Driver, startMode, s.Ledger)
	s.Status = NewStatusService(cfg, s.Driver, s.Assembly, s.Bus, s.Loop.Running)

	return s, nil
}

// Close releases all resources. The loop must have stopped.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.Assembly != nil {
		s.Assembly.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
