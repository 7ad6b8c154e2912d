package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/robotd/internal/config"
	"github.com/dokzlo13/robotd/internal/eventbus"
	"github.com/dokzlo13/robotd/internal/loop"
)

// StatusService provides HTTP health, status and simulator input endpoints.
type StatusService struct {
	cfg      *config.Config
	driver   *loop.Driver
	assembly *Assembly
	bus      *eventbus.Bus
	ready    func() bool
	server   *http.Server
}

// NewStatusService creates a new StatusService.
func NewStatusService(cfg *config.Config, driver *loop.Driver, assembly *Assembly, bus *eventbus.Bus, ready func() bool) *StatusService {
	return &StatusService{
		cfg:      cfg,
		driver:   driver,
		assembly: assembly,
		bus:      bus,
		ready:    ready,
	}
}

type statusResponse struct {
	loop.Status
	Outputs       map[string]float64 `json:"outputs"`
	DroppedEvents uint64             `json:"dropped_events"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type inputRequest struct {
	Buttons map[int]bool    `json:"buttons"`
	Axes    map[int]float64 `json:"axes"`
	POV     *int            `json:"pov"`
}

// Handler returns the status HTTP handler.
func (s *StatusService) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Ready check endpoint
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil && !s.ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Status:  s.driver.Status(),
			Outputs: s.assembly.Robot.Outputs().Values(),
		}
		if s.bus != nil {
			resp.DroppedEvents = s.bus.Dropped()
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("POST /mode", func(w http.ResponseWriter, r *http.Request) {
		var req modeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		mode, err := loop.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.driver.SetMode(mode)
		log.Info().Str("mode", mode.String()).Msg("Mode change requested")
		writeJSON(w, http.StatusAccepted, map[string]string{"mode": mode.String()})
	})

	// Simulator controller input
	mux.HandleFunc("POST /input", func(w http.ResponseWriter, r *http.Request) {
		var req inputRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		c := s.assembly.Controller
		for id, pressed := range req.Buttons {
			c.SetButton(id, pressed)
		}
		for id, v := range req.Axes {
			c.SetAxis(id, v)
		}
		if req.POV != nil {
			c.SetPOV(*req.POV)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

// Run serves until ctx is cancelled. A listen failure is returned.
func (s *StatusService) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Status.Host, s.cfg.Status.Port)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	log.Info().Str("addr", addr).Msg("Starting status server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
