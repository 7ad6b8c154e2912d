package scheduler

import (
	"time"

	"github.com/dokzlo13/robotd/internal/resource"
)

// RunInfo describes one running action.
type RunInfo struct {
	Action    string    `json:"action"`
	RunID     string    `json:"run_id"`
	Period    uint64    `json:"started_period"`
	StartedAt time.Time `json:"started_at"`
	Requires  []string  `json:"requires"`
}

// Snapshot is a copy of scheduler state, safe to hand to other goroutines.
type Snapshot struct {
	Period  uint64            `json:"period"`
	Running []RunInfo         `json:"running"`
	Claims  map[string]string `json:"claims"`
}

// Snapshot copies the current running set and claim table.
func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{
		Period:  s.period,
		Running: make([]RunInfo, 0, len(s.running)),
		Claims:  make(map[string]string, len(s.resources)),
	}
	for _, e := range s.running {
		snap.Running = append(snap.Running, RunInfo{
			Action:    e.action.Name(),
			RunID:     e.run.ID.String(),
			Period:    e.run.Period,
			StartedAt: e.run.StartedAt,
			Requires:  resource.Names(e.action.Requirements()),
		})
	}
	for _, r := range s.resources {
		owner := ""
		if e, ok := s.claims[r]; ok {
			owner = e.action.Name()
		}
		snap.Claims[r.Name()] = owner
	}
	return snap
}
