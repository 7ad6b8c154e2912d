package ledger

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/robotd/internal/eventbus"
	"github.com/dokzlo13/robotd/internal/resource"
	"github.com/dokzlo13/robotd/internal/scheduler"
)

// Recorder turns scheduler lifecycle callbacks into bus events. It runs on
// the loop goroutine, so it only copies fields and publishes.
type Recorder struct {
	bus *eventbus.Bus
}

// NewRecorder creates a recorder publishing to bus.
func NewRecorder(bus *eventbus.Bus) *Recorder {
	return &Recorder{bus: bus}
}

// ActionStarted implements scheduler.Observer.
func (r *Recorder) ActionStarted(run scheduler.Run) {
	r.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeActionStarted,
		Data: map[string]any{
			"run_id":    run.ID.String(),
			"action":    run.Action.Name(),
			"period":    run.Period,
			"timestamp": run.StartedAt,
			"requires":  resource.Names(run.Action.Requirements()),
		},
	})
}

// ActionEnded implements scheduler.Observer.
func (r *Recorder) ActionEnded(run scheduler.Run, reason scheduler.EndReason, period uint64, err error) {
	data := map[string]any{
		"run_id":    run.ID.String(),
		"action":    run.Action.Name(),
		"period":    period,
		"timestamp": time.Now(),
		"reason":    reason.String(),
		"duration":  period - run.Period,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	r.bus.Publish(eventbus.Event{Type: eventbus.EventTypeActionEnded, Data: data})
}

// Subscribe appends every lifecycle event on the bus to the ledger.
func (l *Ledger) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeActionStarted, func(e eventbus.Event) {
		entry := entryFromEvent(e, EventActionStarted)
		if reqs, ok := e.Data["requires"].([]string); ok {
			entry.Payload = map[string]any{"requires": reqs}
		}
		l.appendLogged(entry)
	})

	bus.Subscribe(eventbus.EventTypeActionEnded, func(e eventbus.Event) {
		reason, _ := e.Data["reason"].(string)
		entry := entryFromEvent(e, endEventType(reason))
		entry.Payload = map[string]any{}
		if d, ok := e.Data["duration"].(uint64); ok {
			entry.Payload["periods"] = d
		}
		if msg, ok := e.Data["error"].(string); ok {
			entry.Payload["error"] = msg
		}
		l.appendLogged(entry)
	})

	bus.Subscribe(eventbus.EventTypeModeChanged, func(e eventbus.Event) {
		entry := entryFromEvent(e, EventModeChanged)
		entry.Payload = map[string]any{"from": e.Data["from"], "to": e.Data["to"]}
		l.appendLogged(entry)
	})
}

// ModeChanged publishes a match mode transition.
func (r *Recorder) ModeChanged(from, to string, period uint64) {
	r.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeModeChanged,
		Data: map[string]any{
			"from":      from,
			"to":        to,
			"period":    period,
			"timestamp": time.Now(),
		},
	})
}

func (l *Ledger) appendLogged(entry Entry) {
	if err := l.Append(entry); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(entry.EventType)).
			Str("action", entry.Action).
			Msg("Failed to write ledger entry")
	}
}

func entryFromEvent(e eventbus.Event, t EventType) Entry {
	entry := Entry{EventType: t}
	entry.RunID, _ = e.Data["run_id"].(string)
	entry.Action, _ = e.Data["action"].(string)
	entry.Period, _ = e.Data["period"].(uint64)
	entry.Timestamp, _ = e.Data["timestamp"].(time.Time)
	return entry
}

func endEventType(reason string) EventType {
	switch reason {
	case "interrupted":
		return EventActionInterrupted
	case "faulted":
		return EventActionFaulted
	default:
		return EventActionFinished
	}
}
