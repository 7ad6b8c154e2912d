package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/robotd/internal/actions/actionstest"
	"github.com/dokzlo13/robotd/internal/db"
	"github.com/dokzlo13/robotd/internal/eventbus"
	"github.com/dokzlo13/robotd/internal/resource"
	"github.com/dokzlo13/robotd/internal/scheduler"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestAppendAndQuery(t *testing.T) {
	l := openLedger(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, l.Append(Entry{EventType: EventActionStarted, Timestamp: now, RunID: "r1", Action: "shoot", Period: 10}))
	require.NoError(t, l.Append(Entry{EventType: EventActionStarted, Timestamp: now, RunID: "r2", Action: "drive", Period: 11}))
	require.NoError(t, l.Append(Entry{
		EventType: EventActionFinished,
		Timestamp: now.Add(40 * time.Millisecond),
		RunID:     "r1",
		Action:    "shoot",
		Period:    12,
		Payload:   map[string]any{"periods": 2},
	}))

	recent, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, EventActionFinished, recent[0].EventType)
	assert.Equal(t, "r2", recent[1].RunID)

	run, err := l.ByRun("r1")
	require.NoError(t, err)
	require.Len(t, run, 2)
	assert.Equal(t, EventActionStarted, run[0].EventType)
	assert.True(t, now.Equal(run[0].Timestamp), "timestamp round-trips at millisecond precision")
	assert.Equal(t, uint64(12), run[1].Period)
	assert.Equal(t, map[string]any{"periods": float64(2)}, run[1].Payload)

	started, err := l.GetByType(EventActionStarted, 10)
	require.NoError(t, err)
	assert.Len(t, started, 2)
}

func TestDeleteOlderThan(t *testing.T) {
	l := openLedger(t)

	require.NoError(t, l.Append(Entry{EventType: EventActionStarted, Timestamp: time.Now().Add(-48 * time.Hour), RunID: "old", Action: "a"}))
	require.NoError(t, l.Append(Entry{EventType: EventActionStarted, RunID: "new", Action: "a"}))

	deleted, err := l.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	left, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].RunID)
}

func TestRecorderWritesLifecycle(t *testing.T) {
	l := openLedger(t)
	bus := eventbus.NewWithConfig(1, 64)
	l.Subscribe(bus)

	drive := resource.New("drive")
	s := scheduler.New(scheduler.WithObserver(NewRecorder(bus)))
	require.NoError(t, s.AddResource(drive))

	forward := actionstest.New(nil, "forward", 2, drive)
	joystick := actionstest.New(nil, "joystick", 0, drive)

	s.RequestStart(joystick)
	require.NoError(t, s.RunPeriod())
	s.RequestStart(forward)
	require.NoError(t, s.RunPeriod())
	require.NoError(t, s.RunPeriod())

	// Close waits for queued writes.
	bus.Close(context.Background())

	entries, err := l.Recent(10)
	require.NoError(t, err)

	var got []string
	for i := len(entries) - 1; i >= 0; i-- {
		got = append(got, entries[i].Action+" "+string(entries[i].EventType))
	}
	want := []string{
		"joystick action_started",
		"joystick action_interrupted",
		"forward action_started",
		"forward action_finished",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ledger mismatch (-want +got):\n%s", diff)
	}

	finished, err := l.GetByType(EventActionFinished, 1)
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, uint64(2), finished[0].Period)
	assert.Equal(t, float64(1), finished[0].Payload["periods"], "started in period 1")

	run, err := l.ByRun(finished[0].RunID)
	require.NoError(t, err)
	assert.Len(t, run, 2, "started and finished share a run id")
}

func TestRecorderModeChange(t *testing.T) {
	l := openLedger(t)
	bus := eventbus.NewWithConfig(1, 8)
	l.Subscribe(bus)

	NewRecorder(bus).ModeChanged("disabled", "teleop", 0)
	bus.Close(context.Background())

	entries, err := l.GetByType(EventModeChanged, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]any{"from": "disabled", "to": "teleop"}, entries[0].Payload)
}
