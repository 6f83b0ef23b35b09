package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/pocketomega/automaton/internal/state"
)

func TestIsDueNoPriorRunAlwaysDue(t *testing.T) {
	d := NewDaemon(state.NewMemoryStore(), time.Second)
	entry := state.HeartbeatEntry{Name: "ping", Schedule: "* * * * *"}
	if !d.isDue(entry, time.Now()) {
		t.Fatalf("entry with no last_run must be due")
	}
}

func TestIsDueRespectsSchedule(t *testing.T) {
	d := NewDaemon(state.NewMemoryStore(), time.Second)
	last := time.Now().Add(-2 * time.Minute)
	entry := state.HeartbeatEntry{Name: "ping", Schedule: "* * * * *", LastRun: &last}
	if !d.isDue(entry, time.Now()) {
		t.Fatalf("a minutely schedule two minutes past last_run must be due")
	}
}

func TestIsDueInvalidScheduleNeverDue(t *testing.T) {
	d := NewDaemon(state.NewMemoryStore(), time.Second)
	last := time.Now().Add(-time.Hour)
	entry := state.HeartbeatEntry{Name: "broken", Schedule: "not a cron string", LastRun: &last}
	if d.isDue(entry, time.Now()) {
		t.Fatalf("an unparseable schedule must never be due")
	}
}

func TestRunDueTasksExecutesEnabledEntries(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	if err := store.UpsertHeartbeatEntry(ctx, state.HeartbeatEntry{
		Name: "ping", Schedule: "* * * * *", Task: TaskPing, Enabled: true,
	}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	d := NewDaemon(store, time.Second)
	ran := false
	d.RegisterTask(TaskPing, func(ctx context.Context, store state.Store) (Result, error) {
		ran = true
		return Result{}, nil
	})

	d.runDueTasks(ctx)
	if !ran {
		t.Fatalf("expected the ping task to run")
	}

	entries, _ := store.ListHeartbeatEntries(ctx)
	if entries[0].LastRun == nil {
		t.Fatalf("expected last_run to be stamped after a successful run")
	}
}

func TestRunDueTasksSetsWakeRequest(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	_ = store.UpsertHeartbeatEntry(ctx, state.HeartbeatEntry{
		Name: "credit_check", Schedule: "* * * * *", Task: TaskCreditCheck, Enabled: true,
	})

	d := NewDaemon(store, time.Second)
	d.RegisterTask(TaskCreditCheck, func(ctx context.Context, store state.Store) (Result, error) {
		return Result{ShouldWake: true, WakeReason: "test wake"}, nil
	})

	d.runDueTasks(ctx)
	reason, ok, _ := store.KVGet(ctx, state.KeyWakeRequest)
	if !ok || reason != "test wake" {
		t.Fatalf("expected wake_request to be set, got ok=%v reason=%q", ok, reason)
	}
}
