// Package heartbeat runs cron-scheduled housekeeping tasks independently of
// the reasoning loop (spec.md §4.4): liveness ping, credit check, on-chain
// balance check, inbox poll, upstream check, and internal health check. It
// shares the state store and gateways with the reasoning loop and signals it
// only through the well-known sleep_until/wake_request KV keys.
package heartbeat

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/survival"
)

// Names of the six built-in tasks (spec.md §4.4).
const (
	TaskPing          = "ping"
	TaskCreditCheck   = "credit_check"
	TaskUpstreamCheck = "upstream_check"
	TaskChainBalance  = "chain_balance"
	TaskInboxPoll     = "inbox_poll"
	TaskHealthCheck   = "health_check"
)

// Result is what a Task reports back to the daemon after running.
type Result struct {
	ShouldWake bool
	WakeReason string
}

// Task is one heartbeat job. ctx is cancelled when the daemon is asked to
// stop; a Task already running is allowed to finish (spec.md §4.4
// cancellation contract is enforced by the daemon, not the task itself).
type Task func(ctx context.Context, store state.Store) (Result, error)

// Daemon runs the tick loop described in spec.md §4.4: a single cooperative
// ticker fires every TickInterval; on each tick every enabled entry whose
// cron schedule is due runs sequentially.
type Daemon struct {
	store    state.Store
	tasks    map[string]Task
	tick     time.Duration
	running  atomic.Bool
	loggedBadSchedule map[string]bool
}

// DefaultTickInterval is T_tick from spec.md §4.4.
const DefaultTickInterval = 30 * time.Second

// NewDaemon creates a Daemon bound to store with no tasks registered.
// Callers register the built-in tasks (and any others) via RegisterTask
// before calling Run.
func NewDaemon(store state.Store, tick time.Duration) *Daemon {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	d := &Daemon{
		store:             store,
		tasks:             make(map[string]Task),
		tick:              tick,
		loggedBadSchedule: make(map[string]bool),
	}
	return d
}

// RegisterTask adds or replaces the Task dispatched for name.
func (d *Daemon) RegisterTask(name string, t Task) {
	d.tasks[name] = t
}

// Run executes the tick loop until ctx is cancelled or Stop is called.
// Cancellation is cooperative: the running flag is checked once per tick;
// an in-flight tick's tasks always finish before Run returns.
func (d *Daemon) Run(ctx context.Context) {
	d.running.Store(true)
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !d.running.Load() {
				return
			}
			d.runDueTasks(ctx)
		}
	}
}

// Stop requests cooperative shutdown; the daemon exits on its next tick.
func (d *Daemon) Stop() {
	d.running.Store(false)
}

func (d *Daemon) runDueTasks(ctx context.Context) {
	entries, err := d.store.ListHeartbeatEntries(ctx)
	if err != nil {
		log.Printf("[heartbeat] list entries: %v", err)
		return
	}

	now := time.Now()
	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}
		task, ok := d.tasks[entry.Task]
		if !ok {
			continue
		}
		if !d.isDue(entry, now) {
			continue
		}
		if !survival.HeartbeatAllowed(d.currentTier(ctx), entry.Task) {
			continue
		}

		result, err := task(ctx, d.store)
		if err != nil {
			log.Printf("[heartbeat] task %q failed: %v", entry.Name, err)
			continue
		}
		if markErr := d.store.MarkHeartbeatRun(ctx, entry.Name, now); markErr != nil {
			log.Printf("[heartbeat] mark run %q: %v", entry.Name, markErr)
		}
		if result.ShouldWake {
			_ = d.store.KVSet(ctx, state.KeyWakeRequest, result.WakeReason)
		}
	}
}

// isDue implements spec.md §4.4's due-check: no previous last_run is always
// due; otherwise the entry's cron schedule must have a next firing at or
// before now after last_run. An unparseable schedule is logged once and
// treated as never due.
func (d *Daemon) isDue(entry state.HeartbeatEntry, now time.Time) bool {
	if entry.LastRun == nil {
		return true
	}
	schedule, err := cron.ParseStandard(entry.Schedule)
	if err != nil {
		// Six-field schedules with a leading seconds field, e.g. "0 */5 * * * *".
		schedule, err = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(entry.Schedule)
	}
	if err != nil {
		if !d.loggedBadSchedule[entry.Name] {
			log.Printf("[heartbeat] entry %q has an unparseable schedule %q: %v; treating as never due", entry.Name, entry.Schedule, err)
			d.loggedBadSchedule[entry.Name] = true
		}
		return false
	}
	next := schedule.Next(*entry.LastRun)
	return !next.After(now)
}

func (d *Daemon) currentTier(ctx context.Context) state.SurvivalTier {
	fs, err := d.store.GetFinancialState(ctx)
	if err != nil {
		return state.TierNormal
	}
	return survival.Tier(fs.CreditsCents)
}
