package coordinator

import (
	"log/slog"
	"sync"

	"github.com/zbum/netjobs/internal/plan"
	"github.com/zbum/netjobs/internal/protocol"
	"github.com/zbum/netjobs/internal/util"
)

// resultKey identifies one (target, command) result slot. Go maps don't
// preserve iteration order, so Test additionally keeps the plan's
// declaration order for deterministic signoff synthesis (spec §9).
type resultKey struct {
	target  string
	command string
}

// Test is the coordinator's per-test shared state: results, the abort
// flag, the remaining-timeouts budget, and the active listener
// registry. All of it is mutated by multiple listener goroutines and by
// abortPolicy, so it lives behind one mutex, exactly as spec §9's
// "shared registries" note prescribes — grounded on the teacher's
// AgentManager.mu-guarded agents map.
type Test struct {
	plan      plan.TestPlan
	logger    *slog.Logger
	Timestamp string // RFC3339, stamped at creation; spec §8's run record

	mu                sync.Mutex
	results           map[resultKey]protocol.ResultRecord
	testAborted       bool
	timeoutsRemaining int  // failures still tolerated; used only when hasTimeoutBudget
	hasTimeoutBudget  bool // false when minHosts == ALL (handled by its own rule)
	listeners         map[string]*Listener
}

func newTest(p plan.TestPlan, logger *slog.Logger) *Test {
	t := &Test{
		plan:      p,
		logger:    logger,
		Timestamp: util.Timestamp(),
		results:   make(map[resultKey]protocol.ResultRecord),
		listeners: make(map[string]*Listener),
	}
	if p.MinHosts != plan.MinHostsAll {
		t.hasTimeoutBudget = true
		t.timeoutsRemaining = len(p.TargetOrder) - p.MinHosts
	}
	return t
}

// storeResult records one (target, command) result. Safe for concurrent
// callers.
func (t *Test) storeResult(target string, rec protocol.ResultRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[resultKey{target: target, command: rec.Command}] = rec
}

// registerListener adds l to the active registry under target.
func (t *Test) registerListener(target string, l *Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners[target] = l
}

// Results returns a copy of the accumulated result map, keyed by
// [2]string{target, command} for callers (like internal/report) that
// don't need the struct key type.
func (t *Test) Results() map[[2]string]protocol.ResultRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[[2]string]protocol.ResultRecord, len(t.results))
	for k, v := range t.results {
		out[[2]string{k.target, k.command}] = v
	}
	return out
}

// Aborted reports whether the test's abort policy fired.
func (t *Test) Aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.testAborted
}

// Plan returns the TestPlan this Test executes.
func (t *Test) Plan() plan.TestPlan {
	return t.plan
}

// signoff synthesizes a KILLED result for every command in target's
// plan whose result is still unset, guaranteeing every (target,
// command) pair has exactly one record once the listener joins
// (spec §4.3).
func (t *Test) signoff(target string, jobs []plan.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, job := range jobs {
		key := resultKey{target: target, command: job.Command}
		if _, ok := t.results[key]; !ok {
			t.results[key] = protocol.ResultRecord{
				Target:  target,
				Command: job.Command,
				Status:  protocol.StatusKilled,
				Output:  "",
			}
		}
	}
}
