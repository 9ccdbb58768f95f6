package coordinator

import "github.com/zbum/netjobs/internal/plan"

// abortPolicy is invoked when any agent connection fails, its listener
// times out, or a per-listener error fires (spec §4.4). Logic matches
// spec.md §4.4 verbatim: once testAborted is set, every active listener
// is killed and the test ends early; otherwise the test continues with
// one fewer timeout in its budget.
func (t *Test) abortPolicy(target string) {
	t.mu.Lock()

	if t.testAborted {
		t.mu.Unlock()
		return
	}

	if t.plan.MinHosts == plan.MinHostsAll {
		t.testAborted = true
		t.logger.Warn("test requires all hosts but host timed out", "test", t.plan.Label, "host", target)
		listeners := t.snapshotListenersLocked()
		t.mu.Unlock()
		killAll(listeners)
		return
	}

	if t.hasTimeoutBudget && t.timeoutsRemaining < 1 {
		t.testAborted = true
		t.logger.Warn("too many timeouts; test requires minimum hosts",
			"test", t.plan.Label, "minHosts", t.plan.MinHosts)
		listeners := t.snapshotListenersLocked()
		t.mu.Unlock()
		killAll(listeners)
		return
	}

	if t.hasTimeoutBudget {
		t.timeoutsRemaining--
	}
	t.mu.Unlock()
}

// snapshotListenersLocked must be called with t.mu held.
func (t *Test) snapshotListenersLocked() []*Listener {
	out := make([]*Listener, 0, len(t.listeners))
	for _, l := range t.listeners {
		out = append(out, l)
	}
	return out
}

func killAll(listeners []*Listener) {
	for _, l := range listeners {
		l.kill()
	}
}
