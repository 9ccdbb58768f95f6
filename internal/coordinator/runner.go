package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zbum/netjobs/internal/plan"
	"github.com/zbum/netjobs/internal/protocol"
)

// Runner executes a sequence of test plans, one at a time, driving each
// test's agents through prepare, start, and collection phases
// (spec §4.2).
type Runner struct {
	AgentPort       int
	CoordinatorName string
	Logger          *slog.Logger
}

// NewRunner constructs a Runner. coordinatorName is the identifier sent
// to every agent as the "name" configuration value.
func NewRunner(agentPort int, coordinatorName string, logger *slog.Logger) *Runner {
	return &Runner{AgentPort: agentPort, CoordinatorName: coordinatorName, Logger: logger}
}

// RunAll executes every test plan sequentially and returns the
// completed *Test for each, in plan order.
func (r *Runner) RunAll(ctx context.Context, tests []plan.TestPlan) []*Test {
	results := make([]*Test, 0, len(tests))
	for _, tp := range tests {
		results = append(results, r.runOne(ctx, tp))
	}
	return results
}

// runOne drives a single test through prepare, start, and collection.
func (r *Runner) runOne(ctx context.Context, tp plan.TestPlan) *Test {
	runID := uuid.NewString()
	logger := r.Logger.With("test", tp.Label, "run_id", runID)
	test := newTest(tp, logger)

	logger.Info("test starting", "targets", len(tp.TargetOrder), "minHosts", tp.MinHosts)

	// Prepare phase: fan out one prepareAgent call per target
	// concurrently via errgroup, grounded on Baxromumarov-2pc-engine's
	// two-phase-commit coordinator fanning out prepare-phase RPCs the
	// same way. The group doesn't abort the whole prepare step on one
	// agent's failure — partial availability is a first-class outcome
	// here, unlike 2PC.
	sessions := make([]*AgentSession, len(tp.TargetOrder))
	var eg errgroup.Group
	for i, target := range tp.TargetOrder {
		i, target := i, target
		jobs := tp.Targets[target]
		eg.Go(func() error {
			session, err := prepareAgent(target, r.AgentPort, r.CoordinatorName, jobs)
			if err != nil {
				logger.Warn("prepare failed", "target", target, "error", err)
				return nil // recorded via sessions[i] == nil, not an errgroup abort
			}
			sessions[i] = session
			return nil
		})
	}
	eg.Wait()

	var failedTargets []string
	for i, session := range sessions {
		if session == nil {
			failedTargets = append(failedTargets, tp.TargetOrder[i])
		}
	}
	for _, target := range failedTargets {
		test.abortPolicy(target)
		test.signoff(target, tp.Targets[target])
	}

	if test.Aborted() {
		logger.Info("test aborted during prepare phase")
		return test
	}

	// Start phase: register every listener before sending START, so no
	// result can be lost to a race with listener startup (spec §4.2
	// step 2).
	var listeners []*Listener
	for _, session := range sessions {
		if session == nil {
			continue
		}
		l := newListener(session, test)
		test.registerListener(session.Target, l)
		listeners = append(listeners, l)
	}

	var wg sync.WaitGroup
	for _, l := range listeners {
		l := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.run()
		}()
	}

	for _, session := range sessions {
		if session == nil {
			continue
		}
		if _, err := session.Writer.WriteString(protocol.TokenStart.String()); err != nil {
			logger.Warn("failed to send START", "target", session.Target, "error", err)
			continue
		}
		session.Writer.Flush()
	}

	// Collection phase: block until every listener terminates.
	wg.Wait()

	logger.Info("test complete", "aborted", test.Aborted())
	return test
}
