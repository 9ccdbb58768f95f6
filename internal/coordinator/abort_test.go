package coordinator

import (
	"io"
	"log/slog"
	"testing"

	"github.com/zbum/netjobs/internal/plan"
	"github.com/zbum/netjobs/internal/protocol"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAbortPolicy_MinHostsThreshold(t *testing.T) {
	cases := []struct {
		name        string
		n, k, m     int
		wantAborted bool
	}{
		{"all succeed", 3, 2, 0, false},
		{"one fails, within budget", 3, 2, 1, false},
		{"two fail, exceeds budget", 3, 2, 2, true},
		{"exactly at threshold", 4, 2, 2, false},
		{"one over threshold", 4, 2, 3, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			targets := make(map[string][]plan.Job)
			var order []string
			for i := 0; i < c.n; i++ {
				name := string(rune('a' + i))
				targets[name] = []plan.Job{{Command: "echo ok", Timeout: plan.TimeoutNone}}
				order = append(order, name)
			}
			tp := plan.TestPlan{Label: "t", MinHosts: c.k, Targets: targets, TargetOrder: order}
			test := newTest(tp, discardLogger())

			for i := 0; i < c.m; i++ {
				test.abortPolicy(order[i])
			}

			if test.Aborted() != c.wantAborted {
				t.Errorf("N=%d K=%d M=%d: aborted = %v, want %v", c.n, c.k, c.m, test.Aborted(), c.wantAborted)
			}
		})
	}
}

func TestAbortPolicy_MinHostsAll_AbortsOnFirstFailure(t *testing.T) {
	targets := map[string][]plan.Job{
		"a": {{Command: "echo ok", Timeout: plan.TimeoutNone}},
		"b": {{Command: "echo ok", Timeout: plan.TimeoutNone}},
	}
	tp := plan.TestPlan{Label: "t", MinHosts: plan.MinHostsAll, Targets: targets, TargetOrder: []string{"a", "b"}}
	test := newTest(tp, discardLogger())

	test.abortPolicy("a")
	if !test.Aborted() {
		t.Fatal("expected abort on first failure when minHosts == ALL")
	}
}

func TestAbortPolicy_IdempotentOnceAborted(t *testing.T) {
	targets := map[string][]plan.Job{
		"a": {{Command: "echo ok", Timeout: plan.TimeoutNone}},
	}
	tp := plan.TestPlan{Label: "t", MinHosts: plan.MinHostsAll, Targets: targets, TargetOrder: []string{"a"}}
	test := newTest(tp, discardLogger())

	test.abortPolicy("a")
	test.abortPolicy("a") // must not panic or double-log
	if !test.Aborted() {
		t.Fatal("expected aborted")
	}
}

func TestSignoff_FillsUnreportedCommandsAsKilled(t *testing.T) {
	tp := plan.TestPlan{Label: "t", MinHosts: plan.MinHostsAll}
	test := newTest(tp, discardLogger())

	jobs := []plan.Job{{Command: "echo one"}, {Command: "echo two"}}
	test.signoff("t1", jobs)

	results := test.Results()
	for _, job := range jobs {
		rec, ok := results[[2]string{"t1", job.Command}]
		if !ok {
			t.Fatalf("missing result for %s", job.Command)
		}
		if rec.Status != "KILLED" {
			t.Errorf("status = %s, want KILLED", rec.Status)
		}
	}
}

func TestSignoff_DoesNotOverwriteRealResult(t *testing.T) {
	tp := plan.TestPlan{Label: "t"}
	test := newTest(tp, discardLogger())

	job := plan.Job{Command: "echo one"}
	test.storeResult("t1", protocol.ResultRecord{Command: job.Command, Status: protocol.StatusSuccess, Output: "ok\n"})
	test.signoff("t1", []plan.Job{job})

	results := test.Results()
	rec := results[[2]string{"t1", job.Command}]
	if rec.Status != "SUCCESS" {
		t.Errorf("status = %s, want SUCCESS (signoff must not overwrite)", rec.Status)
	}
}
