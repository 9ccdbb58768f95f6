package coordinator

import (
	"io"
	"log/slog"

	"github.com/zbum/netjobs/internal/plan"
	"github.com/zbum/netjobs/internal/protocol"
)

// NewTestForTesting exposes newTest to other packages' tests (internal/report)
// without giving them access to the unexported Test fields directly.
func NewTestForTesting(tp plan.TestPlan) *Test {
	return newTest(tp, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// StoreResultForTesting exposes storeResult to other packages' tests.
func (t *Test) StoreResultForTesting(target string, rec protocol.ResultRecord) {
	t.storeResult(target, rec)
}
