package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zbum/netjobs/internal/coordinator"
	"github.com/zbum/netjobs/internal/plan"
	"github.com/zbum/netjobs/internal/protocol"
)

func TestWriteCSV(t *testing.T) {
	tp := plan.TestPlan{
		Label: "t",
		Targets: map[string][]plan.Job{
			"t1": {{Command: "echo hi"}},
		},
		TargetOrder: []string{"t1"},
	}

	test := coordinator.NewTestForTesting(tp)
	test.StoreResultForTesting("t1", protocol.ResultRecord{
		Target:  "t1",
		Command: "echo hi",
		Status:  protocol.StatusSuccess,
		Output:  "hi\n",
	})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, test); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "target,command,status,output") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "t1,echo hi,SUCCESS,\"hi\n\"") {
		t.Errorf("missing data row: %q", out)
	}
}
