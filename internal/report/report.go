// Package report serializes a completed test's results to CSV. No
// library in the retrieved corpus offers CSV writing beyond the
// standard library, so this is the one component built directly on
// encoding/csv rather than a third-party dependency (spec §6:
// "persistence. None... a surrounding collaborator may serialize
// test.results to CSV").
package report

import (
	"encoding/csv"
	"io"
	"sort"

	"github.com/zbum/netjobs/internal/coordinator"
)

// WriteCSV writes one row per (target, command) result, sorted by
// target then command for deterministic output, with columns
// target,command,status,output.
func WriteCSV(w io.Writer, test *coordinator.Test) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"#", test.Plan().Label, test.Timestamp}); err != nil {
		return err
	}
	if err := cw.Write([]string{"target", "command", "status", "output"}); err != nil {
		return err
	}

	results := test.Results()
	keys := make([][2]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	for _, k := range keys {
		rec := results[k]
		if err := cw.Write([]string{k[0], k[1], string(rec.Status), rec.Output}); err != nil {
			return err
		}
	}

	return cw.Error()
}
