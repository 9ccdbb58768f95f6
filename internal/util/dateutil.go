// Package util holds small helpers shared across coordinator and agent
// that don't belong to any one domain package.
package util

import "time"

// Timestamp returns the current local time formatted the way
// NetJobs.py's TestConfig stamps a run: RFC3339 with nanosecond
// precision, the Go equivalent of Python's datetime.isoformat().
func Timestamp() string {
	return time.Now().Format(time.RFC3339Nano)
}
