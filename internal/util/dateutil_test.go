package util

import (
	"testing"
	"time"
)

func TestTimestamp_ParsesAsRFC3339(t *testing.T) {
	ts := Timestamp()
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Fatalf("Timestamp() produced unparseable value %q: %v", ts, err)
	}
}
