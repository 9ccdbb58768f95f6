// Package coordinator implements the coordinator-side orchestration:
// prepare many agent connections in parallel, release them together
// with START, multiplex their result streams, and apply the minhosts
// abort policy. Shared per-test state lives behind one mutex on *Test,
// the way the teacher's AgentManager guards its agents map with a
// single sync.Mutex (never RWMutex).
package coordinator

import (
	"bufio"
	"net"
	"time"

	"github.com/zbum/netjobs/internal/plan"
)

// SessionState is an AgentSession's lifecycle (spec §3).
type SessionState int

const (
	StateConnecting SessionState = iota
	StateConfiguring
	StateReady
	StateRunning
	StateDone
	StateKilled
	StateTimedOut
	StateFailed
)

// AgentSession is the coordinator's per-target, per-test state: the
// owned connection, the target's jobs, and the listener timeout derived
// from them. Owned exclusively by the coordinator for the duration of
// one test.
type AgentSession struct {
	Target          string
	Conn            net.Conn
	Reader          *bufio.Reader
	Writer          *bufio.Writer
	Jobs            []plan.Job
	ListenerTimeout int // seconds; plan.TimeoutNone means no deadline
	State           SessionState
}

// listenerTimeout returns the max of the target's job timeouts, or
// plan.TimeoutNone if any job has no limit (NONE absorbs), matching
// AgentRun.sosTimeout's derivation on the agent side.
func listenerTimeout(jobs []plan.Job) int {
	max := 0
	for _, j := range jobs {
		if j.Timeout == plan.TimeoutNone {
			return plan.TimeoutNone
		}
		if j.Timeout > max {
			max = j.Timeout
		}
	}
	return max
}

// connectTimeout is the fixed connect/read timeout during prepare
// (spec §6: "Connect/read timeout 60 s").
const connectTimeout = 60 * time.Second
