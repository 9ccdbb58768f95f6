package agent

import (
	"bufio"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/zbum/netjobs/internal/clock"
	"github.com/zbum/netjobs/internal/protocol"
)

// sosReason is why the SOS supervisor fired, propagated to every
// commandSupervisor so their terminal status matches the cause.
type sosReason int32

const (
	sosReasonKilled sosReason = iota + 1
	sosReasonTimeout
)

// sosSignal is a broadcast, read-many firing signal: the reason is
// stored before firedCh is closed, so every commandSupervisor selecting
// on FiredCh observes the same reason once it fires, rather than racing
// to receive a single value off a channel (spec §4.6: the stop action
// applies uniformly to every running subprocess supervisor).
type sosSignal struct {
	reason  atomic.Int32
	firedCh chan struct{}
}

func newSOSSignal() *sosSignal {
	return &sosSignal{firedCh: make(chan struct{})}
}

func (s *sosSignal) fire(reason sosReason) {
	s.reason.CompareAndSwap(0, int32(reason))
	close(s.firedCh)
}

func (s *sosSignal) FiredCh() <-chan struct{} { return s.firedCh }
func (s *sosSignal) Reason() sosReason        { return sosReason(s.reason.Load()) }

// sosSupervisor watches the live connection for KILL, or for the
// sosTimeout deadline passing with no traffic, for the duration of
// RUNNING (spec §4.6).
type sosSupervisor struct {
	conn    net.Conn
	reader  *bufio.Reader
	clk     clock.Clock
	timeout int // seconds; TimeoutNone means no deadline
	logger  *slog.Logger
}

func newSOSSupervisor(conn net.Conn, reader *bufio.Reader, clk clock.Clock, timeoutSeconds int, logger *slog.Logger) *sosSupervisor {
	return &sosSupervisor{conn: conn, reader: reader, clk: clk, timeout: timeoutSeconds, logger: logger}
}

// run blocks reading lines from the connection until KILL arrives, the
// deadline passes, or done closes (RUNNING completed normally and Serve
// is about to close the connection). It fires signal at most once.
func (s *sosSupervisor) run(done <-chan struct{}, signal *sosSignal) {
	if s.timeout != TimeoutNone {
		s.conn.SetReadDeadline(s.clk.Now().Add(time.Duration(s.timeout) * time.Second))
	}

	for {
		line, err := protocol.ReadLine(s.reader)
		if err != nil {
			select {
			case <-done:
				// RUNNING already completed; this read unblocked only
				// because Serve closed the connection. Not a real SOS.
				return
			default:
			}
			if s.timeout != TimeoutNone {
				s.logger.Debug("sos supervisor timed out waiting for traffic", "error", err)
				signal.fire(sosReasonTimeout)
			}
			return
		}

		tok, ok := protocol.ParseToken(line)
		if ok && tok == protocol.TokenKill {
			signal.fire(sosReasonKilled)
			return
		}
		// Any other traffic on this connection during RUNNING is
		// unexpected; ignore it and keep watching.
	}
}
