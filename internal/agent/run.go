// Package agent implements the agent-side job execution state machine:
// accept a single coordinator connection, negotiate a job spec, wait for
// START, run commands concurrently, and report results back. Structured
// around an explicit phase field the way the teacher's AgentWorker
// guards a single "closed bool" under one mutex — generalized here into
// a five-state enum instead of a boolean.
package agent

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/zbum/netjobs/internal/clock"
	"github.com/zbum/netjobs/internal/executor"
	"github.com/zbum/netjobs/internal/protocol"
)

// Phase is the agent-side connection lifecycle of spec §4.5.
type Phase int

const (
	PhaseAwaitingConn Phase = iota
	PhaseAwaitingSpec
	PhaseReady
	PhaseRunning
	PhaseDraining
	PhaseClosed
)

// TimeoutNone is the internal seconds value meaning no deadline.
const TimeoutNone = 0

// timeoutPending marks a command whose explicit -timeout line hasn't
// arrived yet during configure.
const timeoutPending = -1

// Run is one accepted connection's worth of state: the negotiated job
// spec and the supervisors executing it. Lifecycle is bounded by the
// single TCP connection that owns it.
type Run struct {
	clk    clock.Clock
	exec   executor.Executor
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	logger *slog.Logger

	mu          sync.Mutex
	phase       Phase
	peerName    string
	commands    []string
	timeouts    []int // seconds; timeoutPending until the -timeout line arrives
	sosTimeout  int   // max of timeouts; timeoutPending until the first -timeout line, TimeoutNone (0) absorbs
	supervisors []*commandSupervisor
}

// NewRun constructs a Run bound to an accepted connection.
func NewRun(conn net.Conn, exec executor.Executor, clk clock.Clock, logger *slog.Logger) *Run {
	return &Run{
		clk:        clk,
		exec:       exec,
		conn:       conn,
		reader:     bufio.NewReader(conn),
		writer:     bufio.NewWriter(conn),
		logger:     logger,
		phase:      PhaseAwaitingConn,
		sosTimeout: timeoutPending,
	}
}

// Phase reports the run's current lifecycle phase.
func (r *Run) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Serve drives the connection end to end: configure, await START, run,
// report. Every exit path closes the connection itself; callers only
// need Serve to return.
func (r *Run) Serve(ctx context.Context) {
	defer r.conn.Close()

	r.setPhase(PhaseAwaitingSpec)

	if err := r.configure(); err != nil {
		r.logger.Warn("agent configure failed", "peer", r.conn.RemoteAddr(), "error", err)
		return
	}

	r.setPhase(PhaseReady)

	if err := r.awaitStart(); err != nil {
		r.logger.Warn("agent did not receive START", "peer", r.conn.RemoteAddr(), "error", err)
		return
	}

	r.setPhase(PhaseRunning)
	r.run(ctx)

	r.setPhase(PhaseDraining)
	r.setPhase(PhaseClosed)
}

func (r *Run) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
}

// configure implements AWAITING_SPEC: read key/value records, echo each
// verbatim, until READY is received. An unrecognized key closes the
// connection with no echo and no DONE (spec §9 Open Question).
func (r *Run) configure() error {
	for {
		line, err := protocol.ReadLine(r.reader)
		if err != nil {
			return err
		}

		if tok, ok := protocol.ParseToken(line); ok {
			if tok != protocol.TokenReady {
				return &protocol.ProtocolError{Reason: "unexpected token during configure: " + line}
			}
			if err := protocol.Echo(r.writer, line); err != nil {
				return err
			}
			return nil
		}

		kv, ok := protocol.ParseKV(line)
		if !ok {
			return &protocol.ProtocolError{Reason: "malformed configuration line: " + line}
		}

		if err := r.applyConfig(kv); err != nil {
			return err
		}

		if err := protocol.Echo(r.writer, line); err != nil {
			return err
		}
	}
}

func (r *Run) applyConfig(kv protocol.KV) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kv.Key {
	case "name":
		r.peerName = kv.Value
	case "command":
		r.commands = append(r.commands, kv.Value)
		r.timeouts = append(r.timeouts, timeoutPending)
	case "timeout":
		seconds, err := protocol.ParseTimeoutSeconds(kv.Value)
		if err != nil {
			return err
		}
		if len(r.timeouts) > 0 {
			r.timeouts[len(r.timeouts)-1] = seconds
		}
		// sosTimeout tracks the max of all finite timeouts seen so far;
		// timeoutPending means "no timeout line seen yet" and is
		// distinct from TimeoutNone, which absorbs permanently once any
		// command is unlimited (spec §3: sosTimeout = max of timeouts).
		switch {
		case seconds == TimeoutNone:
			r.sosTimeout = TimeoutNone
		case r.sosTimeout == TimeoutNone:
			// already absorbed by an earlier NONE; stays NONE
		case r.sosTimeout == timeoutPending || seconds > r.sosTimeout:
			r.sosTimeout = seconds
		}
	default:
		return &protocol.ProtocolError{Reason: "unrecognized configuration key: " + kv.Key}
	}
	return nil
}

// awaitStart blocks for the START token. Because configure() reads and
// consumes bytes only up through READY's own line, START is necessarily
// the next line on the wire — receipt of START is the phase boundary
// spec §9's Open Question calls for, satisfied by construction rather
// than by discarding a receive buffer.
func (r *Run) awaitStart() error {
	line, err := protocol.ReadLine(r.reader)
	if err != nil {
		return err
	}
	tok, ok := protocol.ParseToken(line)
	if !ok || tok != protocol.TokenStart {
		return &protocol.ProtocolError{Reason: "expected START, got: " + line}
	}
	return nil
}

// run implements RUNNING: start the SOS supervisor and one
// commandSupervisor per command, wait for all commands, stop the SOS
// supervisor, then send every result record followed by DONE. Serve
// moves to DRAINING/CLOSED once run returns.
func (r *Run) run(ctx context.Context) {
	r.mu.Lock()
	commands := append([]string(nil), r.commands...)
	timeouts := append([]int(nil), r.timeouts...)
	sosTimeout := r.sosTimeout
	r.mu.Unlock()

	if sosTimeout == timeoutPending {
		sosTimeout = TimeoutNone
	}

	sosDone := make(chan struct{})
	sos := newSOSSupervisor(r.conn, r.reader, r.clk, sosTimeout, r.logger)
	signal := newSOSSignal()
	go sos.run(sosDone, signal)

	supervisors := make([]*commandSupervisor, len(commands))
	for i := range commands {
		timeout := timeouts[i]
		if timeout == timeoutPending {
			timeout = TimeoutNone
		}
		supervisors[i] = newCommandSupervisor(commands[i], timeout, r.exec, r.clk, r.logger)
	}

	r.mu.Lock()
	r.supervisors = supervisors
	r.mu.Unlock()

	results := make([]protocol.ResultRecord, len(supervisors))
	var wg sync.WaitGroup
	for i, sup := range supervisors {
		wg.Add(1)
		go func(i int, sup *commandSupervisor) {
			defer wg.Done()
			results[i] = sup.run(ctx, signal)
		}(i, sup)
	}
	wg.Wait()
	close(sosDone)

	r.mu.Lock()
	peerName := r.peerName
	r.mu.Unlock()

	for _, rec := range results {
		rec.Target = peerName
		rec.Output = protocol.SanitizeOutput(rec.Output)
		if _, err := r.writer.WriteString(rec.Encode()); err != nil {
			r.logger.Warn("agent failed to send result", "error", err)
			return
		}
	}
	if err := r.writer.Flush(); err != nil {
		r.logger.Warn("agent failed to flush results", "error", err)
		return
	}

	if _, err := r.writer.WriteString(protocol.TokenDone.String()); err != nil {
		r.logger.Warn("agent failed to send DONE", "error", err)
		return
	}
	r.writer.Flush()
}
