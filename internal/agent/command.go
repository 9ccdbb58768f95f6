package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/zbum/netjobs/internal/clock"
	"github.com/zbum/netjobs/internal/executor"
	"github.com/zbum/netjobs/internal/protocol"
)

const pollInterval = 200 * time.Millisecond

// commandSupervisor owns one spawned subprocess end to end: start, poll
// to a wall-clock deadline, terminate on timeout or external kill, and
// compose exactly one result record (spec §4.7).
type commandSupervisor struct {
	command string
	timeout int // seconds; TimeoutNone means no deadline
	exec    executor.Executor
	clk     clock.Clock
	logger  *slog.Logger
}

func newCommandSupervisor(command string, timeoutSeconds int, exec executor.Executor, clk clock.Clock, logger *slog.Logger) *commandSupervisor {
	return &commandSupervisor{command: command, timeout: timeoutSeconds, exec: exec, clk: clk, logger: logger}
}

// run spawns the command and blocks until it completes, times out, or
// signal fires with an external reason (KILL or SOS-level timeout). It
// always returns exactly one result record.
func (s *commandSupervisor) run(ctx context.Context, signal *sosSignal) protocol.ResultRecord {
	proc, err := s.exec.Start(s.command)
	if err != nil {
		return protocol.ResultRecord{
			Command: s.command,
			Status:  protocol.StatusError,
			Output:  err.Error(),
		}
	}

	deadline := clock.NewDeadline(s.clk.Now(), time.Duration(s.timeout)*time.Second)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := proc.Wait(runCtx, pollInterval)

	for {
		select {
		case <-done:
			return s.finalize(proc)

		case <-signal.FiredCh():
			proc.Terminate()
			<-done
			if signal.Reason() == sosReasonKilled {
				return protocol.ResultRecord{Command: s.command, Status: protocol.StatusKilled}
			}
			return protocol.ResultRecord{Command: s.command, Status: protocol.StatusTimeout}

		case <-s.clk.After(pollInterval):
			if deadline.HasLimit() && deadline.Expired(s.clk.Now()) {
				proc.Terminate()
				<-done
				return protocol.ResultRecord{Command: s.command, Status: protocol.StatusTimeout}
			}
		}
	}
}

// finalize composes the record once the process has actually exited on
// its own: SUCCESS iff exit code 0 and stderr is empty, else ERROR with
// stderr as output (spec §4.7).
func (s *commandSupervisor) finalize(proc executor.Process) protocol.ResultRecord {
	stderr := string(proc.Stderr())
	if proc.ExitCode() == 0 && stderr == "" {
		return protocol.ResultRecord{
			Command: s.command,
			Status:  protocol.StatusSuccess,
			Output:  string(proc.Stdout()),
		}
	}
	return protocol.ResultRecord{
		Command: s.command,
		Status:  protocol.StatusError,
		Output:  stderr,
	}
}
