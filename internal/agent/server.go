package agent

import (
	"context"
	"log/slog"
	"net"

	"github.com/zbum/netjobs/internal/clock"
	"github.com/zbum/netjobs/internal/executor"
)

// Server binds the agent's single TCP port and serves one coordinator
// connection end to end before accepting the next (spec §4.5, §5). The
// listener uses the operating system's default backlog, so a second
// coordinator is not rejected: its connection waits, unserved, until the
// current one ends. Adapted from the teacher's tcp.Server.Start accept loop,
// stripped of its worker pool and UDP sibling since this agent only
// ever has one peer at a time.
type Server struct {
	addr   string
	exec   executor.Executor
	clk    clock.Clock
	logger *slog.Logger

	listener net.Listener
}

// NewServer constructs a Server listening on addr (e.g. ":16192").
func NewServer(addr string, exec executor.Executor, clk clock.Clock, logger *slog.Logger) *Server {
	return &Server{addr: addr, exec: exec, clk: clk, logger: logger}
}

// Start begins accepting connections. Blocks until ctx is cancelled or
// a fatal listen error occurs.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("agent listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.logger.Info("agent stopping")
				return nil
			default:
				s.logger.Error("agent accept error", "error", err)
				continue
			}
		}

		s.logger.Info("coordinator connected", "addr", conn.RemoteAddr())
		run := NewRun(conn, s.exec, s.clk, s.logger)
		run.Serve(ctx)
		s.logger.Info("coordinator disconnected", "addr", conn.RemoteAddr())
	}
}

// Addr returns the listener's bound address. Only valid after Start has
// been called; useful in tests that bind ":0" and need the ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
