package coordinator

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/zbum/netjobs/internal/plan"
	"github.com/zbum/netjobs/internal/protocol"
)

// prepareAgent opens a connection to target:port, negotiates the job
// spec over it, and returns a ready AgentSession. Any failure (connect,
// echo mismatch, protocol error) is returned as an error; the caller
// routes it through abortPolicy (spec §4.2 step 1).
func prepareAgent(target string, port int, coordinatorName string, jobs []plan.Job) (*AgentSession, error) {
	addr := net.JoinHostPort(target, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("coordinator: dial %s: %w", addr, err)
	}
	conn.SetDeadline(time.Now().Add(connectTimeout))

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	sendLine := func(line string) error {
		return protocol.SendAndExpectEcho(writer, reader, line)
	}

	if err := sendLine("name" + "\t" + coordinatorName + "\n"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("coordinator: %s: negotiate name: %w", target, err)
	}

	for _, job := range jobs {
		if err := sendLine("command\t" + job.Command + "\n"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("coordinator: %s: negotiate command: %w", target, err)
		}
		if err := sendLine("timeout\t" + strconv.Itoa(job.Timeout) + "\n"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("coordinator: %s: negotiate timeout: %w", target, err)
		}
	}

	if err := sendLine(protocol.TokenReady.String()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("coordinator: %s: negotiate READY: %w", target, err)
	}

	// Clear the configure-phase deadline; the listener applies its own.
	conn.SetDeadline(time.Time{})

	return &AgentSession{
		Target:          target,
		Conn:            conn,
		Reader:          reader,
		Writer:          writer,
		Jobs:            jobs,
		ListenerTimeout: listenerTimeout(jobs),
		State:           StateReady,
	}, nil
}
