package acp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// StartAgent runs this process as the agent side of the protocol, reading
// requests from stdin and writing responses to stdout — the shape every
// ACP agent binary takes when an editor spawns it as a subprocess. Run
// blocks until the client closes its end of stdin or ctx is cancelled.
func StartAgent[S any](ctx context.Context, handler Handler[S], opts ConnectionOptions) error {
	conn, err := NewConnection[S](ctx, RoleAgent, os.Stdin, os.Stdout, handler, opts)
	if err != nil {
		return err
	}
	return conn.Run(ctx)
}

// AgentProcess is a spawned agent subprocess and the client-role
// connection wired to its stdio.
type AgentProcess[S any] struct {
	Conn *Connection[S]
	cmd  *exec.Cmd
}

// StartClient spawns agentPath as a subprocess, connects its stdin/stdout
// to a client-role Connection, and starts that connection's read loop in
// the background. Callers drive the protocol through Conn (e.g.
// Conn.SendRequest(ctx, "initialize", ...)) and call Stop when done.
func StartClient[S any](ctx context.Context, agentPath string, args []string, handler Handler[S], opts ConnectionOptions) (*AgentProcess[S], error) {
	resolved, err := exec.LookPath(agentPath)
	if err != nil {
		// Not found on PATH; try it as a literal (possibly relative or
		// absolute) path instead of failing outright.
		resolved = agentPath
	}

	cmd := exec.CommandContext(ctx, resolved, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("acp: opening agent stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("acp: opening agent stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("acp: starting agent process: %w", err)
	}

	conn, err := NewConnection[S](ctx, RoleClient, stdout, stdin, handler, opts)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	ap := &AgentProcess[S]{Conn: conn, cmd: cmd}
	go func() {
		_ = conn.Run(ctx)
	}()
	return ap, nil
}

// Alive reports whether the spawned agent process is still running.
func (p *AgentProcess[S]) Alive() bool {
	return p.cmd.Process != nil && processIsAlive(p.cmd.Process)
}

// Stop asks the agent process to shut down gracefully, escalating to a
// hard kill if it has not exited within timeout.
func (p *AgentProcess[S]) Stop(timeout time.Duration) error {
	p.Conn.Close()
	if p.cmd.Process == nil {
		return nil
	}
	if err := sendGracefulStop(p.cmd.Process); err != nil {
		return p.cmd.Process.Kill()
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !p.Alive() {
			return nil
		}
		time.Sleep(25 * time.Millisecond)
	}
	return p.cmd.Process.Kill()
}

// Wait blocks until the agent subprocess exits.
func (p *AgentProcess[S]) Wait() error {
	return p.cmd.Wait()
}
