package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/acplabs/acp-go/internal/config"
	"github.com/acplabs/acp-go/pkg/acp"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Spawn an agent subprocess and drive one prompt turn",
	Long: `acpctl client spawns the agent named by agent.path (config or
ACPCTL_AGENT_PATH) as a subprocess, speaks initialize, session/new, and
session/prompt to it over stdio, prints every session/update notification
it streams back, answers the agent's filesystem and terminal requests
while the turn runs, and exits once the prompt turn ends.`,
	RunE: runClient,
}

func init() {
	clientCmd.Flags().String("prompt", "hello from acpctl", "prompt text to send")
	rootCmd.AddCommand(clientCmd)
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Agent.Path == "" {
		return fmt.Errorf("agent.path is not set (config file or ACPCTL_AGENT_PATH)")
	}
	promptText, _ := cmd.Flags().GetString("prompt")

	logLevel := slog.LevelInfo
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	handler := newPrintingClientHandler(cwd, logger)
	opts := acp.ConnectionOptions{Logger: logger, RequestTimeout: 30 * time.Second}

	proc, err := acp.StartClient[clientState](ctx, cfg.Agent.Path, cfg.Agent.Args, handler, opts)
	if err != nil {
		return fmt.Errorf("starting agent %q: %w", cfg.Agent.Path, err)
	}
	defer func() {
		_ = proc.Stop(5 * time.Second)
	}()

	initResult, err := sendTyped[acp.InitializeResult](ctx, proc.Conn, "initialize", acp.InitializeParams{
		ProtocolVersion: 1,
		ClientCapabilities: acp.ClientCapabilities{
			FS:       &acp.FSCapabilities{ReadTextFile: true, WriteTextFile: true},
			Terminal: true,
		},
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	logger.Info("agent initialized", "protocol_version", initResult.ProtocolVersion, "auth_methods", len(initResult.AuthMethods))

	if len(initResult.AuthMethods) > 0 {
		meta, err := json.Marshal(struct {
			SharedSecret string `json:"sharedSecret"`
		}{SharedSecret: cfg.Agent.SharedSecret})
		if err != nil {
			return fmt.Errorf("encoding auth meta: %w", err)
		}
		if _, err := sendTyped[acp.AuthenticateResult](ctx, proc.Conn, "authenticate", acp.AuthenticateParams{
			MethodID: initResult.AuthMethods[0].ID,
			Meta:     meta,
		}); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	}

	newSession, err := sendTyped[acp.SessionNewResult](ctx, proc.Conn, "session/new", acp.SessionNewParams{Cwd: cwd})
	if err != nil {
		return fmt.Errorf("session/new: %w", err)
	}
	logger.Info("session created", "session_id", newSession.SessionID)

	promptResult, err := sendTyped[acp.SessionPromptResult](ctx, proc.Conn, "session/prompt", acp.SessionPromptParams{
		SessionID: newSession.SessionID,
		Prompt:    acp.ContentBlockList{acp.TextContentBlock{Text: promptText}},
	})
	if err != nil {
		return fmt.Errorf("session/prompt: %w", err)
	}
	fmt.Printf("stop reason: %s\n", promptResult.StopReason)
	return nil
}

// sendTyped wraps Connection.SendRequest with a result type, so every call
// site above reads like a normal Go function call instead of threading
// json.RawMessage through each operation by hand.
func sendTyped[T any, S any](ctx context.Context, conn *acp.Connection[S], method string, params any) (T, error) {
	var result T
	raw, err := conn.SendRequest(ctx, method, params)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return result, nil
}

// printingClientHandler answers the agent's fs/* and terminal/* requests
// against the real local filesystem and real subprocesses rooted at cwd,
// and prints every session/update notification it receives to stdout.
type printingClientHandler struct {
	cwd    string
	logger *slog.Logger

	mu        sync.Mutex
	terminals map[string]*runningTerminal
}

type clientState struct{}

type runningTerminal struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	output   bytes.Buffer
	done     chan struct{}
	exitCode *int
	signal   *string
}

func newPrintingClientHandler(cwd string, logger *slog.Logger) *printingClientHandler {
	return &printingClientHandler{
		cwd:       cwd,
		logger:    logger,
		terminals: make(map[string]*runningTerminal),
	}
}

func (h *printingClientHandler) Init(ctx context.Context, conn *acp.Connection[clientState]) (clientState, error) {
	return clientState{}, nil
}

func (h *printingClientHandler) SessionUpdate(ctx context.Context, s clientState, p acp.SessionUpdateParams) {
	switch u := p.Update.(type) {
	case acp.AgentMessageChunk:
		if text, ok := u.Content.(acp.TextContentBlock); ok {
			fmt.Println(text.Text)
			return
		}
	case acp.AgentThoughtChunk:
		if text, ok := u.Content.(acp.TextContentBlock); ok {
			fmt.Println("(thought) " + text.Text)
			return
		}
	case acp.ToolCall:
		fmt.Printf("tool call %s: %s (%s)\n", u.ToolCallID, u.Title, u.Status)
		return
	case acp.Plan:
		fmt.Printf("plan: %d entries\n", len(u.Entries))
		return
	}
	h.logger.Debug("session/update", "session_id", p.SessionID)
}

func (h *printingClientHandler) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.cwd, path)
}

func (h *printingClientHandler) ReadTextFile(ctx context.Context, s clientState, p acp.FSReadTextFileParams) (acp.FSReadTextFileResult, error) {
	data, err := os.ReadFile(h.resolvePath(p.Path))
	if err != nil {
		return acp.FSReadTextFileResult{}, acp.NewHandlerError(acp.CodeInternalError, "reading file: "+err.Error())
	}
	content := string(data)
	if p.Line != nil || p.Limit != nil {
		content = sliceLines(content, p.Line, p.Limit)
	}
	return acp.FSReadTextFileResult{Content: content}, nil
}

func sliceLines(content string, line, limit *int) string {
	lines := strings.Split(content, "\n")
	start := 0
	if line != nil && *line > 1 {
		start = *line - 1
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := len(lines)
	if limit != nil {
		if want := start + *limit; want < end {
			end = want
		}
	}
	return strings.Join(lines[start:end], "\n")
}

func (h *printingClientHandler) WriteTextFile(ctx context.Context, s clientState, p acp.FSWriteTextFileParams) (acp.FSWriteTextFileResult, error) {
	path := h.resolvePath(p.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return acp.FSWriteTextFileResult{}, acp.NewHandlerError(acp.CodeInternalError, "creating directories: "+err.Error())
	}
	if err := os.WriteFile(path, []byte(p.Content), 0o644); err != nil {
		return acp.FSWriteTextFileResult{}, acp.NewHandlerError(acp.CodeInternalError, "writing file: "+err.Error())
	}
	return acp.FSWriteTextFileResult{}, nil
}

func (h *printingClientHandler) CreateTerminal(ctx context.Context, s clientState, p acp.TerminalCreateParams) (acp.TerminalCreateResult, error) {
	cmd := exec.Command(p.Command, p.Args...)
	if p.Cwd != "" {
		cmd.Dir = h.resolvePath(p.Cwd)
	} else {
		cmd.Dir = h.cwd
	}
	env := os.Environ()
	for _, v := range p.Env {
		env = append(env, v.Name+"="+v.Value)
	}
	cmd.Env = env

	term := &runningTerminal{cmd: cmd, done: make(chan struct{})}
	cmd.Stdout = &boundedWriter{buf: &term.output, mu: &term.mu, limit: p.OutputByteLimit}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return acp.TerminalCreateResult{}, acp.NewHandlerError(acp.CodeInternalError, "starting terminal: "+err.Error())
	}

	id := "term-" + uuid.NewString()
	h.mu.Lock()
	h.terminals[id] = term
	h.mu.Unlock()

	go func() {
		err := cmd.Wait()
		term.mu.Lock()
		defer term.mu.Unlock()
		code := cmd.ProcessState.ExitCode()
		term.exitCode = &code
		if err != nil && code < 0 {
			sig := err.Error()
			term.signal = &sig
		}
		close(term.done)
	}()

	return acp.TerminalCreateResult{TerminalID: id}, nil
}

// boundedWriter caps how much output a terminal retains, matching
// TerminalCreateParams.OutputByteLimit, discarding bytes past the limit
// rather than growing the buffer without bound.
type boundedWriter struct {
	buf   *bytes.Buffer
	mu    *sync.Mutex
	limit *int
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.limit != nil && w.buf.Len() >= *w.limit {
		return len(p), nil
	}
	if w.limit != nil {
		remaining := *w.limit - w.buf.Len()
		if remaining < len(p) {
			w.buf.Write(p[:remaining])
			return len(p), nil
		}
	}
	w.buf.Write(p)
	return len(p), nil
}

func (h *printingClientHandler) lookupTerminal(id string) (*runningTerminal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	term, ok := h.terminals[id]
	if !ok {
		return nil, acp.NewHandlerError(acp.CodeInvalidParams, "unknown terminal id")
	}
	return term, nil
}

func (h *printingClientHandler) TerminalOutput(ctx context.Context, s clientState, p acp.TerminalOutputParams) (acp.TerminalOutputResult, error) {
	term, err := h.lookupTerminal(p.TerminalID)
	if err != nil {
		return acp.TerminalOutputResult{}, err
	}
	term.mu.Lock()
	defer term.mu.Unlock()
	result := acp.TerminalOutputResult{Output: term.output.String()}
	select {
	case <-term.done:
		result.ExitStatus = &acp.TerminalExitStatus{ExitCode: term.exitCode, Signal: term.signal}
	default:
	}
	return result, nil
}

func (h *printingClientHandler) WaitForExit(ctx context.Context, s clientState, p acp.TerminalWaitForExitParams) (acp.TerminalWaitForExitResult, error) {
	term, err := h.lookupTerminal(p.TerminalID)
	if err != nil {
		return acp.TerminalWaitForExitResult{}, err
	}
	select {
	case <-term.done:
	case <-ctx.Done():
		return acp.TerminalWaitForExitResult{}, ctx.Err()
	}
	term.mu.Lock()
	defer term.mu.Unlock()
	return acp.TerminalWaitForExitResult{ExitCode: term.exitCode, Signal: term.signal}, nil
}

func (h *printingClientHandler) KillTerminal(ctx context.Context, s clientState, p acp.TerminalKillParams) error {
	term, err := h.lookupTerminal(p.TerminalID)
	if err != nil {
		return err
	}
	if term.cmd.Process == nil {
		return nil
	}
	return term.cmd.Process.Kill()
}

func (h *printingClientHandler) ReleaseTerminal(ctx context.Context, s clientState, p acp.TerminalReleaseParams) error {
	term, err := h.lookupTerminal(p.TerminalID)
	if err != nil {
		return err
	}
	select {
	case <-term.done:
	default:
		if term.cmd.Process != nil {
			_ = term.cmd.Process.Kill()
		}
	}
	h.mu.Lock()
	delete(h.terminals, p.TerminalID)
	h.mu.Unlock()
	return nil
}
