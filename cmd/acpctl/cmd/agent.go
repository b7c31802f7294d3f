package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"net/http"

	"github.com/acplabs/acp-go/internal/config"
	"github.com/acplabs/acp-go/pkg/acp"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run as the agent side of the protocol on this process's own stdio",
	Long: `acpctl agent reads JSON-RPC requests from stdin and writes
responses to stdout, playing the agent role an editor would spawn as a
subprocess. It answers initialize, authenticate, session/new,
session/load, and session/prompt, answering each prompt by echoing its
text back in a session/update notification, which is enough to exercise
the wire protocol without an actual model behind it.`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	var policy *acp.Policy
	if cfg.Policy.Expression != "" {
		policy, err = acp.NewPolicy(cfg.Policy.Expression)
		if err != nil {
			return fmt.Errorf("compiling policy expression: %w", err)
		}
	}

	var metrics *acp.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metrics, err = acp.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		go serveMetrics(logger, cfg.Metrics.Addr, reg)
	}

	handler := &echoAgentHandler{auth: cfg.Auth}

	opts := acp.ConnectionOptions{
		Logger:  logger,
		Policy:  policy,
		Metrics: metrics,
	}

	logger.Info("acpctl agent starting", "dev_mode", cfg.DevMode, "auth_enabled", cfg.Auth.Enabled)
	if err := acp.StartAgent[*agentState](ctx, handler, opts); err != nil && ctx.Err() == nil {
		return fmt.Errorf("agent connection: %w", err)
	}
	logger.Info("acpctl agent stopped")
	return nil
}

func serveMetrics(logger *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint stopped", "error", err)
	}
}

// echoAgentHandler is the demo agent: every prompt turn concatenates the
// text content blocks of the prompt and sends them back to the client as a
// single agent_message_chunk update, then ends the turn. It exists to drive every
// operation in the protocol, not to be a useful coding agent.
type echoAgentHandler struct {
	auth config.AuthConfig

	mu   sync.Mutex
	conn *acp.Connection[*agentState]
}

type agentState struct {
	mu            sync.Mutex
	authenticated bool
	sessions      map[string]struct{}
}

type authMeta struct {
	SharedSecret string `json:"sharedSecret"`
}

func (h *echoAgentHandler) Init(ctx context.Context, conn *acp.Connection[*agentState]) (*agentState, error) {
	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()
	return &agentState{sessions: make(map[string]struct{})}, nil
}

func (h *echoAgentHandler) Initialize(ctx context.Context, s *agentState, p acp.InitializeParams) (acp.InitializeResult, error) {
	result := acp.InitializeResult{
		ProtocolVersion: 1,
		AgentCapabilities: acp.AgentCapabilities{
			LoadSession: true,
			PromptCapabilities: &acp.PromptCapabilities{
				Image:           true,
				Audio:           false,
				EmbeddedContext: true,
			},
		},
	}
	if h.auth.Enabled {
		result.AuthMethods = []acp.AuthMethod{
			{ID: "shared-secret", Name: "Shared secret", Description: "Argon2id-gated shared secret"},
		}
	}
	return result, nil
}

func (h *echoAgentHandler) Authenticate(ctx context.Context, s *agentState, p acp.AuthenticateParams) (acp.AuthenticateResult, error) {
	if !h.auth.Enabled {
		s.mu.Lock()
		s.authenticated = true
		s.mu.Unlock()
		return acp.AuthenticateResult{}, nil
	}
	if p.MethodID != "shared-secret" {
		return acp.AuthenticateResult{}, acp.NewHandlerError(acp.CodeAuthRequired, "unsupported auth method: "+p.MethodID)
	}

	var meta authMeta
	if len(p.Meta) > 0 {
		_ = json.Unmarshal(p.Meta, &meta)
	}
	if meta.SharedSecret == "" {
		return acp.AuthenticateResult{}, acp.NewHandlerError(acp.CodeAuthRequired, "missing shared secret")
	}
	match, err := argon2id.ComparePasswordAndHash(meta.SharedSecret, h.auth.SharedSecretHash)
	if err != nil || !match {
		return acp.AuthenticateResult{}, acp.NewHandlerError(acp.CodeAuthRequired, "shared secret does not match")
	}

	s.mu.Lock()
	s.authenticated = true
	s.mu.Unlock()
	return acp.AuthenticateResult{}, nil
}

func (h *echoAgentHandler) NewSession(ctx context.Context, s *agentState, p acp.SessionNewParams) (acp.SessionNewResult, error) {
	if err := h.requireAuth(s); err != nil {
		return acp.SessionNewResult{}, err
	}
	// The engine mints the actual session id and overwrites SessionID
	// before the session is registered; this handler has no id of its own
	// to hand out.
	return acp.SessionNewResult{}, nil
}

func (h *echoAgentHandler) LoadSession(ctx context.Context, s *agentState, p acp.SessionLoadParams) (acp.SessionLoadResult, error) {
	if err := h.requireAuth(s); err != nil {
		return acp.SessionLoadResult{}, err
	}
	s.mu.Lock()
	s.sessions[p.SessionID] = struct{}{}
	s.mu.Unlock()
	return acp.SessionLoadResult{}, nil
}

func (h *echoAgentHandler) Prompt(ctx context.Context, s *agentState, p acp.SessionPromptParams) (acp.SessionPromptResult, error) {
	if err := h.requireAuth(s); err != nil {
		return acp.SessionPromptResult{}, err
	}

	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()

	var reply strings.Builder
	for _, block := range p.Prompt {
		if text, ok := block.(acp.TextContentBlock); ok {
			reply.WriteString(text.Text)
		}
	}
	if reply.Len() == 0 {
		reply.WriteString("(no text content in prompt)")
	}

	chunk := acp.SessionUpdateParams{
		SessionID: p.SessionID,
		Update: acp.AgentMessageChunk{
			Content: acp.TextContentBlock{Text: "echo: " + reply.String()},
		},
	}
	select {
	case <-ctx.Done():
		return acp.SessionPromptResult{StopReason: acp.StopReasonCancelled}, nil
	default:
	}
	if err := conn.SendNotification("session/update", chunk); err != nil {
		return acp.SessionPromptResult{}, acp.NewHandlerError(acp.CodeInternalError, "sending session/update: "+err.Error())
	}

	select {
	case <-ctx.Done():
		return acp.SessionPromptResult{StopReason: acp.StopReasonCancelled}, nil
	default:
		return acp.SessionPromptResult{StopReason: acp.StopReasonEndTurn}, nil
	}
}

func (h *echoAgentHandler) requireAuth(s *agentState) error {
	if !h.auth.Enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return acp.NewHandlerError(acp.CodeAuthRequired, "authenticate before starting a session")
	}
	return nil
}

