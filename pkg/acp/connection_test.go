package acp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type testAgentState struct{}

// testAgentHandler implements just enough of the agent-role operations to
// drive a session/new -> session/prompt round trip, including cooperative
// cancellation via session/cancel.
type testAgentHandler struct{}

func (testAgentHandler) Init(ctx context.Context, conn *Connection[testAgentState]) (testAgentState, error) {
	return testAgentState{}, nil
}

func (testAgentHandler) Initialize(ctx context.Context, s testAgentState, p InitializeParams) (InitializeResult, error) {
	return InitializeResult{ProtocolVersion: 1}, nil
}

func (testAgentHandler) NewSession(ctx context.Context, s testAgentState, p SessionNewParams) (SessionNewResult, error) {
	return SessionNewResult{SessionID: "sess-fixed"}, nil
}

func (testAgentHandler) Prompt(ctx context.Context, s testAgentState, p SessionPromptParams) (SessionPromptResult, error) {
	select {
	case <-ctx.Done():
		return SessionPromptResult{StopReason: StopReasonCancelled}, nil
	case <-time.After(10 * time.Millisecond):
		return SessionPromptResult{StopReason: StopReasonEndTurn}, nil
	}
}

type testClientState struct{}

type testClientHandler struct {
	updates chan SessionUpdateParams
}

func (h *testClientHandler) Init(ctx context.Context, conn *Connection[testClientState]) (testClientState, error) {
	return testClientState{}, nil
}

func (h *testClientHandler) SessionUpdate(ctx context.Context, s testClientState, p SessionUpdateParams) {
	h.updates <- p
}

// newTestConnections wires an agent-role and a client-role connection
// together over a pair of in-memory pipes, standing in for the stdio
// StartAgent/StartClient would otherwise use.
func newTestConnections(t *testing.T, ctx context.Context) (*Connection[testAgentState], *Connection[testClientState], func()) {
	t.Helper()

	clientToAgentR, clientToAgentW := io.Pipe()
	agentToClientR, agentToClientW := io.Pipe()

	agentConn, err := NewConnection[testAgentState](ctx, RoleAgent, clientToAgentR, agentToClientW, testAgentHandler{}, ConnectionOptions{RequestTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewConnection(agent) error: %v", err)
	}
	clientConn, err := NewConnection[testClientState](ctx, RoleClient, agentToClientR, clientToAgentW, &testClientHandler{updates: make(chan SessionUpdateParams, 8)}, ConnectionOptions{RequestTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewConnection(client) error: %v", err)
	}

	done := make(chan struct{}, 2)
	go func() { _ = agentConn.Run(ctx); done <- struct{}{} }()
	go func() { _ = clientConn.Run(ctx); done <- struct{}{} }()

	cleanup := func() {
		agentConn.Close()
		clientConn.Close()
		_ = clientToAgentW.Close()
		_ = agentToClientW.Close()
		_ = clientToAgentR.Close()
		_ = agentToClientR.Close()
		<-done
		<-done
	}
	return agentConn, clientConn, cleanup
}

func TestConnectionInitializeSessionPromptRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, clientConn, cleanup := newTestConnections(t, ctx)
	defer cleanup()

	initRaw, err := clientConn.SendRequest(ctx, "initialize", InitializeParams{ProtocolVersion: 1})
	if err != nil {
		t.Fatalf("SendRequest(initialize) error: %v", err)
	}
	var initRes InitializeResult
	if err := json.Unmarshal(initRaw, &initRes); err != nil {
		t.Fatalf("decoding initialize result: %v", err)
	}
	if initRes.ProtocolVersion != 1 {
		t.Fatalf("ProtocolVersion = %d, want 1", initRes.ProtocolVersion)
	}

	sessRaw, err := clientConn.SendRequest(ctx, "session/new", SessionNewParams{Cwd: "/tmp"})
	if err != nil {
		t.Fatalf("SendRequest(session/new) error: %v", err)
	}
	var sessRes SessionNewResult
	if err := json.Unmarshal(sessRaw, &sessRes); err != nil {
		t.Fatalf("decoding session/new result: %v", err)
	}
	if sessRes.SessionID == "" || sessRes.SessionID == "sess-fixed" {
		t.Fatalf("SessionID = %q, want a fresh engine-generated id", sessRes.SessionID)
	}

	promptRaw, err := clientConn.SendRequest(ctx, "session/prompt", SessionPromptParams{
		SessionID: sessRes.SessionID,
		Prompt:    ContentBlockList{TextContentBlock{Text: "hello"}},
	})
	if err != nil {
		t.Fatalf("SendRequest(session/prompt) error: %v", err)
	}
	var promptRes SessionPromptResult
	if err := json.Unmarshal(promptRaw, &promptRes); err != nil {
		t.Fatalf("decoding session/prompt result: %v", err)
	}
	if promptRes.StopReason != StopReasonEndTurn {
		t.Fatalf("StopReason = %q, want %q", promptRes.StopReason, StopReasonEndTurn)
	}
}

func TestConnectionSessionBusyRejectsConcurrentPrompt(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, clientConn, cleanup := newTestConnections(t, ctx)
	defer cleanup()

	sessRaw, err := clientConn.SendRequest(ctx, "session/new", SessionNewParams{Cwd: "/tmp"})
	if err != nil {
		t.Fatalf("SendRequest(session/new) error: %v", err)
	}
	var sessRes SessionNewResult
	_ = json.Unmarshal(sessRaw, &sessRes)

	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := clientConn.SendRequest(ctx, "session/prompt", SessionPromptParams{
				SessionID: sessRes.SessionID,
				Prompt:    ContentBlockList{TextContentBlock{Text: "x"}},
			})
			errCh <- err
		}()
	}

	var busyCount, okCount int
	for i := 0; i < 2; i++ {
		err := <-errCh
		switch e := err.(type) {
		case nil:
			okCount++
		case *ErrorObject:
			if e.Code == CodeSessionBusy {
				busyCount++
			}
		}
	}
	if okCount != 1 || busyCount != 1 {
		t.Fatalf("okCount=%d busyCount=%d, want 1 and 1", okCount, busyCount)
	}
}

func TestConnectionUnknownMethodReturnsMethodNotFound(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, clientConn, cleanup := newTestConnections(t, ctx)
	defer cleanup()

	_, err := clientConn.SendRequest(ctx, "authenticate", AuthenticateParams{MethodID: "none"})
	errObj, ok := err.(*ErrorObject)
	if !ok {
		t.Fatalf("error type = %T, want *ErrorObject", err)
	}
	if errObj.Code != CodeMethodNotFound {
		t.Fatalf("Code = %d, want %d", errObj.Code, CodeMethodNotFound)
	}
}
