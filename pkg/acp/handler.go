package acp

import "context"

// Handler is implemented by both roles' handler types so the connection
// controller can carry it without knowing which role it belongs to. S is
// the caller's own per-connection state type, produced by Init and handed
// back on every subsequent callback; the engine never inspects it.
//
// Neither AgentHandler[S] nor ClientHandler[S] exists as a single
// monolithic interface. Each operation is its own single-method interface
// below, and the dispatcher type-asserts a handler against the interface
// an incoming method needs. A handler that only implements a subset of
// operations is routed exactly as far as it can be: unimplemented requests
// get -32601, unimplemented notifications are dropped silently (§4.6).
// This is what lets Init return an `any`-typed S while routing stays fully
// static: the dispatcher never synthesizes a method name or walks a
// reflect.Value to find the right callback, it does a type assertion
// against a fixed set of interface types chosen by methodTable.
type Handler[S any] interface {
	// Init is called once, synchronously, before any other callback, to
	// build the state this connection's other callbacks receive. conn is
	// the same Connection the handler is being attached to; a handler
	// that needs to send requests or notifications on its own initiative
	// (e.g. a Prompter streaming session/update chunks) stashes it in a
	// field on the handler itself, not in S; see the echoAgentHandler in
	// cmd/acpctl/cmd/agent.go for the pattern.
	Init(ctx context.Context, conn *Connection[S]) (S, error)
}

// -- Agent-role operations (methods the client sends, the agent answers) --

// Initializer handles "initialize".
type Initializer[S any] interface {
	Initialize(ctx context.Context, state S, params InitializeParams) (InitializeResult, error)
}

// Authenticator handles "authenticate". The engine relays this operation
// without interpreting MethodID.
type Authenticator[S any] interface {
	Authenticate(ctx context.Context, state S, params AuthenticateParams) (AuthenticateResult, error)
}

// SessionCreator handles "session/new".
type SessionCreator[S any] interface {
	NewSession(ctx context.Context, state S, params SessionNewParams) (SessionNewResult, error)
}

// SessionLoader handles "session/load". Implementing this operation is
// what InitializeResult.AgentCapabilities.LoadSession advertises.
type SessionLoader[S any] interface {
	LoadSession(ctx context.Context, state S, params SessionLoadParams) (SessionLoadResult, error)
}

// Prompter handles "session/prompt". ctx is cancelled by the engine when
// the client sends "session/cancel" for the same session id; a well
// behaved Prompter returns promptly once ctx.Done() fires, with
// StopReason set to StopReasonCancelled.
type Prompter[S any] interface {
	Prompt(ctx context.Context, state S, params SessionPromptParams) (SessionPromptResult, error)
}

// -- Client-role operations (methods the agent sends, the client answers) --

// FSReader handles "fs/read_text_file". Implementing this operation is
// what ClientCapabilities.FS.ReadTextFile advertises.
type FSReader[S any] interface {
	ReadTextFile(ctx context.Context, state S, params FSReadTextFileParams) (FSReadTextFileResult, error)
}

// FSWriter handles "fs/write_text_file".
type FSWriter[S any] interface {
	WriteTextFile(ctx context.Context, state S, params FSWriteTextFileParams) (FSWriteTextFileResult, error)
}

// TerminalCreator handles "terminal/create". Implementing the five
// terminal operations together is what ClientCapabilities.Terminal
// advertises.
type TerminalCreator[S any] interface {
	CreateTerminal(ctx context.Context, state S, params TerminalCreateParams) (TerminalCreateResult, error)
}

// TerminalOutputter handles "terminal/output".
type TerminalOutputter[S any] interface {
	TerminalOutput(ctx context.Context, state S, params TerminalOutputParams) (TerminalOutputResult, error)
}

// TerminalWaiter handles "terminal/wait_for_exit".
type TerminalWaiter[S any] interface {
	WaitForExit(ctx context.Context, state S, params TerminalWaitForExitParams) (TerminalWaitForExitResult, error)
}

// TerminalKiller handles "terminal/kill".
type TerminalKiller[S any] interface {
	KillTerminal(ctx context.Context, state S, params TerminalKillParams) error
}

// TerminalReleaser handles "terminal/release".
type TerminalReleaser[S any] interface {
	ReleaseTerminal(ctx context.Context, state S, params TerminalReleaseParams) error
}

// SessionUpdateHandler handles the "session/update" notification stream.
// Every client handler is expected to implement this; a client with no
// use for updates can still implement it as a no-op.
type SessionUpdateHandler[S any] interface {
	SessionUpdate(ctx context.Context, state S, params SessionUpdateParams)
}
