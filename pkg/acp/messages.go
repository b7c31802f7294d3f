package acp

import "encoding/json"

// This file holds the wire-level schema records for every ACP method in
// §6.3. Each record pairs a program-level Go field (PascalCase, per Go
// convention) with its wire-level camelCase name via a json struct tag,
// and declares the integer-range/required invariants §4.3 assigns to that
// record via `validate` tags checked by decodeParams (dispatch.go).
// Optional fields carry `json:"...,omitempty"`, so encoding a record with
// an absent (nil or zero-valued) optional field omits it from the wire
// JSON, satisfying the nil-omission invariant.

// Meta carries the opaque "_meta" extension object every top-level record
// accepts.
type Meta = json.RawMessage

// InitializeParams is the payload of the "initialize" request.
type InitializeParams struct {
	ProtocolVersion    int                `json:"protocolVersion" validate:"gte=1"`
	ClientCapabilities ClientCapabilities `json:"clientCapabilities"`
	Meta               Meta               `json:"_meta,omitempty"`
}

// ClientCapabilities describes what the client side of the connection
// supports.
type ClientCapabilities struct {
	FS       *FSCapabilities `json:"fs,omitempty"`
	Terminal bool            `json:"terminal,omitempty"`
}

// FSCapabilities describes which filesystem operations the client exposes
// to the agent.
type FSCapabilities struct {
	ReadTextFile  bool `json:"readTextFile,omitempty"`
	WriteTextFile bool `json:"writeTextFile,omitempty"`
}

// InitializeResult is the response to "initialize".
type InitializeResult struct {
	ProtocolVersion   int               `json:"protocolVersion" validate:"gte=1"`
	AgentCapabilities AgentCapabilities `json:"agentCapabilities"`
	AuthMethods       []AuthMethod      `json:"authMethods,omitempty"`
	Meta              Meta              `json:"_meta,omitempty"`
}

// AgentCapabilities describes what the agent side of the connection
// supports.
type AgentCapabilities struct {
	LoadSession        bool                `json:"loadSession,omitempty"`
	PromptCapabilities *PromptCapabilities `json:"promptCapabilities,omitempty"`
	MCP                *MCPCapabilities    `json:"mcp,omitempty"`
}

// PromptCapabilities describes which content block types a prompt may
// carry.
type PromptCapabilities struct {
	Image           bool `json:"image,omitempty"`
	Audio           bool `json:"audio,omitempty"`
	EmbeddedContext bool `json:"embeddedContext,omitempty"`
}

// MCPCapabilities describes which MCP server transports the agent can
// connect to on the client's behalf.
type MCPCapabilities struct {
	HTTP bool `json:"http,omitempty"`
	SSE  bool `json:"sse,omitempty"`
}

// AuthMethod describes one authentication method an agent offers.
type AuthMethod struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// AuthenticateParams is the payload of the "authenticate" request. The
// engine only relays this method; it never inspects MethodID itself.
type AuthenticateParams struct {
	MethodID string `json:"methodId" validate:"required"`
	Meta     Meta   `json:"_meta,omitempty"`
}

// AuthenticateResult is the (typically empty) response to "authenticate".
type AuthenticateResult struct {
	Meta Meta `json:"_meta,omitempty"`
}

// SessionNewParams is the payload of "session/new".
type SessionNewParams struct {
	Cwd        string      `json:"cwd" validate:"required"`
	MCPServers []MCPServer `json:"mcpServers"`
	Meta       Meta        `json:"_meta,omitempty"`
}

// MCPServer names one MCP server the agent should make available within
// the new session, either as a spawned subprocess or an HTTP/SSE endpoint.
type MCPServer struct {
	Name    string            `json:"name" validate:"required"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// SessionNewResult is the response to "session/new".
type SessionNewResult struct {
	SessionID string `json:"sessionId" validate:"required"`
	Meta      Meta   `json:"_meta,omitempty"`
}

// SessionLoadParams is the payload of "session/load".
type SessionLoadParams struct {
	SessionID string      `json:"sessionId" validate:"required"`
	Cwd       string      `json:"cwd" validate:"required"`
	MCPServers []MCPServer `json:"mcpServers"`
	Meta      Meta        `json:"_meta,omitempty"`
}

// SessionLoadResult is the response to "session/load".
type SessionLoadResult struct {
	Meta Meta `json:"_meta,omitempty"`
}

// SessionPromptParams is the payload of "session/prompt".
type SessionPromptParams struct {
	SessionID string           `json:"sessionId" validate:"required"`
	Prompt    ContentBlockList `json:"prompt" validate:"required"`
	Meta      Meta             `json:"_meta,omitempty"`
}

// SessionPromptResult is the response to "session/prompt".
type SessionPromptResult struct {
	StopReason StopReason `json:"stopReason" validate:"required"`
	Meta       Meta       `json:"_meta,omitempty"`
}

// StopReason enumerates why a prompt turn ended.
type StopReason string

const (
	StopReasonEndTurn           StopReason = "end_turn"
	StopReasonMaxTokens         StopReason = "max_tokens"
	StopReasonMaxTurnRequests   StopReason = "max_turn_requests"
	StopReasonRefusal           StopReason = "refusal"
	StopReasonCancelled         StopReason = "cancelled"
)

// SessionCancelParams is the payload of the "session/cancel" notification.
type SessionCancelParams struct {
	SessionID string `json:"sessionId" validate:"required"`
	Meta      Meta   `json:"_meta,omitempty"`
}

// SessionUpdateParams is the payload of the "session/update" notification.
// Update is a closed union (see sessionupdate.go); MarshalJSON/UnmarshalJSON
// are implemented by hand because encoding/json cannot dispatch a
// non-empty interface field on its own.
type SessionUpdateParams struct {
	SessionID string        `json:"sessionId"`
	Update    SessionUpdate `json:"update"`
	Meta      Meta          `json:"_meta,omitempty"`
}

func (p SessionUpdateParams) MarshalJSON() ([]byte, error) {
	updateJSON, err := encodeSessionUpdate(p.Update)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		SessionID string          `json:"sessionId"`
		Update    json.RawMessage `json:"update"`
		Meta      Meta            `json:"_meta,omitempty"`
	}{SessionID: p.SessionID, Update: updateJSON, Meta: p.Meta})
}

func (p *SessionUpdateParams) UnmarshalJSON(data []byte) error {
	var wire struct {
		SessionID string          `json:"sessionId"`
		Update    json.RawMessage `json:"update"`
		Meta      Meta            `json:"_meta,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	update, err := decodeSessionUpdate(wire.Update)
	if err != nil {
		return err
	}
	p.SessionID = wire.SessionID
	p.Update = update
	p.Meta = wire.Meta
	return nil
}

// FSReadTextFileParams is the payload of "fs/read_text_file".
type FSReadTextFileParams struct {
	SessionID string `json:"sessionId" validate:"required"`
	Path      string `json:"path" validate:"required"`
	Line      *int   `json:"line,omitempty" validate:"omitempty,gte=1"`
	Limit     *int   `json:"limit,omitempty" validate:"omitempty,gte=0"`
	Meta      Meta   `json:"_meta,omitempty"`
}

// FSReadTextFileResult is the response to "fs/read_text_file".
type FSReadTextFileResult struct {
	Content string `json:"content"`
	Meta    Meta   `json:"_meta,omitempty"`
}

// FSWriteTextFileParams is the payload of "fs/write_text_file".
type FSWriteTextFileParams struct {
	SessionID string `json:"sessionId" validate:"required"`
	Path      string `json:"path" validate:"required"`
	Content   string `json:"content"`
	Meta      Meta   `json:"_meta,omitempty"`
}

// FSWriteTextFileResult is the (empty) response to "fs/write_text_file".
type FSWriteTextFileResult struct {
	Meta Meta `json:"_meta,omitempty"`
}

// EnvVariable is one environment variable to set for a spawned terminal.
type EnvVariable struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

// TerminalCreateParams is the payload of "terminal/create".
type TerminalCreateParams struct {
	SessionID       string        `json:"sessionId" validate:"required"`
	Command         string        `json:"command" validate:"required"`
	Args            []string      `json:"args,omitempty"`
	Env             []EnvVariable `json:"env,omitempty"`
	Cwd             string        `json:"cwd,omitempty"`
	OutputByteLimit *int          `json:"outputByteLimit,omitempty" validate:"omitempty,gte=0"`
	Meta            Meta          `json:"_meta,omitempty"`
}

// TerminalCreateResult is the response to "terminal/create".
type TerminalCreateResult struct {
	TerminalID string `json:"terminalId" validate:"required"`
	Meta       Meta   `json:"_meta,omitempty"`
}

// TerminalOutputParams is the payload of "terminal/output".
type TerminalOutputParams struct {
	SessionID  string `json:"sessionId" validate:"required"`
	TerminalID string `json:"terminalId" validate:"required"`
	Meta       Meta   `json:"_meta,omitempty"`
}

// TerminalExitStatus is the process exit status embedded in
// "terminal/output" once the process has exited.
type TerminalExitStatus struct {
	ExitCode *int    `json:"exitCode,omitempty" validate:"omitempty,gte=0"`
	Signal   *string `json:"signal,omitempty"`
}

// TerminalOutputResult is the response to "terminal/output".
type TerminalOutputResult struct {
	Output     string               `json:"output"`
	Truncated  bool                 `json:"truncated,omitempty"`
	ExitStatus *TerminalExitStatus  `json:"exitStatus,omitempty"`
	Meta       Meta                 `json:"_meta,omitempty"`
}

// TerminalWaitForExitParams is the payload of "terminal/wait_for_exit".
type TerminalWaitForExitParams struct {
	SessionID  string `json:"sessionId" validate:"required"`
	TerminalID string `json:"terminalId" validate:"required"`
	Meta       Meta   `json:"_meta,omitempty"`
}

// TerminalWaitForExitResult is the response to "terminal/wait_for_exit".
type TerminalWaitForExitResult struct {
	ExitCode *int    `json:"exitCode,omitempty" validate:"omitempty,gte=0"`
	Signal   *string `json:"signal,omitempty"`
	Meta     Meta    `json:"_meta,omitempty"`
}

// TerminalKillParams is the payload of "terminal/kill".
type TerminalKillParams struct {
	SessionID  string `json:"sessionId" validate:"required"`
	TerminalID string `json:"terminalId" validate:"required"`
	Meta       Meta   `json:"_meta,omitempty"`
}

// TerminalReleaseParams is the payload of "terminal/release".
type TerminalReleaseParams struct {
	SessionID  string `json:"sessionId" validate:"required"`
	TerminalID string `json:"terminalId" validate:"required"`
	Meta       Meta   `json:"_meta,omitempty"`
}
