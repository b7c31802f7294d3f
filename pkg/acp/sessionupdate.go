package acp

import (
	"encoding/json"
	"fmt"
)

// SessionUpdate is the payload of a "session/update" notification: one of
// eight variants distinguished by their "sessionUpdate" tag. As with
// ContentBlock, the tag is peeked and the matching concrete type decoded
// directly rather than through reflection.
type SessionUpdate interface {
	sessionUpdateType() string
}

// UserMessageChunk streams a piece of the user's own message back to the
// client, e.g. after expanding an @-mention.
type UserMessageChunk struct {
	Content ContentBlock `json:"content"`
}

func (UserMessageChunk) sessionUpdateType() string { return "user_message_chunk" }

// AgentMessageChunk streams a piece of the agent's reply.
type AgentMessageChunk struct {
	Content ContentBlock `json:"content"`
}

func (AgentMessageChunk) sessionUpdateType() string { return "agent_message_chunk" }

// AgentThoughtChunk streams a piece of the agent's reasoning, shown
// separately from its reply.
type AgentThoughtChunk struct {
	Content ContentBlock `json:"content"`
}

func (AgentThoughtChunk) sessionUpdateType() string { return "agent_thought_chunk" }

// ToolCallStatus is the lifecycle state of a tool call.
type ToolCallStatus string

const (
	ToolCallStatusPending    ToolCallStatus = "pending"
	ToolCallStatusInProgress ToolCallStatus = "in_progress"
	ToolCallStatusCompleted  ToolCallStatus = "completed"
	ToolCallStatusFailed     ToolCallStatus = "failed"
)

// ToolCallKind classifies a tool call for client-side rendering.
type ToolCallKind string

const (
	ToolCallKindRead    ToolCallKind = "read"
	ToolCallKindEdit    ToolCallKind = "edit"
	ToolCallKindDelete  ToolCallKind = "delete"
	ToolCallKindMove    ToolCallKind = "move"
	ToolCallKindExecute ToolCallKind = "execute"
	ToolCallKindFetch   ToolCallKind = "fetch"
	ToolCallKindOther   ToolCallKind = "other"
)

// ToolCallLocation names a file (and optional line) a tool call touches,
// letting a client offer "follow along" navigation.
type ToolCallLocation struct {
	Path string `json:"path" validate:"required"`
	Line *int   `json:"line,omitempty" validate:"omitempty,gte=1"`
}

// ToolCall announces a new tool invocation the agent is about to perform.
type ToolCall struct {
	ToolCallID string             `json:"toolCallId" validate:"required"`
	Title      string             `json:"title"`
	Kind       ToolCallKind       `json:"kind,omitempty"`
	Status     ToolCallStatus     `json:"status,omitempty"`
	Content    ContentBlockList   `json:"content,omitempty"`
	Locations  []ToolCallLocation `json:"locations,omitempty"`
}

func (ToolCall) sessionUpdateType() string { return "tool_call" }

// ToolCallUpdate reports a status or content change for a tool call
// already announced via ToolCall. Every field but ToolCallID is optional
// since an update may touch only one aspect of the call.
type ToolCallUpdate struct {
	ToolCallID string              `json:"toolCallId" validate:"required"`
	Title      *string             `json:"title,omitempty"`
	Kind       *ToolCallKind       `json:"kind,omitempty"`
	Status     *ToolCallStatus     `json:"status,omitempty"`
	Content    ContentBlockList    `json:"content,omitempty"`
	Locations  []ToolCallLocation  `json:"locations,omitempty"`
}

func (ToolCallUpdate) sessionUpdateType() string { return "tool_call_update" }

// PlanEntryStatus is the lifecycle state of one plan entry.
type PlanEntryStatus string

const (
	PlanEntryStatusPending    PlanEntryStatus = "pending"
	PlanEntryStatusInProgress PlanEntryStatus = "in_progress"
	PlanEntryStatusCompleted  PlanEntryStatus = "completed"
)

// PlanEntryPriority ranks a plan entry's importance for client rendering.
type PlanEntryPriority string

const (
	PlanEntryPriorityHigh   PlanEntryPriority = "high"
	PlanEntryPriorityMedium PlanEntryPriority = "medium"
	PlanEntryPriorityLow    PlanEntryPriority = "low"
)

// PlanEntry is one step of the agent's current plan.
type PlanEntry struct {
	Content  string            `json:"content" validate:"required"`
	Priority PlanEntryPriority `json:"priority,omitempty"`
	Status   PlanEntryStatus   `json:"status,omitempty"`
}

// Plan replaces the client's view of the agent's current step-by-step
// plan in its entirety.
type Plan struct {
	Entries []PlanEntry `json:"entries"`
}

func (Plan) sessionUpdateType() string { return "plan" }

// AvailableCommand describes one slash-style command the agent currently
// accepts in session/prompt text.
type AvailableCommand struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// AvailableCommandsUpdate replaces the client's view of which commands the
// agent currently accepts.
type AvailableCommandsUpdate struct {
	AvailableCommands []AvailableCommand `json:"availableCommands"`
}

func (AvailableCommandsUpdate) sessionUpdateType() string { return "available_commands_update" }

// CurrentModeUpdate announces that the session's operating mode (e.g.
// "ask" vs "code") changed.
type CurrentModeUpdate struct {
	CurrentModeID string `json:"currentModeId" validate:"required"`
}

func (CurrentModeUpdate) sessionUpdateType() string { return "current_mode_update" }

type sessionUpdateTag struct {
	SessionUpdate string `json:"sessionUpdate"`
}

type rawContentHolder struct {
	Content json.RawMessage `json:"content"`
}

// decodeSessionUpdate decodes one SessionUpdate from its wire shape,
// selecting the concrete variant by its "sessionUpdate" tag.
func decodeSessionUpdate(data json.RawMessage) (SessionUpdate, error) {
	var tag sessionUpdateTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("acp: decoding session update tag: %w", err)
	}
	switch tag.SessionUpdate {
	case "user_message_chunk":
		cb, err := decodeChunkContent(data)
		if err != nil {
			return nil, err
		}
		return UserMessageChunk{Content: cb}, nil
	case "agent_message_chunk":
		cb, err := decodeChunkContent(data)
		if err != nil {
			return nil, err
		}
		return AgentMessageChunk{Content: cb}, nil
	case "agent_thought_chunk":
		cb, err := decodeChunkContent(data)
		if err != nil {
			return nil, err
		}
		return AgentThoughtChunk{Content: cb}, nil
	case "tool_call":
		var v ToolCall
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding tool_call: %w", err)
		}
		return v, nil
	case "tool_call_update":
		var v ToolCallUpdate
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding tool_call_update: %w", err)
		}
		return v, nil
	case "plan":
		var v Plan
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding plan: %w", err)
		}
		return v, nil
	case "available_commands_update":
		var v AvailableCommandsUpdate
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding available_commands_update: %w", err)
		}
		return v, nil
	case "current_mode_update":
		var v CurrentModeUpdate
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding current_mode_update: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("acp: unknown session update type %q", tag.SessionUpdate)
	}
}

// decodeChunkContent extracts the "content" field shared by the three
// chunk variants, which all wrap a single ContentBlock.
func decodeChunkContent(data json.RawMessage) (ContentBlock, error) {
	var holder rawContentHolder
	if err := json.Unmarshal(data, &holder); err != nil {
		return nil, fmt.Errorf("acp: decoding chunk content: %w", err)
	}
	return decodeContentBlock(holder.Content)
}

// encodeSessionUpdate renders a SessionUpdate with its "sessionUpdate"
// discriminant set.
func encodeSessionUpdate(u SessionUpdate) ([]byte, error) {
	var body []byte
	var err error
	switch v := u.(type) {
	case UserMessageChunk:
		body, err = encodeChunk(v.Content)
	case AgentMessageChunk:
		body, err = encodeChunk(v.Content)
	case AgentThoughtChunk:
		body, err = encodeChunk(v.Content)
	default:
		body, err = json.Marshal(u)
	}
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	tagJSON, err := json.Marshal(u.sessionUpdateType())
	if err != nil {
		return nil, err
	}
	m["sessionUpdate"] = tagJSON
	return json.Marshal(m)
}

func encodeChunk(cb ContentBlock) ([]byte, error) {
	cbJSON, err := encodeContentBlock(cb)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Content json.RawMessage `json:"content"`
	}{Content: cbJSON})
}
