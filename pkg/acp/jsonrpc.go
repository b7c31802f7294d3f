package acp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC version string carried on every message.
const Version = "2.0"

// ID is a JSON-RPC request/response identifier. The protocol allows either
// an integer or a string id and requires that the client echo it back
// verbatim, so ID preserves the original wire encoding rather than
// normalizing to a single Go type.
type ID struct {
	raw json.RawMessage
}

// NewIntID builds an ID from an integer, the shape the engine uses for
// every outbound request id.
func NewIntID(v int64) ID {
	b, _ := json.Marshal(v)
	return ID{raw: b}
}

// NewStringID builds an ID from a string.
func NewStringID(v string) ID {
	b, _ := json.Marshal(v)
	return ID{raw: b}
}

// IsZero reports whether the ID was never set (no "id" member was present).
func (id ID) IsZero() bool {
	return len(id.raw) == 0
}

// Int returns the id as an int64 and true if it was encoded as a JSON
// number; otherwise it returns false.
func (id ID) Int() (int64, bool) {
	if id.IsZero() {
		return 0, false
	}
	var v int64
	if err := json.Unmarshal(id.raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

// String renders the id for logging; numbers print bare, strings print
// without quotes.
func (id ID) String() string {
	if id.IsZero() {
		return "<nil>"
	}
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(id.raw)
}

// Equal reports whether two ids are the same wire value.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id.raw, other.raw)
}

// MarshalJSON renders the id verbatim.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON captures the id verbatim, preserving whether it was a
// number or a string.
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		id.raw = nil
		return nil
	}
	id.raw = append(id.raw[:0], data...)
	return nil
}

// ErrorObject is the JSON-RPC 2.0 error payload: {code, message, data?}.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC 2.0 error codes, plus the ACP-specific codes this
// engine assigns (session_busy, unknown_session, policy_denied).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeSessionBusy    = -32002
	CodeUnknownSession = -32602
	CodePolicyDenied   = -32000
	CodeAuthRequired   = -32001
)

// envelope is the wire shape every inbound JSON object is first decoded
// into, before the classifier decides what kind of message it is.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Kind classifies a decoded JSON-RPC message.
type Kind int

const (
	// KindMalformed means the message did not match any valid JSON-RPC
	// 2.0 shape and must be logged and discarded.
	KindMalformed Kind = iota
	KindRequest
	KindResponse
	KindErrorResponse
	KindNotification
)

// Message is a classified JSON-RPC message: exactly one of Request,
// Response (success or error), or Notification is meaningful, selected by
// Kind.
type Message struct {
	Kind    Kind
	ID      ID
	Method  string
	Params  json.RawMessage
	Result  json.RawMessage
	Error   *ErrorObject
}

// Classify decodes one JSON object and determines its JSON-RPC shape per
// the rules in the protocol design: a message with both id and method is a
// request; id and (result xor error) is a response; method with no id is a
// notification; anything else is malformed.
func Classify(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("acp: invalid json: %w", err)
	}
	if env.JSONRPC != Version {
		return Message{Kind: KindMalformed}, nil
	}

	hasID := env.ID != nil && !env.ID.IsZero()
	hasMethod := env.Method != ""
	hasResult := env.Result != nil
	hasError := env.Error != nil

	switch {
	case hasID && hasMethod:
		return Message{Kind: KindRequest, ID: *env.ID, Method: env.Method, Params: env.Params}, nil
	case hasID && hasError:
		return Message{Kind: KindErrorResponse, ID: *env.ID, Error: env.Error}, nil
	case hasID && hasResult:
		return Message{Kind: KindResponse, ID: *env.ID, Result: env.Result}, nil
	case !hasID && hasMethod:
		return Message{Kind: KindNotification, Method: env.Method, Params: env.Params}, nil
	default:
		return Message{Kind: KindMalformed}, nil
	}
}

// EncodeRequest renders a JSON-RPC request with the given id, method, and
// already-encoded params (nil for no params).
func EncodeRequest(id ID, method string, params json.RawMessage) ([]byte, error) {
	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      ID              `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}{JSONRPC: Version, ID: id, Method: method, Params: params})
}

// EncodeNotification renders a JSON-RPC notification.
func EncodeNotification(method string, params json.RawMessage) ([]byte, error) {
	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}{JSONRPC: Version, Method: method, Params: params})
}

// EncodeResult renders a JSON-RPC success response.
func EncodeResult(id ID, result json.RawMessage) ([]byte, error) {
	if result == nil {
		result = json.RawMessage("null")
	}
	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      ID              `json:"id"`
		Result  json.RawMessage `json:"result"`
	}{JSONRPC: Version, ID: id, Result: result})
}

// EncodeError renders a JSON-RPC error response.
func EncodeError(id ID, errObj *ErrorObject) ([]byte, error) {
	return json.Marshal(struct {
		JSONRPC string       `json:"jsonrpc"`
		ID      ID           `json:"id"`
		Error   *ErrorObject `json:"error"`
	}{JSONRPC: Version, ID: id, Error: errObj})
}
