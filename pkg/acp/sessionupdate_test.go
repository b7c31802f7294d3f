package acp

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSessionUpdateParamsRoundTripChunk(t *testing.T) {
	t.Parallel()

	params := SessionUpdateParams{
		SessionID: "sess-1",
		Update:    AgentMessageChunk{Content: TextContentBlock{Text: "hi there"}},
	}
	b, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded SessionUpdateParams
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded.SessionID != "sess-1" {
		t.Fatalf("SessionID = %q, want sess-1", decoded.SessionID)
	}
	chunk, ok := decoded.Update.(AgentMessageChunk)
	if !ok {
		t.Fatalf("Update type = %T, want AgentMessageChunk", decoded.Update)
	}
	if !reflect.DeepEqual(chunk.Content, TextContentBlock{Text: "hi there"}) {
		t.Fatalf("Content = %#v, want text block", chunk.Content)
	}
}

func TestSessionUpdateParamsRoundTripToolCall(t *testing.T) {
	t.Parallel()

	line := 12
	params := SessionUpdateParams{
		SessionID: "sess-2",
		Update: ToolCall{
			ToolCallID: "call-1",
			Title:      "Read file",
			Kind:       ToolCallKindRead,
			Status:     ToolCallStatusInProgress,
			Locations:  []ToolCallLocation{{Path: "main.go", Line: &line}},
		},
	}
	b, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded SessionUpdateParams
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	tc, ok := decoded.Update.(ToolCall)
	if !ok {
		t.Fatalf("Update type = %T, want ToolCall", decoded.Update)
	}
	if tc.ToolCallID != "call-1" || tc.Kind != ToolCallKindRead {
		t.Fatalf("tool call decoded wrong: %+v", tc)
	}
	if len(tc.Locations) != 1 || tc.Locations[0].Path != "main.go" || *tc.Locations[0].Line != 12 {
		t.Fatalf("locations decoded wrong: %+v", tc.Locations)
	}
}

func TestSessionUpdateParamsRoundTripPlan(t *testing.T) {
	t.Parallel()

	params := SessionUpdateParams{
		SessionID: "sess-3",
		Update: Plan{Entries: []PlanEntry{
			{Content: "write tests", Priority: PlanEntryPriorityHigh, Status: PlanEntryStatusPending},
		}},
	}
	b, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	var tag sessionUpdateTag
	if err := json.Unmarshal(m["update"], &tag); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if tag.SessionUpdate != "plan" {
		t.Fatalf("sessionUpdate tag = %q, want plan", tag.SessionUpdate)
	}
}

func TestDecodeSessionUpdateUnknownType(t *testing.T) {
	t.Parallel()
	_, err := decodeSessionUpdate(json.RawMessage(`{"sessionUpdate":"made_up"}`))
	if err == nil {
		t.Fatal("decodeSessionUpdate() on unknown type: want error, got nil")
	}
}
