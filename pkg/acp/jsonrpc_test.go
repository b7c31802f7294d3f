package acp

import (
	"encoding/json"
	"testing"
)

func TestIDPreservesWireShape(t *testing.T) {
	t.Parallel()

	intID := NewIntID(42)
	if v, ok := intID.Int(); !ok || v != 42 {
		t.Fatalf("Int() = %v, %v, want 42, true", v, ok)
	}
	b, err := json.Marshal(intID)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(b) != "42" {
		t.Fatalf("Marshal() = %s, want 42", b)
	}

	strID := NewStringID("req-1")
	b, err = json.Marshal(strID)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(b) != `"req-1"` {
		t.Fatalf("Marshal() = %s, want %q", b, `"req-1"`)
	}
}

func TestIDRoundTrip(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"1", `"abc"`, "null"} {
		var id ID
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", raw, err)
		}
		b, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		if string(b) != raw {
			t.Fatalf("round trip of %s produced %s", raw, b)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want Kind
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, KindRequest},
		{"response", `{"jsonrpc":"2.0","id":1,"result":{}}`, KindResponse},
		{"null result response", `{"jsonrpc":"2.0","id":1,"result":null}`, KindResponse},
		{"error response", `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"nope"}}`, KindErrorResponse},
		{"notification", `{"jsonrpc":"2.0","method":"session/update","params":{}}`, KindNotification},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"x"}`, KindMalformed},
		{"nothing useful", `{"jsonrpc":"2.0"}`, KindMalformed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := Classify([]byte(tt.body))
			if err != nil {
				t.Fatalf("Classify() error: %v", err)
			}
			if msg.Kind != tt.want {
				t.Fatalf("Classify() kind = %v, want %v", msg.Kind, tt.want)
			}
		})
	}
}

func TestClassifyInvalidJSON(t *testing.T) {
	t.Parallel()
	if _, err := Classify([]byte("not json")); err == nil {
		t.Fatal("Classify() on invalid JSON: want error, got nil")
	}
}

func TestEncodeRequestRoundTrip(t *testing.T) {
	t.Parallel()

	id := NewIntID(7)
	params, _ := json.Marshal(map[string]string{"cwd": "/tmp"})
	b, err := EncodeRequest(id, "session/new", params)
	if err != nil {
		t.Fatalf("EncodeRequest() error: %v", err)
	}
	msg, err := Classify(b)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if msg.Kind != KindRequest || msg.Method != "session/new" || !msg.ID.Equal(id) {
		t.Fatalf("unexpected round trip: %+v", msg)
	}
}
