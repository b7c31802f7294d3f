package acp

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestContentBlockListRoundTrip(t *testing.T) {
	t.Parallel()

	list := ContentBlockList{
		TextContentBlock{Text: "hello"},
		ImageContentBlock{Data: "Zm9v", MimeType: "image/png"},
		ResourceLinkContentBlock{URI: "file:///a.go", Name: "a.go"},
		ResourceContentBlock{URI: "file:///b.go", Text: "package b"},
		AudioContentBlock{Data: "QUJD", MimeType: "audio/wav"},
	}

	b, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded ContentBlockList
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(decoded) != len(list) {
		t.Fatalf("decoded %d blocks, want %d", len(decoded), len(list))
	}
	for i, want := range list {
		if !reflect.DeepEqual(decoded[i], want) {
			t.Fatalf("block %d = %#v, want %#v", i, decoded[i], want)
		}
	}
}

func TestDecodeContentBlockUnknownType(t *testing.T) {
	t.Parallel()
	_, err := decodeContentBlock(json.RawMessage(`{"type":"video"}`))
	if err == nil {
		t.Fatal("decodeContentBlock() on unknown type: want error, got nil")
	}
}

func TestContentBlockEncodesTypeTag(t *testing.T) {
	t.Parallel()
	b, err := encodeContentBlock(TextContentBlock{Text: "hi"})
	if err != nil {
		t.Fatalf("encodeContentBlock() error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if m["type"] != "text" {
		t.Fatalf("type = %v, want text", m["type"])
	}
	if m["text"] != "hi" {
		t.Fatalf("text = %v, want hi", m["text"])
	}
}
