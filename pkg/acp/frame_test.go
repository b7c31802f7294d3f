package acp

import (
	"bytes"
	"strconv"
	"testing"
)

func TestFrameDecoderSingleFrame(t *testing.T) {
	t.Parallel()

	d := NewFrameDecoder()
	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	d.Feed(EncodeFrame(body))

	payload, ok, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !ok {
		t.Fatal("Next() ok = false, want true")
	}
	if !bytes.Equal(payload, body) {
		t.Fatalf("Next() payload = %s, want %s", payload, body)
	}

	if _, ok, err := d.Next(); ok || err != nil {
		t.Fatalf("Next() after drain = %v, %v, want false, nil", ok, err)
	}
}

func TestFrameDecoderPartialDelivery(t *testing.T) {
	t.Parallel()

	d := NewFrameDecoder()
	body := []byte(`{"jsonrpc":"2.0","method":"session/update","params":{}}`)
	full := EncodeFrame(body)

	// Feed the frame one byte at a time to exercise partial-header and
	// partial-body reassembly.
	for i := 0; i < len(full); i++ {
		d.Feed(full[i : i+1])
		payload, ok, err := d.Next()
		if err != nil {
			t.Fatalf("Next() error mid-stream: %v", err)
		}
		if ok {
			if i != len(full)-1 {
				t.Fatalf("Next() reported complete frame early at byte %d", i)
			}
			if !bytes.Equal(payload, body) {
				t.Fatalf("Next() payload = %s, want %s", payload, body)
			}
		}
	}
}

func TestFrameDecoderLegacyLFSeparator(t *testing.T) {
	t.Parallel()

	d := NewFrameDecoder()
	body := []byte(`{"jsonrpc":"2.0","id":1,"result":null}`)
	frame := append([]byte("Content-Length: "+strconv.Itoa(len(body))+"\n\n"), body...)
	d.Feed(frame)

	payload, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = %s, %v, %v, want payload, true, nil", payload, ok, err)
	}
	if !bytes.Equal(payload, body) {
		t.Fatalf("Next() payload = %s, want %s", payload, body)
	}
}

func TestFrameDecoderMalformedHeaderResynchronizes(t *testing.T) {
	t.Parallel()

	d := NewFrameDecoder()
	d.Feed([]byte("Garbage-Header: yes\r\n\r\n"))

	_, ok, err := d.Next()
	if ok || err == nil {
		t.Fatalf("Next() on malformed header = %v, %v, want false, error", ok, err)
	}
	if !IsInvalidHeaders(err) {
		t.Fatalf("IsInvalidHeaders(%v) = false, want true", err)
	}

	// The buffer was cleared; a well-formed frame fed afterward decodes
	// cleanly, demonstrating the stream resynchronizes.
	body := []byte(`{"jsonrpc":"2.0","id":2,"result":true}`)
	d.Feed(EncodeFrame(body))
	payload, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("Next() after resync = %s, %v, %v", payload, ok, err)
	}
	if !bytes.Equal(payload, body) {
		t.Fatalf("Next() payload = %s, want %s", payload, body)
	}
}

func TestFrameDecoderInvalidJSONBody(t *testing.T) {
	t.Parallel()

	d := NewFrameDecoder()
	body := []byte("not json at all")
	d.Feed(EncodeFrame(body))

	_, ok, err := d.Next()
	if ok || err == nil {
		t.Fatalf("Next() on non-JSON body = %v, %v, want false, error", ok, err)
	}
	if !IsInvalidJSON(err) {
		t.Fatalf("IsInvalidJSON(%v) = false, want true", err)
	}
}

func TestFrameDecoderMultipleFramesInOneFeed(t *testing.T) {
	t.Parallel()

	d := NewFrameDecoder()
	body1 := []byte(`{"jsonrpc":"2.0","id":1,"result":1}`)
	body2 := []byte(`{"jsonrpc":"2.0","id":2,"result":2}`)
	d.Feed(append(EncodeFrame(body1), EncodeFrame(body2)...))

	p1, ok, err := d.Next()
	if err != nil || !ok || !bytes.Equal(p1, body1) {
		t.Fatalf("first frame = %s, %v, %v", p1, ok, err)
	}
	p2, ok, err := d.Next()
	if err != nil || !ok || !bytes.Equal(p2, body2) {
		t.Fatalf("second frame = %s, %v, %v", p2, ok, err)
	}
}
