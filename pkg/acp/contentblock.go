package acp

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is a single unit of a prompt or message: text, an inlined
// image or audio clip, a link to a resource, or an inlined resource. The
// union is closed over the five variants below; decoding peeks at the
// "type" tag and constructs the matching concrete type directly, so no
// reflection-based dispatch is involved.
type ContentBlock interface {
	contentBlockType() string
}

// TextContentBlock carries literal text.
type TextContentBlock struct {
	Text string `json:"text"`
	Meta Meta   `json:"_meta,omitempty"`
}

func (TextContentBlock) contentBlockType() string { return "text" }

// ImageContentBlock carries an inlined, base64-encoded image.
type ImageContentBlock struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType" validate:"required"`
	URI      string `json:"uri,omitempty"`
	Meta     Meta   `json:"_meta,omitempty"`
}

func (ImageContentBlock) contentBlockType() string { return "image" }

// AudioContentBlock carries an inlined, base64-encoded audio clip.
type AudioContentBlock struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType" validate:"required"`
	Meta     Meta   `json:"_meta,omitempty"`
}

func (AudioContentBlock) contentBlockType() string { return "audio" }

// ResourceLinkContentBlock points at a resource by URI without inlining it.
type ResourceLinkContentBlock struct {
	URI      string `json:"uri" validate:"required"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Meta     Meta   `json:"_meta,omitempty"`
}

func (ResourceLinkContentBlock) contentBlockType() string { return "resource_link" }

// ResourceContentBlock inlines a resource's contents alongside its URI.
type ResourceContentBlock struct {
	URI      string `json:"uri" validate:"required"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
	Meta     Meta   `json:"_meta,omitempty"`
}

func (ResourceContentBlock) contentBlockType() string { return "resource" }

// contentBlockTag is used only to read the discriminant before deciding
// which concrete type to decode the full payload into.
type contentBlockTag struct {
	Type string `json:"type"`
}

// decodeContentBlock decodes one ContentBlock from its wire shape,
// selecting the concrete variant by its "type" tag.
func decodeContentBlock(data json.RawMessage) (ContentBlock, error) {
	var tag contentBlockTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("acp: decoding content block tag: %w", err)
	}
	switch tag.Type {
	case "text":
		var v TextContentBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding text content block: %w", err)
		}
		return v, nil
	case "image":
		var v ImageContentBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding image content block: %w", err)
		}
		return v, nil
	case "audio":
		var v AudioContentBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding audio content block: %w", err)
		}
		return v, nil
	case "resource_link":
		var v ResourceLinkContentBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding resource_link content block: %w", err)
		}
		return v, nil
	case "resource":
		var v ResourceContentBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("acp: decoding resource content block: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("acp: unknown content block type %q", tag.Type)
	}
}

// encodeContentBlock renders a ContentBlock with its "type" discriminant
// set, by marshaling the concrete value into a map and injecting the tag.
func encodeContentBlock(cb ContentBlock) ([]byte, error) {
	body, err := json.Marshal(cb)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	typeJSON, err := json.Marshal(cb.contentBlockType())
	if err != nil {
		return nil, err
	}
	m["type"] = typeJSON
	return json.Marshal(m)
}

// MarshalJSON implements the envelope-with-tag encoding for a slice of
// content blocks embedded directly in a params struct.
type ContentBlockList []ContentBlock

func (l ContentBlockList) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for _, cb := range l {
		b, err := encodeContentBlock(cb)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (l *ContentBlockList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]ContentBlock, 0, len(raw))
	for _, r := range raw {
		cb, err := decodeContentBlock(r)
		if err != nil {
			return err
		}
		out = append(out, cb)
	}
	*l = out
	return nil
}
