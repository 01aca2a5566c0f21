// Package payload implements the byte framing used for secret content:
// a 4-byte big-endian metadata length, the JSON-encoded metadata, then
// the raw content bytes. The frame is built client-side, encrypted as a
// whole, and only ever seen in plaintext by sender and recipient.
package payload

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const headerSize = 4

var (
	ErrEncoding         = errors.New("payload: metadata encoding failed")
	ErrMalformedPayload = errors.New("payload: malformed payload")
)

// Kind tags what a frame carries.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindMixed Kind = "mixed"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText, KindImage, KindMixed:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown content kind: %q", s)
	}
}

// Metadata is the structured record framed ahead of the content bytes.
// Text holds the inline text for the text and mixed kinds; the content
// section of the frame carries the binary asset and stays empty for
// pure text.
type Metadata struct {
	Kind     Kind   `json:"type"`
	FileName string `json:"fileName,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

func (m Metadata) Validate() error {
	switch m.Kind {
	case KindText:
		if m.FileName != "" || m.MimeType != "" {
			return fmt.Errorf("text metadata must not carry file fields")
		}
	case KindImage:
		if m.Text != "" {
			return fmt.Errorf("image metadata must not carry inline text")
		}
		if m.MimeType == "" {
			return fmt.Errorf("image metadata requires a mime type")
		}
	case KindMixed:
		if m.MimeType == "" {
			return fmt.Errorf("mixed metadata requires a mime type")
		}
	default:
		return fmt.Errorf("unknown content kind: %q", m.Kind)
	}
	return nil
}

// Frame serializes metadata, prefixes its length and appends content.
func Frame(meta Metadata, content []byte) ([]byte, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if uint64(len(metaBytes)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: metadata length %d not representable", ErrEncoding, len(metaBytes))
	}

	framed := make([]byte, headerSize+len(metaBytes)+len(content))
	binary.BigEndian.PutUint32(framed[:headerSize], uint32(len(metaBytes)))
	copy(framed[headerSize:], metaBytes)
	copy(framed[headerSize+len(metaBytes):], content)
	return framed, nil
}

// Unframe reverses Frame. The declared metadata length must fit inside
// the available bytes.
func Unframe(framed []byte) (Metadata, []byte, error) {
	if len(framed) < headerSize {
		return Metadata{}, nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedPayload, len(framed), headerSize)
	}

	metaLen := binary.BigEndian.Uint32(framed[:headerSize])
	if uint64(metaLen) > uint64(len(framed)-headerSize) {
		return Metadata{}, nil, fmt.Errorf("%w: declared metadata length %d exceeds payload", ErrMalformedPayload, metaLen)
	}

	var meta Metadata
	if err := json.Unmarshal(framed[headerSize:headerSize+metaLen], &meta); err != nil {
		return Metadata{}, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	content := framed[headerSize+metaLen:]
	out := make([]byte, len(content))
	copy(out, content)
	return meta, out, nil
}
