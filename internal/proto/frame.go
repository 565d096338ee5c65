// Package proto defines the wire protocol: msgpack-framed messages with a
// closed type enum, typed payloads per message type, and the error taxonomy.
package proto

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Version is sent on every frame and checked at the connection layer.
const Version = "1"

// Frame is the on-wire shape of every message in both directions.
// Payload stays raw until the dispatch layer decodes it into the typed
// payload struct for the frame's Type.
type Frame struct {
	ID      string             `msgpack:"id,omitempty"`
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
	Version string             `msgpack:"version"`
}

// NewFrame packs a typed payload into a frame.
func NewFrame(id, msgType string, payload any) (*Frame, error) {
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return &Frame{ID: id, Type: msgType, Payload: raw, Version: Version}, nil
}

// MustFrame is NewFrame for server-built payloads, which cannot fail to
// marshal. Panics on error; the dispatch layer recovers handler panics.
func MustFrame(id, msgType string, payload any) *Frame {
	f, err := NewFrame(id, msgType, payload)
	if err != nil {
		panic(err)
	}
	return f
}

// Encode serializes the frame for the socket.
func (f *Frame) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode frame %s: %w", f.Type, err)
	}
	return data, nil
}

// Decode parses one inbound frame and validates the protocol version.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("protocol version mismatch: got %q, want %q", f.Version, Version)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame missing type")
	}
	return &f, nil
}

// DecodePayload unmarshals the frame payload into dst. A nil payload is
// treated as an empty map so parameterless commands decode cleanly.
func (f *Frame) DecodePayload(dst any) error {
	if len(f.Payload) == 0 {
		return nil
	}
	if err := msgpack.Unmarshal(f.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", f.Type, err)
	}
	return nil
}
