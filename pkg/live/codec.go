// Package live defines the wire protocol of the form live channel.
//
// A browser keeps one websocket per open form step. Edits flow up as frames,
// progress and save-state notifications flow down. Frames are msgpack-encoded
// with short field tags to keep the channel cheap on chatty forms.
package live

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// FrameType discriminates live frames.
type FrameType string

// Client-to-server frame types.
const (
	// FrameSet carries one field edit: Key and Value.
	FrameSet FrameType = "set"

	// FrameSelect carries a branch selection change: Key (the branching
	// field's own value key) and Option.
	FrameSelect FrameType = "select"

	// FrameSave requests an immediate full save, bypassing the debounce.
	FrameSave FrameType = "save"
)

// Server-to-client frame types.
const (
	// FrameProgress announces a recomputed completion percentage.
	FrameProgress FrameType = "progress"

	// FrameSaveState announces an autosave state transition.
	FrameSaveState FrameType = "save-state"

	// FrameFieldError carries one field's validation message; an empty
	// Message clears a previous error.
	FrameFieldError FrameType = "field-error"
)

// ErrUnknownFrame is returned when decoding a frame of unknown type.
var ErrUnknownFrame = errors.New("live: unknown frame type")

// Frame is one message on the live channel. Only the fields relevant to the
// Type are populated.
type Frame struct {
	Type FrameType `msgpack:"t"`

	// Key addresses one flat form value.
	Key string `msgpack:"k,omitempty"`

	// Value is the edited value for FrameSet.
	Value any `msgpack:"v,omitempty"`

	// Option is the selected branch option for FrameSelect.
	Option string `msgpack:"o,omitempty"`

	// Percent is the completion percentage for FrameProgress.
	Percent int `msgpack:"p,omitempty"`

	// State is the controller status name for FrameSaveState.
	State string `msgpack:"s,omitempty"`

	// Message is a human-readable error text.
	Message string `msgpack:"m,omitempty"`
}

// Encode serializes a frame.
func Encode(f *Frame) ([]byte, error) {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("live: encode %s frame: %w", f.Type, err)
	}
	return data, nil
}

// Decode parses a frame and rejects unknown types.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("live: decode frame: %w", err)
	}
	switch f.Type {
	case FrameSet, FrameSelect, FrameSave, FrameProgress, FrameSaveState, FrameFieldError:
		return &f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
	}
}

// Progress builds a progress frame.
func Progress(percent int) *Frame {
	return &Frame{Type: FrameProgress, Percent: percent}
}

// SaveState builds a save-state frame.
func SaveState(state, message string) *Frame {
	return &Frame{Type: FrameSaveState, State: state, Message: message}
}

// FieldError builds a field-error frame.
func FieldError(key, message string) *Frame {
	return &Frame{Type: FrameFieldError, Key: key, Message: message}
}
