package log

import (
	"time"
)

// MaxRawCaptureSize is the maximum raw payload size included in an
// event (4 KB). Larger payloads are truncated in the capture, never on
// the wire.
const MaxRawCaptureSize = 4096

// Event is one captured protocol event. CBOR encoding uses integer keys
// for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Protocol identifies which of the two control protocols the
	// event belongs to.
	Protocol Protocol `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address, when known.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (exactly one is set).
	Unit        *UnitEvent        `cbor:"10,keyasint,omitempty"` // admin-protocol unit
	Line        *LineEvent        `cbor:"11,keyasint,omitempty"` // call-control line
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Protocol identifies the control protocol an event was captured on.
type Protocol uint8

const (
	// ProtocolAdmin is the asynchronous event/action protocol.
	ProtocolAdmin Protocol = 0
	// ProtocolCallControl is the synchronous command/response protocol.
	ProtocolCallControl Protocol = 1
)

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolAdmin:
		return "ADMIN"
	case ProtocolCallControl:
		return "CALLCTL"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message.
	CategoryMessage Category = 0
	// CategoryState indicates a connection state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// UnitEvent captures one admin-protocol unit.
type UnitEvent struct {
	// Action is the action name for outgoing requests.
	Action string `cbor:"1,keyasint,omitempty"`

	// Event is the event name for incoming event units.
	Event string `cbor:"2,keyasint,omitempty"`

	// Response is the response classification for incoming replies.
	Response string `cbor:"3,keyasint,omitempty"`

	// ActionID is the unit's correlation id, when present.
	ActionID string `cbor:"4,keyasint,omitempty"`

	// Size is the full wire size of the unit in bytes.
	Size int `cbor:"5,keyasint"`

	// Raw holds the unit text, possibly truncated.
	Raw []byte `cbor:"6,keyasint,omitempty"`

	// Truncated indicates Raw was cut at MaxRawCaptureSize.
	Truncated bool `cbor:"7,keyasint,omitempty"`
}

// LineEvent captures one call-control command or reply line.
type LineEvent struct {
	// Text is the line, possibly truncated, without its terminator.
	Text string `cbor:"1,keyasint"`

	// Truncated indicates Text was cut at MaxRawCaptureSize.
	Truncated bool `cbor:"2,keyasint,omitempty"`
}

// StateChangeEvent captures a connection state transition.
type StateChangeEvent struct {
	From string `cbor:"1,keyasint"`
	To   string `cbor:"2,keyasint"`
}

// ErrorEventData captures an error with the operation it occurred in.
type ErrorEventData struct {
	Op      string `cbor:"1,keyasint,omitempty"`
	Message string `cbor:"2,keyasint"`
}

// TruncateRaw returns data capped at MaxRawCaptureSize and whether it
// was cut.
func TruncateRaw(data []byte) ([]byte, bool) {
	if len(data) <= MaxRawCaptureSize {
		return data, false
	}
	return data[:MaxRawCaptureSize], true
}
