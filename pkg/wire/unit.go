package wire

import (
	"strings"
)

// Header names with protocol-level meaning.
const (
	KeyAction   = "Action"
	KeyActionID = "ActionID"
	KeyEvent    = "Event"
	KeyResponse = "Response"
	KeyOutput   = "Output"

	// KeyEventList marks list replies. A value of "start" opens a
	// streamed sequence; "Complete" terminates it.
	KeyEventList = "EventList"
)

// Kind classifies a parsed unit.
type Kind uint8

const (
	// KindUnhandled is a unit with neither Event nor Response header.
	// Such units are logged and dropped; they never satisfy a pending
	// request.
	KindUnhandled Kind = iota

	// KindEvent is an asynchronously delivered notification.
	KindEvent

	// KindResponse is a reply to a request.
	KindResponse
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "EVENT"
	case KindResponse:
		return "RESPONSE"
	default:
		return "UNHANDLED"
	}
}

// Unit is one framed admin-protocol message: an insertion-ordered
// mapping from header name to value. Header keys are case-sensitive.
// Duplicate keys are newline-joined (see package documentation).
type Unit struct {
	keys   []string
	fields map[string]string

	// Events holds the interior units of an assembled list reply,
	// in arrival order. Populated by the correlation engine when the
	// reply was bracketed by EventList start/Complete markers.
	Events []*Unit
}

// NewUnit returns an empty unit.
func NewUnit() *Unit {
	return &Unit{fields: make(map[string]string)}
}

// Set adds a header value. A repeated key has its value newline-joined
// onto the existing one; key order is preserved from first appearance.
func (u *Unit) Set(key, value string) {
	if old, ok := u.fields[key]; ok {
		u.fields[key] = old + "\n" + value
		return
	}
	u.keys = append(u.keys, key)
	u.fields[key] = value
}

// Get returns the value for key, or "" if absent.
func (u *Unit) Get(key string) string {
	return u.fields[key]
}

// Has reports whether key is present.
func (u *Unit) Has(key string) bool {
	_, ok := u.fields[key]
	return ok
}

// Keys returns the header names in insertion order.
func (u *Unit) Keys() []string {
	out := make([]string, len(u.keys))
	copy(out, u.keys)
	return out
}

// Len returns the number of distinct headers.
func (u *Unit) Len() int {
	return len(u.keys)
}

// ActionID returns the unit's correlation id, or "" if absent.
func (u *Unit) ActionID() string {
	return u.fields[KeyActionID]
}

// Kind classifies the unit: Event header wins, then Response,
// otherwise unhandled.
func (u *Unit) Kind() Kind {
	if u.Has(KeyEvent) {
		return KindEvent
	}
	if u.Has(KeyResponse) {
		return KindResponse
	}
	return KindUnhandled
}

// Name returns the event name for event units, or "" otherwise.
func (u *Unit) Name() string {
	return u.fields[KeyEvent]
}

// Data returns supplementary command output for response units,
// derived from the Output header. Empty for all other units.
func (u *Unit) Data() string {
	if u.Kind() != KindResponse {
		return ""
	}
	return u.fields[KeyOutput]
}

// Success reports whether a response unit carries "Response: Success".
func (u *Unit) Success() bool {
	return strings.EqualFold(u.fields[KeyResponse], "Success")
}

// ListStart reports whether the unit opens a streamed list reply.
func (u *Unit) ListStart() bool {
	return strings.EqualFold(u.fields[KeyEventList], "start")
}

// ListComplete reports whether the unit terminates a streamed list reply.
func (u *Unit) ListComplete() bool {
	return strings.EqualFold(u.fields[KeyEventList], "Complete")
}

// Parse turns a framed block of text into a Unit. Lines are split on
// the first colon into key and value, with surrounding whitespace
// trimmed. Lines without a colon (raw command output inside "Follows"
// blocks) are folded into the Output header. Empty lines are ignored.
func Parse(raw []byte) *Unit {
	u := NewUnit()
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			u.Set(KeyOutput, line)
			continue
		}
		u.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return u
}
