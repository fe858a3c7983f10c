package wire

import (
	"bytes"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Field is one request header. A field with multiple values serializes
// as one header line per value, in order.
type Field struct {
	Key    string
	Values []string
}

// Fields is an ordered list of request headers. The zero value is
// usable; builder methods return the extended list.
type Fields []Field

// Add appends a single-valued field.
func (f Fields) Add(key, value string) Fields {
	return append(f, Field{Key: key, Values: []string{value}})
}

// AddOpt appends a single-valued field, or nothing when value is empty.
func (f Fields) AddOpt(key, value string) Fields {
	if value == "" {
		return f
	}
	return f.Add(key, value)
}

// AddList appends a multi-valued field. No-op when values is empty.
func (f Fields) AddList(key string, values ...string) Fields {
	if len(values) == 0 {
		return f
	}
	return append(f, Field{Key: key, Values: values})
}

// AddInt appends an integer field.
func (f Fields) AddInt(key string, value int) Fields {
	return f.Add(key, strconv.Itoa(value))
}

// AddBool appends a boolean field, serialized lowercase.
func (f Fields) AddBool(key string, value bool) Fields {
	return f.Add(key, strconv.FormatBool(value))
}

// Get returns the first value whose key matches case-insensitively,
// or "" if absent.
func (f Fields) Get(key string) string {
	for _, field := range f {
		if strings.EqualFold(field.Key, key) && len(field.Values) > 0 {
			return field.Values[0]
		}
	}
	return ""
}

// Request is an outgoing admin-protocol action.
type Request struct {
	Action string
	Fields Fields
}

// EnsureActionID returns the request's correlation id. When no field
// carries a non-empty ActionID value (case-insensitive key match), a
// fresh id is generated; an existing field with an empty value is
// filled in place so the encoded request never carries two ActionID
// lines.
func (r *Request) EnsureActionID() string {
	if id := r.Fields.Get(KeyActionID); id != "" {
		return id
	}
	id := NewActionID()
	for i := range r.Fields {
		if strings.EqualFold(r.Fields[i].Key, KeyActionID) {
			r.Fields[i].Values = []string{id}
			return id
		}
	}
	r.Fields = r.Fields.Add(KeyActionID, id)
	return id
}

// Encode serializes the request as CRLF-terminated "Key: Value" lines,
// opening with the Action header and closing with a blank line.
func (r *Request) Encode() []byte {
	var b bytes.Buffer
	b.WriteString(KeyAction)
	b.WriteString(": ")
	b.WriteString(r.Action)
	b.WriteString("\r\n")
	for _, f := range r.Fields {
		for _, v := range f.Values {
			b.WriteString(f.Key)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\r\n")
		}
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// NewActionID returns a correlation id of the form "A" followed by six
// random digits. Uniqueness is best-effort: callers that need strict
// correlation across many concurrent requests should supply their own
// ids via an ActionID field.
func NewActionID() string {
	return fmt.Sprintf("A%06d", rand.Intn(1000000))
}
