package agi

import (
	"regexp"
	"strings"
)

// Reply status codes.
const (
	// StatusOK indicates the command succeeded.
	StatusOK = 200

	// StatusError indicates a general command failure.
	StatusError = 500

	// StatusBadCommand indicates the command is unknown.
	StatusBadCommand = 510

	// StatusInvalid indicates invalid command syntax; the reply body
	// usually carries a usage description.
	StatusInvalid = 520
)

// Result is a parsed command reply.
type Result struct {
	// Code is the three-digit reply status.
	Code int

	// Result is the command's result value. It stays string-typed
	// even when numeric: individual commands disagree on what the
	// number means, so interpretation is left to the caller.
	Result string

	// Data is supplementary payload: the last parenthesized
	// annotation, or the body of a multi-line reply.
	Data string

	// Extra holds additional key=value annotations found in the
	// reply beyond "result".
	Extra map[string]string
}

// Ok reports whether the reply status is 200.
func (r *Result) Ok() bool {
	return r.Code == StatusOK
}

// annotationRE matches one "key=value" pair with an optional trailing
// parenthesized data segment.
var annotationRE = regexp.MustCompile(`(\w+)=(\S*)(?:\s+\(([^)]*)\))?`)

// parseAnnotations folds every "key=value (data)" annotation in text
// into the result. The last parenthesized data segment wins.
func (r *Result) parseAnnotations(text string) {
	for _, m := range annotationRE.FindAllStringSubmatch(text, -1) {
		key, value, data := m[1], m[2], m[3]
		if strings.EqualFold(key, "result") {
			r.Result = value
		} else {
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[key] = value
		}
		if data != "" {
			r.Data = data
		}
	}
}
