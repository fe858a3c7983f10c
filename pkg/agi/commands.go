package agi

import (
	"strings"
	"time"
)

// Answer answers the channel.
func (s *Session) Answer() (*Result, error) {
	return s.Evaluate("ANSWER")
}

// Hangup hangs up the given channel, or the current one when channel
// is empty.
func (s *Session) Hangup(channel string) (*Result, error) {
	if channel == "" {
		return s.Evaluate("HANGUP")
	}
	return s.Evaluate("HANGUP %s", channel)
}

// StreamFile plays a sound file, interruptible by any of escapeDigits.
func (s *Session) StreamFile(file, escapeDigits string) (*Result, error) {
	return s.Evaluate("STREAM FILE %s %s", file, escapeDigits)
}

// RecordFile records channel audio to a file. A timeout of zero or
// less means no limit (-1 on the wire).
func (s *Session) RecordFile(file, format, escapeDigits string, timeout time.Duration) (*Result, error) {
	ms := -1
	if timeout > 0 {
		ms = int(timeout.Milliseconds())
	}
	return s.Evaluate("RECORD FILE %s %s %s %d", file, format, escapeDigits, ms)
}

// GetVariable reads a channel variable. The value travels in the
// reply's parenthesized data segment; a result of "0" means the
// variable is not set.
func (s *Session) GetVariable(name string) (string, error) {
	res, err := s.Evaluate("GET VARIABLE %s", name)
	if err != nil {
		return "", err
	}
	return res.Data, nil
}

// SetVariable sets a channel variable.
func (s *Session) SetVariable(name, value string) (*Result, error) {
	return s.Evaluate("SET VARIABLE %s %s", name, value)
}

// SayDigits says a digit string, interruptible by escapeDigits.
func (s *Session) SayDigits(digits, escapeDigits string) (*Result, error) {
	return s.Evaluate("SAY DIGITS %s %s", digits, escapeDigits)
}

// SayNumber says a number, interruptible by escapeDigits.
func (s *Session) SayNumber(number int, escapeDigits string) (*Result, error) {
	return s.Evaluate("SAY NUMBER %d %s", number, escapeDigits)
}

// SayPhonetic spells out text phonetically.
func (s *Session) SayPhonetic(text, escapeDigits string) (*Result, error) {
	return s.Evaluate("SAY PHONETIC %s %s", text, escapeDigits)
}

// SayTime says a time, given as seconds since the epoch.
func (s *Session) SayTime(t time.Time, escapeDigits string) (*Result, error) {
	return s.Evaluate("SAY TIME %d %s", t.Unix(), escapeDigits)
}

// Exec runs a named switch application with arguments.
func (s *Session) Exec(application string, args ...string) (*Result, error) {
	if len(args) == 0 {
		return s.Evaluate("EXEC %s", application)
	}
	return s.Evaluate("EXEC %s %s", application, strings.Join(args, ","))
}

// Verbose sends a message to the switch console at the given level.
func (s *Session) Verbose(message string, level int) (*Result, error) {
	return s.Evaluate("VERBOSE %s %d", message, level)
}
