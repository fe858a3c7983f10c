package agi

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbxkit/pbxkit-go/pkg/log"
	"github.com/pbxkit/pbxkit-go/pkg/transport"
)

// SessionConfig configures a call-control session.
type SessionConfig struct {
	// Logger is the application logger (default slog.Default()).
	Logger *slog.Logger

	// WireLogger captures protocol traffic. Nil disables capture.
	WireLogger log.Logger

	// SkipEnv skips reading the environment header block. Useful for
	// raw pipes in tests or for transports that deliver no
	// environment.
	SkipEnv bool
}

// Session is one call-control execution channel. Commands execute one
// at a time; the session serializes concurrent callers.
type Session struct {
	r       *transport.LineReader
	w       *bufio.Writer
	logger  *slog.Logger
	wireLog log.Logger
	connID  string

	mu  sync.Mutex
	env map[string]string
}

// NewSession wraps the execution channel and, unless cfg.SkipEnv is
// set, consumes the environment header block ("key: value" lines
// terminated by a blank line) the switch sends on startup.
func NewSession(r io.Reader, w io.Writer, cfg SessionConfig) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var wireLog log.Logger = log.NoopLogger{}
	if cfg.WireLogger != nil {
		wireLog = cfg.WireLogger
	}

	s := &Session{
		r:       transport.NewLineReader(r),
		w:       bufio.NewWriter(w),
		logger:  logger,
		wireLog: wireLog,
		connID:  uuid.New().String(),
		env:     make(map[string]string),
	}

	if !cfg.SkipEnv {
		if err := s.readEnv(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// readEnv consumes the environment block.
func (s *Session) readEnv() error {
	for {
		line, err := s.r.ReadLine()
		if err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		if line == "" {
			return nil
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		s.env[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
}

// Env returns the environment header value for key (e.g.
// "agi_channel"), or "" if absent.
func (s *Session) Env(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env[key]
}

// EnvKeys returns all environment header names.
func (s *Session) EnvKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.env))
	for k := range s.env {
		keys = append(keys, k)
	}
	return keys
}

// replyRE matches the leading "CODE SEP rest" pattern of a reply line.
var replyRE = regexp.MustCompile(`^(\d{3})([ -]?)(.*)$`)

// Evaluate composes a command line, writes it, and parses the reply.
//
// With extra arguments, template is a positional format string:
// numeric arguments substitute bare, everything else is quoted with
// embedded quotes and newlines escaped. The composed command is written
// as one LF-terminated line and flushed immediately.
//
// Protocol-level failures (510, 520, other non-200 codes, negative
// result values) are logged and returned as structured results; the
// returned error is reserved for transport and framing failures.
func (s *Session) Evaluate(template string, args ...any) (*Result, error) {
	command := template
	if len(args) > 0 {
		command = fmt.Sprintf(template, quoteArgs(args)...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.WriteString(command + "\n"); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}
	s.logLine(log.DirectionOut, command)

	line, err := s.r.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	s.logLine(log.DirectionIn, line)

	m := replyRE.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("malformed reply line %q", line)
	}

	code, _ := strconv.Atoi(m[1])
	res := &Result{Code: code}

	if m[2] == "-" {
		// Multi-line body, terminated by a line reusing the status code.
		var body []string
		for {
			next, err := s.r.ReadLine()
			if err != nil {
				return nil, fmt.Errorf("read reply body: %w", err)
			}
			s.logLine(log.DirectionIn, next)
			if strings.HasPrefix(next, m[1]) {
				break
			}
			body = append(body, next)
		}
		res.Data = strings.Join(body, "\n")
	} else {
		res.parseAnnotations(m[3])
	}

	switch {
	case res.Code == StatusBadCommand:
		s.logger.Error("unknown command", "command", command)
	case res.Code == StatusInvalid:
		s.logger.Error("invalid command syntax", "command", command, "usage", res.Data)
	case res.Code != StatusOK:
		s.logger.Error("unexpected reply status", "code", res.Code, "command", command)
	}
	if strings.HasPrefix(res.Result, "-") {
		s.logger.Debug("negative result", "command", command, "result", res.Result)
	}

	return res, nil
}

// quoteArgs prepares format arguments: numeric values pass through
// bare, everything else is quoted with embedded quote and newline
// characters escaped.
func quoteArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[i] = a
		case string:
			out[i] = quote(v)
		case fmt.Stringer:
			out[i] = quote(v.String())
		default:
			out[i] = quote(fmt.Sprint(a))
		}
	}
	return out
}

var quoteEscaper = strings.NewReplacer(`"`, `\"`, "\n", `\n`)

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}

func (s *Session) logLine(dir log.Direction, text string) {
	truncated := false
	if len(text) > log.MaxRawCaptureSize {
		text = text[:log.MaxRawCaptureSize]
		truncated = true
	}
	s.wireLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    dir,
		Protocol:     log.ProtocolCallControl,
		Category:     log.CategoryMessage,
		Line:         &log.LineEvent{Text: text, Truncated: truncated},
	})
}
