package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors capture events into an slog.Logger at Debug
// level. Useful in development to watch protocol traffic on the
// console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("protocol", event.Protocol.String()),
		slog.String("category", event.Category.String()),
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	switch {
	case event.Unit != nil:
		if event.Unit.Action != "" {
			attrs = append(attrs, slog.String("action", event.Unit.Action))
		}
		if event.Unit.Event != "" {
			attrs = append(attrs, slog.String("event", event.Unit.Event))
		}
		if event.Unit.Response != "" {
			attrs = append(attrs, slog.String("response", event.Unit.Response))
		}
		if event.Unit.ActionID != "" {
			attrs = append(attrs, slog.String("action_id", event.Unit.ActionID))
		}
		attrs = append(attrs, slog.Int("size", event.Unit.Size))

	case event.Line != nil:
		attrs = append(attrs,
			slog.String("line", event.Line.Text),
			slog.Bool("truncated", event.Line.Truncated),
		)

	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("from", event.StateChange.From),
			slog.String("to", event.StateChange.To),
		)

	case event.Error != nil:
		attrs = append(attrs, slog.String("error", event.Error.Message))
		if event.Error.Op != "" {
			attrs = append(attrs, slog.String("op", event.Error.Op))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
