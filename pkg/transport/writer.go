package transport

import (
	"bufio"
	"fmt"
	"io"
)

// UnitWriter writes framed admin-protocol units to a byte stream,
// flushing after every unit so a request is never left sitting in the
// buffer. Callers serialize access themselves.
type UnitWriter struct {
	w *bufio.Writer
}

// NewUnitWriter creates a unit writer.
func NewUnitWriter(w io.Writer) *UnitWriter {
	return &UnitWriter{w: bufio.NewWriter(w)}
}

// WriteUnit writes one pre-encoded unit, including its terminating
// empty line, and flushes it.
func (uw *UnitWriter) WriteUnit(data []byte) error {
	if _, err := uw.w.Write(data); err != nil {
		return fmt.Errorf("write unit: %w", err)
	}
	if err := uw.w.Flush(); err != nil {
		return fmt.Errorf("write unit: %w", err)
	}
	return nil
}
