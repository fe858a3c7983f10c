package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Framing constants.
const (
	// DefaultMaxUnitSize is the default maximum size of one framed
	// unit (1 MB). A unit growing past this limit indicates a broken
	// or hostile peer.
	DefaultMaxUnitSize = 1 << 20
)

// Framing errors.
var (
	// ErrUnitTooLarge indicates a unit exceeded the maximum size.
	ErrUnitTooLarge = errors.New("protocol unit too large")

	// ErrTruncatedUnit indicates the stream ended mid-unit.
	ErrTruncatedUnit = errors.New("truncated protocol unit")
)

// UnitReader frames admin-protocol units from a byte stream. A unit is
// everything up to the first empty line; bytes past the terminator are
// kept in the read buffer for the next call.
type UnitReader struct {
	r           *bufio.Reader
	maxUnitSize int
}

// NewUnitReader creates a unit reader with the default maximum size.
func NewUnitReader(r io.Reader) *UnitReader {
	return NewUnitReaderWithMaxSize(r, DefaultMaxUnitSize)
}

// NewUnitReaderWithMaxSize creates a unit reader with a custom maximum
// unit size. A maxSize of 0 or less selects the default.
func NewUnitReaderWithMaxSize(r io.Reader, maxSize int) *UnitReader {
	if maxSize <= 0 {
		maxSize = DefaultMaxUnitSize
	}
	return &UnitReader{
		r:           bufio.NewReader(r),
		maxUnitSize: maxSize,
	}
}

// ReadUnit returns the raw text of the next unit, without the
// terminating empty line. Leading empty lines are skipped. Returns
// io.EOF on a clean disconnect between units, ErrTruncatedUnit when the
// stream ends inside one.
func (ur *UnitReader) ReadUnit() ([]byte, error) {
	var buf []byte
	for {
		line, err := ur.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if len(buf)+len(line) > 0 {
					return nil, ErrTruncatedUnit
				}
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read unit: %w", err)
		}

		if strings.TrimRight(line, "\r\n") == "" {
			if len(buf) == 0 {
				continue
			}
			return buf, nil
		}

		buf = append(buf, line...)
		if len(buf) > ur.maxUnitSize {
			return nil, fmt.Errorf("%w: %d > %d", ErrUnitTooLarge, len(buf), ur.maxUnitSize)
		}
	}
}

// ReadLine returns the next single line, stripped of its terminator.
// Used for the protocol banner that precedes the first unit.
func (ur *UnitReader) ReadLine() (string, error) {
	return readLine(ur.r)
}

// LineReader frames single lines for the call-control protocol.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader creates a line reader.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// ReadLine returns the next line, stripped of its LF or CRLF
// terminator. Returns io.EOF on a clean disconnect at a line boundary,
// ErrTruncatedUnit when the stream ends mid-line.
func (lr *LineReader) ReadLine() (string, error) {
	return readLine(lr.r)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line != "" {
				return "", ErrTruncatedUnit
			}
			return "", io.EOF
		}
		return "", fmt.Errorf("read line: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
