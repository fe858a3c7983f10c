package transport

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestUnitReaderFramesBlocks(t *testing.T) {
	stream := "Response: Success\r\nActionID: A1\r\n\r\n" +
		"Event: Hangup\r\nChannel: SIP/100-0001\r\n\r\n"
	ur := NewUnitReader(strings.NewReader(stream))

	first, err := ur.ReadUnit()
	if err != nil {
		t.Fatalf("first ReadUnit failed: %v", err)
	}
	if got, want := string(first), "Response: Success\r\nActionID: A1\r\n"; got != want {
		t.Errorf("first unit = %q, want %q", got, want)
	}

	// Bytes read past the first terminator must be retained.
	second, err := ur.ReadUnit()
	if err != nil {
		t.Fatalf("second ReadUnit failed: %v", err)
	}
	if got, want := string(second), "Event: Hangup\r\nChannel: SIP/100-0001\r\n"; got != want {
		t.Errorf("second unit = %q, want %q", got, want)
	}

	if _, err := ur.ReadUnit(); err != io.EOF {
		t.Errorf("ReadUnit at end = %v, want io.EOF", err)
	}
}

func TestUnitReaderSkipsLeadingBlankLines(t *testing.T) {
	ur := NewUnitReader(strings.NewReader("\r\n\r\nEvent: Reload\r\n\r\n"))
	unit, err := ur.ReadUnit()
	if err != nil {
		t.Fatalf("ReadUnit failed: %v", err)
	}
	if got, want := string(unit), "Event: Reload\r\n"; got != want {
		t.Errorf("unit = %q, want %q", got, want)
	}
}

func TestUnitReaderTruncatedUnit(t *testing.T) {
	// Stream ends mid-unit: framing error, not clean EOF.
	ur := NewUnitReader(strings.NewReader("Event: Hangup\r\nChannel: SIP"))
	if _, err := ur.ReadUnit(); !errors.Is(err, ErrTruncatedUnit) {
		t.Errorf("ReadUnit = %v, want ErrTruncatedUnit", err)
	}
}

func TestUnitReaderUnitTooLarge(t *testing.T) {
	big := "Key: " + strings.Repeat("x", 100) + "\r\n"
	ur := NewUnitReaderWithMaxSize(strings.NewReader(big+big), 64)
	if _, err := ur.ReadUnit(); !errors.Is(err, ErrUnitTooLarge) {
		t.Errorf("ReadUnit = %v, want ErrUnitTooLarge", err)
	}
}

// failReader returns an explicit error on every read.
type failReader struct{ err error }

func (f failReader) Read([]byte) (int, error) { return 0, f.err }

func TestUnitReaderPropagatesReadErrors(t *testing.T) {
	wantErr := errors.New("connection reset")
	ur := NewUnitReader(failReader{err: wantErr})
	if _, err := ur.ReadUnit(); !errors.Is(err, wantErr) {
		t.Errorf("ReadUnit = %v, want wrapped %v", err, wantErr)
	}
}

func TestUnitReaderBanner(t *testing.T) {
	stream := "PBX Control/5.0\r\nResponse: Success\r\n\r\n"
	ur := NewUnitReader(strings.NewReader(stream))

	banner, err := ur.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine failed: %v", err)
	}
	if banner != "PBX Control/5.0" {
		t.Errorf("banner = %q, want %q", banner, "PBX Control/5.0")
	}

	unit, err := ur.ReadUnit()
	if err != nil {
		t.Fatalf("ReadUnit after banner failed: %v", err)
	}
	if got, want := string(unit), "Response: Success\r\n"; got != want {
		t.Errorf("unit = %q, want %q", got, want)
	}
}

func TestLineReader(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   []string
	}{
		{
			name:   "LF terminated",
			stream: "200 result=1\nfoo\n",
			want:   []string{"200 result=1", "foo"},
		},
		{
			name:   "CRLF terminated",
			stream: "200 result=1\r\nfoo\r\n",
			want:   []string{"200 result=1", "foo"},
		},
		{
			name:   "empty line preserved",
			stream: "a\n\nb\n",
			want:   []string{"a", "", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLineReader(strings.NewReader(tt.stream))
			for i, want := range tt.want {
				got, err := lr.ReadLine()
				if err != nil {
					t.Fatalf("ReadLine %d failed: %v", i, err)
				}
				if got != want {
					t.Errorf("line %d = %q, want %q", i, got, want)
				}
			}
			if _, err := lr.ReadLine(); err != io.EOF {
				t.Errorf("ReadLine at end = %v, want io.EOF", err)
			}
		})
	}
}

func TestLineReaderTruncatedLine(t *testing.T) {
	lr := NewLineReader(strings.NewReader("no terminator"))
	if _, err := lr.ReadLine(); !errors.Is(err, ErrTruncatedUnit) {
		t.Errorf("ReadLine = %v, want ErrTruncatedUnit", err)
	}
}
