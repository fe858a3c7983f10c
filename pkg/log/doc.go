// Package log provides protocol capture logging for PBX control
// connections.
//
// This is wire-level capture for debugging and offline analysis, not
// application logging (the library uses log/slog for that). Every unit
// and command line crossing a connection can be recorded as an Event,
// together with connection state changes and errors.
//
// Events are encoded as CBOR with integer keys for compactness.
// FileLogger appends events to a capture file; Reader iterates one,
// optionally filtered. SlogAdapter mirrors events into an slog.Logger
// for development, and MultiLogger fans out to several sinks.
//
// Pass NoopLogger (or nil, where accepted) to disable capture.
package log
