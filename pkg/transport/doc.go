// Package transport provides framing for the PBX control protocols.
//
// Both protocols are plain ASCII text over a byte stream, but they
// frame differently:
//
//   - The admin protocol exchanges blocks of "Key: Value" lines
//     terminated by an empty line (CRLF CRLF). UnitReader returns one
//     such block per call, retaining any bytes read past the terminator
//     for the next call.
//   - The call-control protocol is line-oriented: one command out, one
//     (possibly continued) reply line back. LineReader returns single
//     lines, accepting both LF and CRLF termination.
//
// Read errors propagate immediately. End of stream with a partial,
// non-empty buffer is a framing error (ErrTruncatedUnit), surfaced
// distinctly from a clean disconnect (io.EOF).
package transport
