// Package wire implements the text message layer shared by both PBX
// control protocols.
//
// Admin-protocol messages are blocks of "Key: Value" header lines
// terminated by a blank line. Parse turns one framed block into a Unit,
// an ordered header map. Request serializes an outgoing action the same
// way and guarantees a correlation id (ActionID) is present.
//
// # Duplicate headers
//
// Historical implementations of this protocol disagreed on duplicate
// header handling (last-wins vs newline-join). This package's contract
// is newline-join: if the same key appears more than once in a unit,
// the values are concatenated with a single "\n" separator, in arrival
// order.
//
// # Booleans
//
// Boolean request fields serialize as the lowercase literals "true" and
// "false". The server accepts either case; this package always emits
// lowercase.
package wire
