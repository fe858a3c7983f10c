// Package agi implements the client side of the synchronous
// call-control protocol: the per-call script execution channel the
// switch opens for dialplan-invoked programs.
//
// A Session wraps the execution channel (process stdin/stdout, or a TCP
// connection in the remote variant). On start it consumes the
// environment header block the switch sends, then exposes Evaluate: one
// command line out, one reply back.
//
//	sess, err := agi.NewSession(os.Stdin, os.Stdout, agi.SessionConfig{})
//	if err != nil { ... }
//	res, err := sess.Answer()
//	res, err = sess.Evaluate("STREAM FILE %s %s", "welcome", "")
//
// Replies carry a three-digit status code. A "-" separator after the
// code marks a multi-line body terminated by a line repeating the code.
// Trailing "key=value (data)" annotations are folded into the Result.
// Non-success codes (510 unknown command, 520 invalid syntax) are
// returned as structured results, never as Go errors; only transport
// failures produce errors.
package agi
