// Package dispatch routes unsolicited protocol events to registered
// handlers.
//
// Handlers register under a lowercased event name or under the Wildcard
// "*". Dispatch looks up the exact lowercased name first and falls back
// to the wildcard set only when no exact registration exists; with
// neither, the event is a logged no-op. All matched handlers run
// synchronously, in registration order, on the connection's read
// goroutine, so keep them short or hand off to your own goroutine.
//
// The registry may be mutated concurrently with dispatch.
package dispatch
