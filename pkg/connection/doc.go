// Package connection provides connection lifecycle management for PBX
// control clients.
//
// A lost admin connection drops all in-flight requests but not the
// caller's event handler registrations, so automatic redial plus
// re-login restores service transparently. The Supervisor handles this:
// exponential backoff with jitter between attempts, reset on success,
// state callbacks for observability.
//
// # Reconnection strategy
//
//  1. Initial delay 1 second, doubling per attempt
//  2. Capped at 60 seconds, continuing at the cap
//  3. Jitter of up to 25% of the base delay on every attempt
//  4. Reset to 1 second after a successful connect
package connection
