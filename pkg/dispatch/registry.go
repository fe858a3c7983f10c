package dispatch

import (
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/pbxkit/pbxkit-go/pkg/wire"
)

// Wildcard receives events with no exact-name registration.
const Wildcard = "*"

// Registry errors.
var (
	// ErrNotRegistered indicates no handlers exist for the event name.
	ErrNotRegistered = errors.New("no handlers registered for event")
)

// Identity describes the connection an event arrived on.
type Identity struct {
	Host string
	Port int
}

// String returns "host:port".
func (id Identity) String() string {
	return net.JoinHostPort(id.Host, strconv.Itoa(id.Port))
}

// Handler receives a dispatched event: its name, the full unit, and the
// identity of the connection it arrived on.
type Handler func(name string, unit *wire.Unit, conn Identity)

// Registry maps lowercased event names to ordered handler lists.
// Safe for concurrent registration and dispatch.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry logging through slog.Default().
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string][]Handler),
		logger:   slog.Default(),
	}
}

// SetLogger replaces the registry's application logger.
// A nil logger selects slog.Default().
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register appends a handler for the event name (case-insensitive) or
// the Wildcard. Multiple handlers per name are invoked in registration
// order.
func (r *Registry) Register(name string, h Handler) {
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = append(r.handlers[key], h)
}

// Unregister removes all handlers for the event name.
// Returns ErrNotRegistered if none exist.
func (r *Registry) Unregister(name string) error {
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[key]; !ok {
		return ErrNotRegistered
	}
	delete(r.handlers, key)
	return nil
}

// Count returns the number of handlers registered for the event name.
func (r *Registry) Count(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[strings.ToLower(name)])
}

// Dispatch delivers the event unit to its handlers: exact lowercased
// name first, wildcard set otherwise. A nil handler is skipped with a
// logged warning; it never prevents delivery to the remaining handlers.
func (r *Registry) Dispatch(unit *wire.Unit, conn Identity) {
	name := unit.Name()

	r.mu.RLock()
	hs := r.handlers[strings.ToLower(name)]
	if len(hs) == 0 {
		hs = r.handlers[Wildcard]
	}
	list := make([]Handler, len(hs))
	copy(list, hs)
	logger := r.logger
	r.mu.RUnlock()

	if len(list) == 0 {
		logger.Debug("no handler for event", "event", name, "conn", conn.String())
		return
	}

	for _, h := range list {
		if h == nil {
			logger.Warn("skipping nil event handler", "event", name)
			continue
		}
		h(name, unit, conn)
	}
}
