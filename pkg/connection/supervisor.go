package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Supervisor errors.
var (
	ErrSupervisorClosed = errors.New("supervisor closed")
	ErrAlreadyConnected = errors.New("already connected")
)

// State represents the supervised connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateReconnecting indicates automatic redial is in progress.
	StateReconnecting

	// StateClosed indicates the supervisor has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc establishes one connection attempt, including any
// application-level handshake (banner, login). It returns nil on
// success.
type ConnectFunc func(ctx context.Context) error

// Callbacks notify the application of supervisor activity.
// All fields are optional.
type Callbacks struct {
	OnStateChange  func(oldState, newState State)
	OnConnected    func()
	OnDisconnected func()
	OnRetry        func(attempt int, delay time.Duration)
}

// Supervisor manages a connection's lifecycle with automatic
// reconnection. Construct with NewSupervisor, call Connect for the
// first attempt, and report losses with ConnectionLost; the supervisor
// redials with backoff until success or Close.
type Supervisor struct {
	mu sync.RWMutex

	state          State
	backoff        *Backoff
	connectFn      ConnectFunc
	autoReconnect  bool
	callbacks      Callbacks
	attemptTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	retryCh chan struct{}
}

// NewSupervisor creates a supervisor around connectFn with automatic
// reconnection enabled.
func NewSupervisor(connectFn ConnectFunc, callbacks Callbacks) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		state:          StateDisconnected,
		backoff:        NewBackoff(),
		connectFn:      connectFn,
		autoReconnect:  true,
		callbacks:      callbacks,
		attemptTimeout: 30 * time.Second,
		ctx:            ctx,
		cancel:         cancel,
		retryCh:        make(chan struct{}, 1),
	}
	s.wg.Add(1)
	go s.retryLoop()
	return s
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected reports whether the connection is currently up.
func (s *Supervisor) IsConnected() bool {
	return s.State() == StateConnected
}

// SetAutoReconnect enables or disables automatic redial.
func (s *Supervisor) SetAutoReconnect(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoReconnect = enabled
}

// Attempts returns the number of redial attempts since the last
// successful connect.
func (s *Supervisor) Attempts() int {
	return s.backoff.Attempts()
}

// Connect performs the initial connection attempt.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnected:
		s.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		s.mu.Unlock()
		return ErrSupervisorClosed
	}
	old := s.state
	s.state = StateConnecting
	s.mu.Unlock()
	s.notifyState(old, StateConnecting)

	if err := s.connectFn(ctx); err != nil {
		s.setState(StateConnecting, StateDisconnected)
		return err
	}

	s.backoff.Reset()
	s.setState(StateConnecting, StateConnected)
	if s.callbacks.OnConnected != nil {
		s.callbacks.OnConnected()
	}
	return nil
}

// ConnectionLost reports that the active connection dropped. Redial
// starts in the background when auto-reconnect is enabled.
func (s *Supervisor) ConnectionLost() {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	old := s.state
	next := StateDisconnected
	if s.autoReconnect {
		next = StateReconnecting
	}
	s.state = next
	s.mu.Unlock()

	s.notifyState(old, next)
	if s.callbacks.OnDisconnected != nil {
		s.callbacks.OnDisconnected()
	}

	if next == StateReconnecting {
		select {
		case s.retryCh <- struct{}{}:
		default:
			// Retry already pending
		}
	}
}

// Close shuts the supervisor down and stops any redial in progress.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = StateClosed
	s.mu.Unlock()

	s.notifyState(old, StateClosed)
	s.cancel()
	s.wg.Wait()
}

func (s *Supervisor) retryLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.retryCh:
			s.redial()
		}
	}
}

// redial attempts to reconnect with backoff until success, Close, or a
// state change makes retrying pointless.
func (s *Supervisor) redial() {
	for {
		switch s.State() {
		case StateClosed, StateConnected:
			return
		}

		delay := s.backoff.Next()
		if s.callbacks.OnRetry != nil {
			s.callbacks.OnRetry(s.backoff.Attempts(), delay)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(s.ctx, s.attemptTimeout)
		err := s.connectFn(ctx)
		cancel()

		if err != nil {
			continue
		}

		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			return
		}
		old := s.state
		s.state = StateConnected
		s.mu.Unlock()

		s.backoff.Reset()
		s.notifyState(old, StateConnected)
		if s.callbacks.OnConnected != nil {
			s.callbacks.OnConnected()
		}
		return
	}
}

func (s *Supervisor) setState(old, next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	s.notifyState(old, next)
}

func (s *Supervisor) notifyState(old, next State) {
	if s.callbacks.OnStateChange != nil && old != next {
		s.callbacks.OnStateChange(old, next)
	}
}
