package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastBackoff keeps redial tests quick.
func fastBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{
		Initial:    time.Millisecond,
		Max:        5 * time.Millisecond,
		Multiplier: 2,
		Jitter:     -1,
	})
}

func TestSupervisorConnect(t *testing.T) {
	var transitions []string
	var mu sync.Mutex
	connected := 0

	s := NewSupervisor(
		func(ctx context.Context) error { return nil },
		Callbacks{
			OnStateChange: func(old, next State) {
				mu.Lock()
				transitions = append(transitions, old.String()+">"+next.String())
				mu.Unlock()
			},
			OnConnected: func() { connected++ },
		},
	)
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.IsConnected())
	assert.Equal(t, 1, connected)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"DISCONNECTED>CONNECTING",
		"CONNECTING>CONNECTED",
	}, transitions)
}

func TestSupervisorConnectFailure(t *testing.T) {
	wantErr := errors.New("dial refused")
	s := NewSupervisor(func(ctx context.Context) error { return wantErr }, Callbacks{})
	defer s.Close()

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSupervisorConnectWhileConnected(t *testing.T) {
	s := NewSupervisor(func(ctx context.Context) error { return nil }, Callbacks{})
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))
	assert.ErrorIs(t, s.Connect(context.Background()), ErrAlreadyConnected)
}

func TestSupervisorReconnects(t *testing.T) {
	var attempts atomic.Int32
	reconnected := make(chan struct{}, 1)
	retries := make(chan int, 8)

	s := NewSupervisor(
		func(ctx context.Context) error {
			// First call is the initial connect. The next two redials
			// fail before one succeeds.
			n := attempts.Add(1)
			if n == 2 || n == 3 {
				return errors.New("still down")
			}
			return nil
		},
		Callbacks{
			OnConnected: func() {
				select {
				case reconnected <- struct{}{}:
				default:
				}
			},
			OnRetry: func(attempt int, delay time.Duration) { retries <- attempt },
		},
	)
	defer s.Close()
	s.backoff = fastBackoff()

	require.NoError(t, s.Connect(context.Background()))
	<-reconnected

	s.ConnectionLost()

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor never reconnected")
	}
	assert.True(t, s.IsConnected())
	assert.Equal(t, int32(4), attempts.Load())

	// Three redial delays were issued, then the backoff was reset.
	assert.Len(t, retries, 3)
	assert.Equal(t, 0, s.Attempts())
}

func TestSupervisorNoReconnectWhenDisabled(t *testing.T) {
	var attempts atomic.Int32
	s := NewSupervisor(func(ctx context.Context) error {
		attempts.Add(1)
		return nil
	}, Callbacks{})
	defer s.Close()
	s.backoff = fastBackoff()

	require.NoError(t, s.Connect(context.Background()))
	s.SetAutoReconnect(false)

	s.ConnectionLost()
	assert.Equal(t, StateDisconnected, s.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load(), "no redial may happen")
}

func TestSupervisorConnectionLostWhenNotConnected(t *testing.T) {
	s := NewSupervisor(func(ctx context.Context) error { return nil }, Callbacks{})
	defer s.Close()

	// A loss report in the wrong state is ignored.
	s.ConnectionLost()
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSupervisorClose(t *testing.T) {
	s := NewSupervisor(func(ctx context.Context) error { return nil }, Callbacks{})

	require.NoError(t, s.Connect(context.Background()))
	s.Close()
	assert.Equal(t, StateClosed, s.State())

	assert.ErrorIs(t, s.Connect(context.Background()), ErrSupervisorClosed)

	// Idempotent.
	s.Close()
}

func TestSupervisorCloseStopsRedial(t *testing.T) {
	block := make(chan struct{})
	var attempts atomic.Int32

	s := NewSupervisor(func(ctx context.Context) error {
		if attempts.Add(1) == 1 {
			return nil
		}
		<-block
		return errors.New("still down")
	}, Callbacks{})
	s.backoff = fastBackoff()

	require.NoError(t, s.Connect(context.Background()))
	s.ConnectionLost()

	done := make(chan struct{})
	go func() {
		close(block)
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not stop the redial loop")
	}
	assert.Equal(t, StateClosed, s.State())
}
