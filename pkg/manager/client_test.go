package manager

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbxkit/pbxkit-go/pkg/dispatch"
	"github.com/pbxkit/pbxkit-go/pkg/transport"
	"github.com/pbxkit/pbxkit-go/pkg/wire"
)

const testBanner = "PBX Control/5.0"

// scriptServer drives the server side of a net.Pipe connection.
type scriptServer struct {
	t    *testing.T
	conn net.Conn
	ur   *transport.UnitReader
}

func (s *scriptServer) writeLine(line string) {
	s.t.Helper()
	if _, err := s.conn.Write([]byte(line + "\r\n")); err != nil {
		s.t.Errorf("server write: %v", err)
	}
}

// readRequest returns the next parsed request and its raw text.
func (s *scriptServer) readRequest() (*wire.Unit, string) {
	s.t.Helper()
	raw, err := s.ur.ReadUnit()
	if err != nil {
		s.t.Errorf("server read: %v", err)
		return wire.NewUnit(), ""
	}
	return wire.Parse(raw), string(raw)
}

// send writes one unit as "Key: Value" lines plus the blank terminator.
func (s *scriptServer) send(lines ...string) {
	s.t.Helper()
	block := strings.Join(lines, "\r\n") + "\r\n\r\n"
	if _, err := s.conn.Write([]byte(block)); err != nil {
		s.t.Errorf("server write: %v", err)
	}
}

// newTestClient connects a client to a scripted server over net.Pipe.
// The script runs on its own goroutine after the banner is written.
func newTestClient(t *testing.T, cfg Config, script func(s *scriptServer)) *Client {
	t.Helper()

	cliConn, srvConn := net.Pipe()
	t.Cleanup(func() {
		cliConn.Close()
		srvConn.Close()
	})

	go func() {
		s := &scriptServer{t: t, conn: srvConn, ur: transport.NewUnitReader(srvConn)}
		s.writeLine(testBanner)
		if script != nil {
			script(s)
		}
	}()

	c := NewClient(cfg)
	require.NoError(t, c.ConnectConn(cliConn))
	return c
}

func TestClientSendCorrelates(t *testing.T) {
	events := make(chan string, 4)

	c := newTestClient(t, Config{}, func(s *scriptServer) {
		req, raw := s.readRequest()
		assert.Equal(t, "Ping", req.Get(wire.KeyAction))

		id := req.ActionID()
		assert.Regexp(t, regexp.MustCompile(`^A\d{6}$`), id, "generated correlation id")
		assert.Equal(t, 1, strings.Count(raw, "ActionID:"), "exactly one ActionID line")

		// An interleaved event must be dispatched, never returned as
		// the reply.
		s.send("Event: Hangup", "Channel: SIP/100-0001")
		s.send("Response: Success", "ActionID: "+id, "Ping: Pong")
	})
	defer c.Close()

	c.Registry().Register(dispatch.Wildcard, func(name string, u *wire.Unit, conn dispatch.Identity) {
		events <- name
	})

	assert.Equal(t, testBanner, c.Banner())

	reply, err := c.Send(context.Background(), "Ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "Pong", reply.Get("Ping"))
	assert.Equal(t, wire.KindResponse, reply.Kind())

	select {
	case name := <-events:
		assert.Equal(t, "Hangup", name)
	case <-time.After(time.Second):
		t.Fatal("interleaved event was never dispatched")
	}
}

func TestClientSendHonorsCallerActionID(t *testing.T) {
	c := newTestClient(t, Config{}, func(s *scriptServer) {
		req, raw := s.readRequest()
		assert.Equal(t, "my-id-1", req.ActionID())
		assert.Equal(t, 1, strings.Count(strings.ToLower(raw), "actionid:"))
		s.send("Response: Success", "ActionID: my-id-1")
	})
	defer c.Close()

	reply, err := c.Send(context.Background(), "Ping", wire.Fields{}.Add("ActionID", "my-id-1"))
	require.NoError(t, err)
	assert.Equal(t, "my-id-1", reply.ActionID())
}

func TestClientEventListAssembly(t *testing.T) {
	dispatched := make(chan string, 8)

	c := newTestClient(t, Config{}, func(s *scriptServer) {
		req, _ := s.readRequest()
		id := req.ActionID()

		s.send("Response: Success", "ActionID: "+id, "EventList: start", "Message: Channel status will follow")
		s.send("Event: Status", "ActionID: "+id, "Channel: SIP/100-0001")
		s.send("Event: Status", "ActionID: "+id, "Channel: SIP/101-0002")
		s.send("Event: Status", "ActionID: "+id, "Channel: SIP/102-0003")
		s.send("Event: StatusComplete", "ActionID: "+id, "EventList: Complete", "ListItems: 3")
	})
	defer c.Close()

	c.Registry().Register(dispatch.Wildcard, func(name string, u *wire.Unit, conn dispatch.Identity) {
		dispatched <- name
	})

	reply, err := c.Do(context.Background(), Status{})
	require.NoError(t, err)

	// Exactly the interior units, in order; neither marker included.
	require.Len(t, reply.Events, 3)
	assert.Equal(t, "SIP/100-0001", reply.Events[0].Get("Channel"))
	assert.Equal(t, "SIP/101-0002", reply.Events[1].Get("Channel"))
	assert.Equal(t, "SIP/102-0003", reply.Events[2].Get("Channel"))
	for _, ev := range reply.Events {
		assert.False(t, ev.ListStart())
		assert.False(t, ev.ListComplete())
	}
	assert.True(t, reply.ListComplete(), "terminal unit carries the Complete marker")
	assert.Equal(t, "3", reply.Get("ListItems"))

	// Interior units are still events and reach the registry.
	names := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		select {
		case name := <-dispatched:
			names = append(names, name)
		case <-time.After(time.Second):
			t.Fatalf("expected 4 dispatched events, got %v", names)
		}
	}
	assert.Equal(t, []string{"Status", "Status", "Status", "StatusComplete"}, names)
}

func TestClientRequestTimeout(t *testing.T) {
	release := make(chan struct{})

	c := newTestClient(t, Config{ActionTimeout: 50 * time.Millisecond}, func(s *scriptServer) {
		req, _ := s.readRequest()
		id := req.ActionID()

		// Reply only after the caller has given up.
		<-release
		s.send("Response: Success", "ActionID: "+id)

		// The connection stays usable for the next request.
		req2, _ := s.readRequest()
		s.send("Response: Success", "ActionID: "+req2.ActionID(), "Ping: Pong")
	})
	defer c.Close()

	_, err := c.Send(context.Background(), "Ping", nil)
	require.ErrorIs(t, err, ErrRequestTimeout)

	close(release)
	time.Sleep(20 * time.Millisecond) // let the late reply arrive and be dropped

	reply, err := c.Send(context.Background(), "Ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "Pong", reply.Get("Ping"))
}

func TestClientLoginLogoff(t *testing.T) {
	c := newTestClient(t, Config{Username: "admin", Secret: "hunter2", Events: "on"}, func(s *scriptServer) {
		req, _ := s.readRequest()
		assert.Equal(t, "Login", req.Get(wire.KeyAction))
		assert.Equal(t, "admin", req.Get("Username"))
		assert.Equal(t, "hunter2", req.Get("Secret"))
		assert.Equal(t, "on", req.Get("Events"))
		s.send("Response: Success", "ActionID: "+req.ActionID(), "Message: Authentication accepted")

		// Orderly close must log off first.
		req2, _ := s.readRequest()
		assert.Equal(t, "Logoff", req2.Get(wire.KeyAction))
		s.send("Response: Goodbye", "ActionID: "+req2.ActionID())
	})

	require.NoError(t, c.Login(context.Background()))
	assert.True(t, c.LoggedIn())

	require.NoError(t, c.Close())
	assert.False(t, c.LoggedIn())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientLoginFailure(t *testing.T) {
	c := newTestClient(t, Config{Username: "admin", Secret: "wrong"}, func(s *scriptServer) {
		req, _ := s.readRequest()
		s.send("Response: Error", "ActionID: "+req.ActionID(), "Message: Authentication failed")
	})
	defer c.Close()

	err := c.Login(context.Background())
	require.ErrorIs(t, err, ErrLoginFailed)
	assert.Contains(t, err.Error(), "Authentication failed")
	assert.False(t, c.LoggedIn())
}

func TestClientChallengeLogin(t *testing.T) {
	const secret = "hunter2"
	const challenge = "112233"

	c := newTestClient(t, Config{Username: "admin", Secret: secret, UseChallenge: true}, func(s *scriptServer) {
		req, _ := s.readRequest()
		assert.Equal(t, "Challenge", req.Get(wire.KeyAction))
		assert.Equal(t, "MD5", req.Get("AuthType"))
		s.send("Response: Success", "ActionID: "+req.ActionID(), "Challenge: "+challenge)

		sum := md5.Sum([]byte(challenge + secret))
		req2, raw := s.readRequest()
		assert.Equal(t, "Login", req2.Get(wire.KeyAction))
		assert.Equal(t, "MD5", req2.Get("AuthType"))
		assert.Equal(t, hex.EncodeToString(sum[:]), req2.Get("Key"))
		assert.NotContains(t, raw, "Secret:", "secret must not cross the wire")
		s.send("Response: Success", "ActionID: "+req2.ActionID())
	})
	defer c.Close()

	require.NoError(t, c.Login(context.Background()))
	assert.True(t, c.LoggedIn())
}

func TestClientConnectionLostFailsPending(t *testing.T) {
	lost := make(chan error, 1)

	c := newTestClient(t, Config{}, func(s *scriptServer) {
		s.readRequest()
		s.conn.Close() // drop without replying
	})
	c.OnDisconnect(func(err error) { lost <- err })

	_, err := c.Send(context.Background(), "Ping", nil)
	require.ErrorIs(t, err, ErrConnectionLost)

	select {
	case <-lost:
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect was never invoked")
	}
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientNoBanner(t *testing.T) {
	cliConn, srvConn := net.Pipe()
	defer cliConn.Close()
	srvConn.Close() // immediate close: no banner

	c := NewClient(Config{})
	err := c.ConnectConn(cliConn)
	require.ErrorIs(t, err, ErrNoBanner)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientSendNotConnected(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.Send(context.Background(), "Ping", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClientDuplicateActionID(t *testing.T) {
	c := newTestClient(t, Config{}, func(s *scriptServer) {
		req, _ := s.readRequest()
		time.Sleep(100 * time.Millisecond)
		s.send("Response: Success", "ActionID: "+req.ActionID())
	})
	defer c.Close()

	first := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "Ping", wire.Fields{}.Add("ActionID", "dup-1"))
		first <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := c.Send(context.Background(), "Ping", wire.Fields{}.Add("ActionID", "dup-1"))
	assert.ErrorIs(t, err, ErrDuplicateActionID)

	require.NoError(t, <-first)
}

func TestClientContextCancellation(t *testing.T) {
	c := newTestClient(t, Config{}, func(s *scriptServer) {
		s.readRequest() // never reply
	})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Send(ctx, "Ping", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
