package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pbxkit/pbxkit-go/pkg/dispatch"
	"github.com/pbxkit/pbxkit-go/pkg/log"
	"github.com/pbxkit/pbxkit-go/pkg/transport"
	"github.com/pbxkit/pbxkit-go/pkg/wire"
)

// Client errors.
var (
	ErrNotConnected      = errors.New("not connected")
	ErrAlreadyConnected  = errors.New("already connected")
	ErrClientClosed      = errors.New("client is closing")
	ErrConnectionLost    = errors.New("connection lost")
	ErrRequestTimeout    = errors.New("request timed out")
	ErrNoBanner          = errors.New("no protocol banner received")
	ErrLoginFailed       = errors.New("login failed")
	ErrDuplicateActionID = errors.New("action id already in flight")
)

// Connection states.
type ConnectionState int32

const (
	// StateDisconnected indicates no connection.
	StateDisconnected ConnectionState = iota

	// StateConnecting indicates connection in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateClosing indicates graceful close in progress.
	StateClosing
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Config configures an admin-protocol client.
type Config struct {
	// Address is the admin service endpoint, host:port.
	Address string

	// Username and Secret authenticate the Login action.
	Username string
	Secret   string

	// UseChallenge selects challenge/response login (MD5 key) instead
	// of sending the secret in clear text.
	UseChallenge bool

	// Events is the event mask sent with Login ("on", "off", or a
	// comma-separated class list). Empty means server default.
	Events string

	// ActionTimeout bounds each request's wait for its correlated
	// reply (default 30s).
	ActionTimeout time.Duration

	// ConnectTimeout bounds dialing (default 10s).
	ConnectTimeout time.Duration

	// MaxUnitSize bounds one framed unit (default 1MB).
	MaxUnitSize int

	// Logger is the application logger (default slog.Default()).
	Logger *slog.Logger

	// WireLogger captures protocol traffic. Nil disables capture.
	WireLogger log.Logger
}

// DefaultActionTimeout is applied when Config.ActionTimeout is zero.
const DefaultActionTimeout = 30 * time.Second

// DefaultConnectTimeout is applied when Config.ConnectTimeout is zero.
const DefaultConnectTimeout = 10 * time.Second

// pendingReply tracks one in-flight request. List assembly state is
// owned by the reader goroutine under the client's pending mutex.
type pendingReply struct {
	ch         chan *wire.Unit
	collecting bool
	events     []*wire.Unit
}

// deliver hands the terminal unit to the waiter. Non-blocking: the
// channel is buffered for exactly one reply, anything more is a
// protocol violation we drop.
func (p *pendingReply) deliver(u *wire.Unit) {
	select {
	case p.ch <- u:
	default:
	}
}

// Client is an admin-protocol client over one shared transport.
type Client struct {
	config   Config
	logger   *slog.Logger
	wireLog  log.Logger
	registry *dispatch.Registry

	state atomic.Int32

	mu     sync.RWMutex
	conn   net.Conn
	reader *transport.UnitReader
	writer *transport.UnitWriter
	connID string
	ident  dispatch.Identity
	banner string
	done   chan struct{}

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]*pendingReply

	loggedIn     atomic.Bool
	onDisconnect func(error)
}

// NewClient creates a client. It does not connect.
func NewClient(config Config) *Client {
	if config.ActionTimeout <= 0 {
		config.ActionTimeout = DefaultActionTimeout
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var wireLog log.Logger = log.NoopLogger{}
	if config.WireLogger != nil {
		wireLog = config.WireLogger
	}

	c := &Client{
		config:   config,
		logger:   logger,
		wireLog:  wireLog,
		registry: dispatch.NewRegistry(),
		pending:  make(map[string]*pendingReply),
	}
	c.registry.SetLogger(logger)
	c.state.Store(int32(StateDisconnected))
	return c
}

// Registry returns the client's event handler registry. The registry
// survives reconnects.
func (c *Client) Registry() *dispatch.Registry {
	return c.registry
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Banner returns the protocol banner from the current connection.
func (c *Client) Banner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.banner
}

// OnDisconnect registers a callback invoked when the connection drops
// for any reason other than an orderly Close. The error is the read
// failure that ended the connection.
func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// Connect dials the configured address and performs the banner
// handshake: exactly one line is read before any action may be sent.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	dialer := &net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("dial %s: %w", c.config.Address, err)
	}

	return c.start(conn)
}

// ConnectConn attaches the client to an established connection (tests,
// TLS tunnels). The banner handshake still applies.
func (c *Client) ConnectConn(conn net.Conn) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	return c.start(conn)
}

func (c *Client) start(conn net.Conn) error {
	reader := transport.NewUnitReaderWithMaxSize(conn, c.config.MaxUnitSize)

	banner, err := reader.ReadLine()
	if err != nil {
		conn.Close()
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("%w: %v", ErrNoBanner, err)
	}

	ident := dispatch.Identity{}
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		ident = dispatch.Identity{Host: addr.IP.String(), Port: addr.Port}
	} else if addr := conn.RemoteAddr(); addr != nil {
		host, portStr, splitErr := net.SplitHostPort(addr.String())
		if splitErr == nil {
			port, _ := strconv.Atoi(portStr)
			ident = dispatch.Identity{Host: host, Port: port}
		} else {
			ident = dispatch.Identity{Host: addr.String()}
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.reader = reader
	c.writer = transport.NewUnitWriter(conn)
	c.connID = uuid.New().String()
	c.ident = ident
	c.banner = banner
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.state.Store(int32(StateConnected))
	c.logState(StateConnecting, StateConnected)
	c.logger.Info("connected", "remote", ident.String(), "banner", banner)

	go c.readLoop(reader)
	return nil
}

// Send issues a generic action and waits for its correlated reply.
// Exactly one ActionID field is guaranteed: the caller's when supplied
// (case-insensitive match), a generated one otherwise. The wait is
// bounded by ctx and by the configured ActionTimeout, whichever fires
// first; a timeout abandons the correlation id, and a late reply for it
// is dropped with a log entry.
func (c *Client) Send(ctx context.Context, action string, fields wire.Fields) (*wire.Unit, error) {
	switch c.State() {
	case StateConnected:
	case StateClosing:
		return nil, ErrClientClosed
	default:
		return nil, ErrNotConnected
	}
	return c.send(ctx, action, fields)
}

func (c *Client) send(ctx context.Context, action string, fields wire.Fields) (*wire.Unit, error) {
	req := &wire.Request{Action: action, Fields: fields}
	id := req.EnsureActionID()

	p := &pendingReply{ch: make(chan *wire.Unit, 1)}
	c.pendingMu.Lock()
	if _, exists := c.pending[id]; exists {
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateActionID, id)
	}
	c.pending[id] = p
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	data := req.Encode()

	c.mu.RLock()
	writer := c.writer
	c.mu.RUnlock()
	if writer == nil {
		return nil, ErrNotConnected
	}

	c.writeMu.Lock()
	err := writer.WriteUnit(data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write action %s: %w", action, err)
	}

	c.logUnitOut(action, id, data)

	timer := time.NewTimer(c.config.ActionTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("action %s: %w", action, ErrRequestTimeout)
	case u, ok := <-p.ch:
		if !ok {
			return nil, ErrConnectionLost
		}
		return u, nil
	}
}

// readLoop frames, parses, and routes incoming units until the
// connection ends.
func (c *Client) readLoop(reader *transport.UnitReader) {
	var readErr error
	for {
		raw, err := reader.ReadUnit()
		if err != nil {
			readErr = err
			break
		}
		unit := wire.Parse(raw)
		c.logUnitIn(unit, raw)
		c.route(unit)
	}
	c.teardown(readErr)
}

// route classifies one unit and delivers it: events to the registry,
// correlated units to their pending request, everything else to the
// log.
func (c *Client) route(unit *wire.Unit) {
	kind := unit.Kind()

	if kind == wire.KindEvent {
		c.registry.Dispatch(unit, c.identity())
	}

	if kind == wire.KindUnhandled {
		c.logger.Warn("dropping unhandled unit", "keys", unit.Keys())
		return
	}

	id := unit.ActionID()
	if id == "" {
		return
	}

	c.pendingMu.Lock()
	p, ok := c.pending[id]
	if !ok {
		c.pendingMu.Unlock()
		if kind == wire.KindResponse {
			c.logger.Warn("dropping unmatched reply", "action_id", id)
		}
		return
	}

	switch {
	case p.collecting:
		if unit.ListComplete() {
			unit.Events = p.events
			delete(c.pending, id)
			c.pendingMu.Unlock()
			p.deliver(unit)
			return
		}
		p.events = append(p.events, unit)
		c.pendingMu.Unlock()

	case unit.ListStart():
		p.collecting = true
		c.pendingMu.Unlock()

	default:
		delete(c.pending, id)
		c.pendingMu.Unlock()
		p.deliver(unit)
	}
}

// teardown ends the connection: fails all pending requests, closes the
// socket, and reports the loss unless it was an orderly close.
func (c *Client) teardown(readErr error) {
	closing := c.State() == StateClosing

	c.pendingMu.Lock()
	for id, p := range c.pending {
		close(p.ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.reader = nil
	c.writer = nil
	done := c.done
	onDisconnect := c.onDisconnect
	c.mu.Unlock()

	prev := ConnectionState(c.state.Swap(int32(StateDisconnected)))
	c.logState(prev, StateDisconnected)
	c.loggedIn.Store(false)

	if done != nil {
		close(done)
	}

	if closing || readErr == nil {
		return
	}
	if errors.Is(readErr, net.ErrClosed) {
		return
	}

	c.logError("read", readErr)
	c.logger.Error("connection lost", "error", readErr)
	if onDisconnect != nil {
		onDisconnect(readErr)
	}
}

// Close disconnects in an orderly fashion. If an earlier login
// succeeded, a Logoff action is issued first.
func (c *Client) Close() error {
	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateClosing)) {
		return nil
	}

	if c.loggedIn.Load() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := c.send(ctx, "Logoff", nil); err != nil {
			c.logger.Warn("logoff failed", "error", err)
		}
		cancel()
		c.loggedIn.Store(false)
	}

	c.mu.RLock()
	conn := c.conn
	done := c.done
	c.mu.RUnlock()

	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

func (c *Client) identity() dispatch.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ident
}

func (c *Client) captureBase(dir log.Direction) log.Event {
	c.mu.RLock()
	connID := c.connID
	ident := c.ident
	c.mu.RUnlock()

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Protocol:     log.ProtocolAdmin,
		Category:     log.CategoryMessage,
		RemoteAddr:   ident.String(),
	}
}

func (c *Client) logUnitOut(action, actionID string, data []byte) {
	raw, truncated := log.TruncateRaw(data)
	ev := c.captureBase(log.DirectionOut)
	ev.Unit = &log.UnitEvent{
		Action:    action,
		ActionID:  actionID,
		Size:      len(data),
		Raw:       raw,
		Truncated: truncated,
	}
	c.wireLog.Log(ev)
}

func (c *Client) logUnitIn(unit *wire.Unit, data []byte) {
	raw, truncated := log.TruncateRaw(data)
	ev := c.captureBase(log.DirectionIn)
	ev.Unit = &log.UnitEvent{
		Event:     unit.Get(wire.KeyEvent),
		Response:  unit.Get(wire.KeyResponse),
		ActionID:  unit.ActionID(),
		Size:      len(data),
		Raw:       raw,
		Truncated: truncated,
	}
	c.wireLog.Log(ev)
}

func (c *Client) logState(from, to ConnectionState) {
	if from == to {
		return
	}
	ev := c.captureBase(log.DirectionIn)
	ev.Category = log.CategoryState
	ev.StateChange = &log.StateChangeEvent{From: from.String(), To: to.String()}
	c.wireLog.Log(ev)
}

func (c *Client) logError(op string, err error) {
	ev := c.captureBase(log.DirectionIn)
	ev.Category = log.CategoryError
	ev.Error = &log.ErrorEventData{Op: op, Message: err.Error()}
	c.wireLog.Log(ev)
}
