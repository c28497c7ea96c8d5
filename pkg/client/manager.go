// Package client connects a diagram editor to the collaboration relay.
//
// A Manager owns one connection per workspace session: it joins the
// workspace, keeps the link alive with heartbeats, queues outbound messages
// while offline and reconnects with exponential backoff when the transport
// drops. The view-only send filter is a convenience for the user interface;
// the relay enforces access on its own.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/emmetthe/interactive-db/internal/model"
)

const (
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultReconnectDelay       = time.Second
	DefaultMaxReconnectAttempts = 5

	// Time allowed to write a message to the relay.
	writeWait = 10 * time.Second
)

// Conn is the transport used by a Manager. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DialFunc opens a transport to address.
type DialFunc func(ctx context.Context, address string) (Conn, error)

// Timer is a cancellable scheduled callback. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

// HandlerFunc receives one inbound message.
type HandlerFunc func(msg *Message)

// DialWebSocket dials address with the default gorilla dialer.
func DialWebSocket(ctx context.Context, address string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func timeAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is the lifecycle state of a Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StateFailed means reconnecting gave up; only Connect leaves it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Options configures a Manager.
type Options struct {
	WorkspaceID string
	UserID      string
	UserName    string
	AccessLevel AccessLevel

	// Handlers are keyed by message type. OnMessage receives messages
	// without a dedicated handler.
	Handlers  map[MessageType]HandlerFunc
	OnMessage HandlerFunc

	OnConnect    func()
	OnDisconnect func()
	OnError      func(err error)
	// OnGiveUp is called once the reconnect attempts are used up.
	OnGiveUp func(err error)

	HeartbeatInterval    time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	Dial      DialFunc
	AfterFunc AfterFunc
	Logger    *slog.Logger
}

// Manager is the client side of one workspace session.
type Manager struct {
	opts Options
	log  *slog.Logger

	mu          sync.Mutex
	handlers    map[MessageType]HandlerFunc
	accessLevel AccessLevel
	address     string
	state       State
	conn        Conn
	queue       []*Message
	attempts    int
	backoff     *backoff.ExponentialBackOff

	// writeMu serializes frames on the transport. It is never held while
	// waiting for mu, so Disconnect can always close a stalled connection.
	writeMu sync.Mutex

	// generation changes on every Connect and Disconnect. Goroutines and
	// timers capture it and do nothing once it has moved on.
	generation    uint64
	ctx           context.Context
	cancel        context.CancelFunc
	timer         Timer
	stopHeartbeat chan struct{}
}

// NewManager creates a Manager. Nothing happens until Connect.
func NewManager(opts Options) *Manager {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.Dial == nil {
		opts.Dial = DialWebSocket
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = timeAfterFunc
	}
	if opts.AccessLevel == "" {
		opts.AccessLevel = AccessLevelEdit
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	handlers := make(map[MessageType]HandlerFunc, len(opts.Handlers))
	for t, h := range opts.Handlers {
		handlers[t] = h
	}

	return &Manager{
		opts:        opts,
		log:         log.With("component", "client", "workspace_id", opts.WorkspaceID, "user_id", opts.UserID),
		handlers:    handlers,
		accessLevel: opts.AccessLevel,
		state:       StateDisconnected,
		backoff: &backoff.ExponentialBackOff{
			InitialInterval:     opts.ReconnectDelay,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         opts.ReconnectDelay << opts.MaxReconnectAttempts,
		},
	}
}

// Handle registers fn for messages of type t, replacing any previous handler.
func (m *Manager) Handle(t MessageType, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[t] = fn
}

// Connect opens a connection to address and joins the workspace. Any
// previous connection of this Manager is dropped first. If the first dial
// fails its error is returned and reconnection continues in the background.
func (m *Manager) Connect(address string) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.stopLocked()
	m.address = address
	m.attempts = 0
	m.backoff.Reset()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.state = StateConnecting
	m.mu.Unlock()

	return m.dial(gen)
}

// Disconnect closes the connection without reconnecting. It does not wait
// for writes in flight, and no callbacks fire afterwards. Queued messages
// are kept for the next Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.generation++
	m.stopLocked()
	m.state = StateDisconnected
	m.mu.Unlock()

	m.log.Info("websocket disconnected by client")
}

// Send transmits msg, or queues it while the connection is not open.
// Mutating messages are refused with ErrViewOnly under view access and are
// neither sent nor queued.
func (m *Manager) Send(msg *Message) error {
	m.mu.Lock()
	if msg.Type.IsMutating() && !m.accessLevel.CanEdit() {
		m.mu.Unlock()
		m.log.Warn("user does not have edit access", "type", msg.Type)
		return ErrViewOnly
	}

	conn := m.conn
	if m.state != StateConnected || conn == nil {
		m.queue = append(m.queue, msg)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if err := m.write(conn, msg); err != nil {
		// The read loop will notice the broken transport and reconnect.
		m.log.Debug("write failed, queueing message", "type", msg.Type, "error", err)
		m.mu.Lock()
		m.queue = append(m.queue, msg)
		m.mu.Unlock()
	}
	return nil
}

// UpdateAccessLevel changes the level used by the local send filter. The
// relay only learns about a new level through a fresh join.
func (m *Manager) UpdateAccessLevel(level AccessLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessLevel = level
}

// AccessLevel returns the level used by the local send filter.
func (m *Manager) AccessLevel() AccessLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessLevel
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the connection is open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// QueueLen returns the number of messages waiting for a connection.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Manager) dial(gen uint64) error {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return nil
	}
	ctx, address := m.ctx, m.address
	m.mu.Unlock()

	conn, err := m.opts.Dial(ctx, address)
	if err != nil {
		m.log.Warn("failed to create websocket connection", "address", address, "error", err)
		m.notifyError(gen, err)
		m.scheduleReconnect(gen)
		return fmt.Errorf("connect to %s: %w", address, err)
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		conn.Close()
		return nil
	}
	m.conn = conn
	m.attempts = 0
	m.backoff.Reset()
	m.state = StateConnected

	join := model.NewJoin(m.opts.WorkspaceID, m.opts.UserID, m.opts.UserName, m.accessLevel)
	queued := m.queue
	m.queue = nil

	stop := make(chan struct{})
	m.stopHeartbeat = stop

	// Sends that see the new connection wait here until the join and the
	// backlog are out.
	m.writeMu.Lock()
	m.mu.Unlock()
	unsent := m.flush(conn, join, queued)
	m.writeMu.Unlock()

	if len(unsent) > 0 {
		m.mu.Lock()
		m.queue = append(unsent, m.queue...)
		m.mu.Unlock()
	}

	go m.heartbeat(gen, conn, stop)
	go m.readLoop(gen, conn)

	m.log.Info("websocket connected", "address", address)
	if cb := m.opts.OnConnect; cb != nil && m.current(gen) {
		cb()
	}
	return nil
}

// flush writes join followed by the queued messages in FIFO order and
// returns the messages that were not written. The caller holds writeMu.
func (m *Manager) flush(conn Conn, join *Message, queued []*Message) []*Message {
	if err := writeFrame(conn, join); err != nil {
		m.log.Warn("failed to send join", "error", err)
		return queued
	}
	for i, msg := range queued {
		if err := writeFrame(conn, msg); err != nil {
			m.log.Debug("flush interrupted", "remaining", len(queued)-i, "error", err)
			return queued[i:]
		}
	}
	return nil
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, conn, err)
			return
		}

		msg, err := model.Decode(data)
		if err != nil {
			m.log.Warn("failed to parse websocket message", "error", err)
			continue
		}
		m.dispatch(gen, msg)
	}
}

func (m *Manager) dispatch(gen uint64, msg *Message) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	handler, ok := m.handlers[msg.Type]
	if !ok {
		handler = m.opts.OnMessage
	}
	m.mu.Unlock()

	if handler != nil {
		handler(msg)
	}
}

func (m *Manager) heartbeat(gen uint64, conn Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()

	ping := &Message{Type: MessageTypePing}
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			live := gen == m.generation && m.conn == conn
			m.mu.Unlock()
			if !live {
				continue
			}
			if err := m.write(conn, ping); err != nil {
				m.log.Debug("heartbeat failed", "error", err)
			}
		}
	}
}

func (m *Manager) handleClose(gen uint64, conn Conn, cause error) {
	m.mu.Lock()
	if gen != m.generation || m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.stopHeartbeatLocked()
	conn.Close()
	m.mu.Unlock()

	m.log.Info("websocket disconnected", "error", cause)
	if cb := m.opts.OnDisconnect; cb != nil {
		cb()
	}
	m.scheduleReconnect(gen)
}

func (m *Manager) scheduleReconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}

	if m.attempts >= m.opts.MaxReconnectAttempts {
		m.state = StateFailed
		m.mu.Unlock()

		m.log.Error("max reconnection attempts reached", "attempts", m.opts.MaxReconnectAttempts)
		if cb := m.opts.OnGiveUp; cb != nil {
			cb(ErrReconnectExhausted)
		}
		return
	}

	m.attempts++
	attempt := m.attempts
	delay := m.backoff.NextBackOff()
	m.state = StateConnecting
	m.timer = m.opts.AfterFunc(delay, func() { m.reconnect(gen) })
	m.mu.Unlock()

	m.log.Info("reconnecting", "delay", delay, "attempt", attempt, "max_attempts", m.opts.MaxReconnectAttempts)
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	// Failures reschedule themselves inside dial.
	_ = m.dial(gen)
}

func (m *Manager) notifyError(gen uint64, err error) {
	if cb := m.opts.OnError; cb != nil && m.current(gen) {
		cb(err)
	}
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.generation
}

// stopLocked cancels every background activity and closes the transport.
func (m *Manager) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.stopHeartbeatLocked()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) stopHeartbeatLocked() {
	if m.stopHeartbeat != nil {
		close(m.stopHeartbeat)
		m.stopHeartbeat = nil
	}
}

// write sends one message on conn, waiting for any write in progress.
func (m *Manager) write(conn Conn, msg *Message) error {
	if conn == nil {
		return model.ErrNotConnected
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return writeFrame(conn, msg)
}

func writeFrame(conn Conn, msg *Message) error {
	data, err := model.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
