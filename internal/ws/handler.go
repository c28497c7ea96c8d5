package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emmetthe/interactive-db/internal/model"
	"github.com/emmetthe/interactive-db/internal/workspace"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize is the largest inbound frame accepted when no
	// limit is configured.
	DefaultMaxMessageSize = 1 << 20
)

// ActivityRecorder receives presence and authorization events.
type ActivityRecorder interface {
	Record(ctx context.Context, activity *model.Activity) error
}

// Options configures a Handler.
type Options struct {
	MaxMessageSize int64
	CheckOrigin    func(r *http.Request) bool
	Recorder       ActivityRecorder
}

// Handler upgrades HTTP requests to relay connections and runs one session
// per connection.
type Handler struct {
	registry       *workspace.Registry
	recorder       ActivityRecorder
	upgrader       websocket.Upgrader
	maxMessageSize int64

	clients map[*Client]struct{}
	mu      sync.Mutex
}

// NewHandler creates a new WebSocket handler.
func NewHandler(registry *workspace.Registry, opts Options) *Handler {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Handler{
		registry: registry,
		recorder: opts.Recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		maxMessageSize: opts.MaxMessageSize,
		clients:        make(map[*Client]struct{}),
	}
}

// Registry returns the workspace registry served by this handler.
func (h *Handler) Registry() *workspace.Registry {
	return h.registry
}

// HandleConnection upgrades the request and starts the connection's pumps.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn)
	h.track(client)
	sess := newSession(h.registry, h.recorder, client)
	slog.DebugContext(sess.ctx, "new client connected", "remote_addr", r.RemoteAddr)

	go client.writeLoop()
	go h.serve(client, sess)

	return nil
}

// ConnectionCount returns the number of open connections, joined or not.
func (h *Handler) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close closes every open connection. Sessions clean up as their read
// loops exit.
func (h *Handler) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

func (h *Handler) track(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Handler) untrack(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// serve runs the session until the connection's read side fails, then
// removes the member and shuts the connection down.
func (h *Handler) serve(client *Client, sess *session) {
	defer func() {
		sess.terminate()
		h.untrack(client)
		client.Close()
		slog.DebugContext(sess.ctx, "client disconnected")
	}()

	err := client.readLoop(h.maxMessageSize, sess.handle)
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
		slog.WarnContext(sess.ctx, "websocket error", "error", err)
	}
}
