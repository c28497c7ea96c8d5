package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// outboundBuffer is the number of frames queued per connection before the
// connection is considered too slow and dropped.
const outboundBuffer = 256

// Client is one relay connection and the workspace.Peer of the member
// joined over it. Broadcasts land in its outbound queue; writeLoop is the
// only goroutine that writes to the socket.
type Client struct {
	id       string
	conn     *websocket.Conn
	outbound chan []byte

	mu      sync.Mutex
	dropped bool
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		id:       uuid.New().String(),
		conn:     conn,
		outbound: make(chan []byte, outboundBuffer),
	}
}

// ID returns the connection ID.
func (c *Client) ID() string {
	return c.id
}

// Outbound returns the queue drained by writeLoop.
func (c *Client) Outbound() <-chan []byte {
	return c.outbound
}

// Send queues one frame without blocking. A client whose queue is full is
// dropped, which makes writeLoop close the socket.
func (c *Client) Send(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dropped {
		return
	}
	select {
	case c.outbound <- frame:
	default:
		slog.Warn("dropping slow connection", "conn_id", c.id, "queued", len(c.outbound))
		c.dropLocked()
	}
}

// Close stops the connection. Frames already queued are still written.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}

func (c *Client) dropLocked() {
	if c.dropped {
		return
	}
	c.dropped = true
	close(c.outbound)
}

// readLoop passes every inbound frame to handle until the socket fails.
// Any frame, not only a pong, extends the read deadline.
func (c *Client) readLoop(maxMessageSize int64, handle func(frame []byte)) error {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(frame)
	}
}

// writeLoop writes queued frames, one JSON object per text frame, and pings
// the peer every pingPeriod. It closes the socket when the queue is closed
// or a write fails.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.outbound:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
