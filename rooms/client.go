package rooms

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Client is one websocket connection bound to a room. A user may hold several
// clients in the same room (multiple tabs); room membership tracks users,
// fan-out tracks clients.
type Client struct {
	ID       string
	UserID   string
	RoomCode string

	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, userID, roomCode string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		RoomCode: roomCode,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
}

// readPump drains inbound frames and hands them to the coordinator. Runs on
// the connection's handler goroutine; returning unregisters the client.
func (c *Client) readPump(co *Coordinator) {
	defer co.unregister(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Room connection dropped",
					slog.String("client_id", c.ID),
					slog.String("room_code", c.RoomCode),
					slog.Any("error", err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.enqueue(encode(TypeError, ErrorPayload{Message: "malformed message"}))
			continue
		}
		co.handleInbound(c, &env)
	}
}

// writePump serializes all writes to the connection and keeps it alive with
// pings. One writer per connection, always.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue drops the frame when the client's buffer is full or the session is
// already torn down instead of blocking the caller.
func (c *Client) enqueue(msg []byte) bool {
	if msg == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// shutdown closes the outbound channel exactly once. Safe against late
// broadcasts racing the unregister. writePump drains whatever is still
// buffered, sends a close frame and closes the connection.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
