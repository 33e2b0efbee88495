package notifications

import (
	"time"

	"github.com/gofiber/websocket/v2"

	"smartcity/internal/middleware"
	"smartcity/internal/models"
	"smartcity/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16384
)

// Client is one WebSocket connection owned by an authenticated user.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	UserID       string
	Role         models.Role
	Municipality string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, role models.Role, municipality string) *Client {
	return &Client{
		Hub:          hub,
		Conn:         conn,
		Send:         make(chan []byte, 256),
		UserID:       userID,
		Role:         role,
		Municipality: municipality,
	}
}

// ReadPump drains the connection until the peer goes away. The server never
// acts on inbound frames; reading is only needed to process control messages
// and detect disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Debug("websocket closed unexpectedly", "user_id", c.UserID, "error", err)
			}
			return
		}
	}
}

// WritePump flushes queued events to the connection and keeps it alive with
// pings. Closing the Send channel terminates the pump.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues a message without blocking. When the client's buffer is full
// the message is dropped and the client is told so it can resync over HTTP.
func (c *Client) TrySend(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues("events", "closed").Inc()
		}
	}()

	select {
	case c.Send <- msg:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("events", "full").Inc()
		middleware.Logger.Warn("dropping websocket message, client buffer full", "user_id", c.UserID)
		select {
		case c.Send <- []byte(`{"type":"events_dropped","payload":{"reason":"buffer_full"}}`):
		default:
		}
	}
}
