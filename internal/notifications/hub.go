package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/gofiber/websocket/v2"

	"smartcity/internal/models"
	"smartcity/internal/observability"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

// Hub tracks live WebSocket connections keyed by user ID and routes published
// events to the right subset of them.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	shutdown   bool
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*Client]struct{}),
	}
}

// Register attaches a connection. The caller starts the client's pumps.
func (h *Hub) Register(conn *websocket.Conn, userID string, role models.Role, municipality string) (*Client, error) {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return nil, errors.New("hub is shutting down")
	}
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}
	if len(h.conns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID, role, municipality)
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*Client]struct{})
	}
	h.conns[userID][client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.ActiveWebSockets.Inc()
	return client, nil
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.conns[c.UserID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			h.totalConns--
			close(c.Send)
			observability.ActiveWebSockets.Dec()
		}
		if len(set) == 0 {
			delete(h.conns, c.UserID)
		}
	}
	h.mu.Unlock()
}

// Broadcast delivers a message to every connection of one user.
func (h *Hub) Broadcast(userID string, msg []byte) {
	h.mu.RLock()
	targets := h.clientsOf(userID)
	h.mu.RUnlock()
	for _, c := range targets {
		c.TrySend(msg)
	}
}

// BroadcastAll delivers a message to every connected client.
func (h *Hub) BroadcastAll(msg []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, h.totalConns)
	for _, set := range h.conns {
		for c := range set {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.TrySend(msg)
	}
}

// BroadcastAdmins delivers a message to administrator connections. A non-empty
// municipality restricts delivery to admins of that municipality.
func (h *Hub) BroadcastAdmins(municipality string, msg []byte) {
	h.mu.RLock()
	var targets []*Client
	for _, set := range h.conns {
		for c := range set {
			if c.Role != models.RoleAdmin {
				continue
			}
			if municipality != "" && c.Municipality != municipality {
				continue
			}
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.TrySend(msg)
	}
}

// BroadcastConversation delivers a support-thread message to the owner and to
// the admins of the owner's municipality.
func (h *Hub) BroadcastConversation(ownerID, municipality string, msg []byte) {
	h.mu.RLock()
	targets := h.clientsOf(ownerID)
	for userID, set := range h.conns {
		if userID == ownerID {
			continue
		}
		for c := range set {
			if c.Role == models.RoleAdmin && (municipality == "" || c.Municipality == municipality) {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.TrySend(msg)
	}
}

// caller holds h.mu
func (h *Hub) clientsOf(userID string) []*Client {
	set := h.conns[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	return targets
}

// envelope is the slice of the published payload the hub needs for routing.
type envelope struct {
	Municipality string `json:"municipality"`
}

// StartWiring subscribes the hub to the notifier's channels and routes each
// delivery until ctx is cancelled. Returns false when Redis is unavailable.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) bool {
	return n.StartEventSubscriber(ctx, func(channel string, payload []byte) {
		switch {
		case strings.HasPrefix(channel, userChannelPrefix):
			h.Broadcast(strings.TrimPrefix(channel, userChannelPrefix), payload)
		case strings.HasPrefix(channel, conversationChannelPrefix):
			var env envelope
			_ = json.Unmarshal(payload, &env)
			h.BroadcastConversation(strings.TrimPrefix(channel, conversationChannelPrefix), env.Municipality, payload)
		case channel == FeedChannel:
			var env envelope
			_ = json.Unmarshal(payload, &env)
			h.BroadcastAdmins(env.Municipality, payload)
		case channel == ApprovedChannel:
			h.BroadcastAll(payload)
		}
	})
}

// Shutdown closes every connection and rejects new registrations. Closing the
// send channels makes each WritePump emit a close frame and tear down its
// connection, so all writes stay on the pump goroutine.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.shutdown = true
	for _, set := range h.conns {
		for c := range set {
			close(c.Send)
			h.totalConns--
			observability.ActiveWebSockets.Dec()
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.mu.Unlock()
}
