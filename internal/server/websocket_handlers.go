package server

import (
	"log"

	"smartcity/internal/authz"
	"smartcity/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler upgrades authenticated clients and attaches them to the
// event hub. Delivery is fire-and-forget; clients resync over HTTP after
// drops or reconnects.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		actorVal := conn.Locals(middleware.ActorLocal)
		actor, ok := actorVal.(authz.Actor)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		if s.hub == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"realtime delivery unavailable"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(conn, actor.ID, actor.Role, actor.Municipality)
		if err != nil {
			log.Printf("websocket register rejected for user %s: %v", actor.ID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump() // blocks until disconnect
	})
}
