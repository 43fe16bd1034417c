package server

import (
	"encoding/json"

	"skillswap/internal/middleware"
	"skillswap/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireUpgrade rejects plain HTTP requests to websocket routes.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// errorFrame encodes the single message sent before a rejected connection is closed.
func errorFrame(message string) []byte {
	frame, _ := json.Marshal(map[string]string{"error": message})
	return frame
}

// NotificationsWebSocket streams the caller's notifications over a websocket.
// Authentication happens before the upgrade, from the bearer header or ?token=.
func (s *Server) NotificationsWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals(middleware.LocalUserID).(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, errorFrame("unauthorized"))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration rejected", "user_id", userID, "error", err.Error())
			_ = conn.WriteMessage(websocket.TextMessage, errorFrame(err.Error()))
			_ = conn.Close()
			return
		}
		middleware.Logger.Debug("websocket connected", "user_id", userID)

		if hello, err := notifications.NewEvent(notifications.EventConnected, fiber.Map{"userId": userID}).Encode(); err == nil {
			client.TrySend(hello)
		}

		go client.WritePump()
		client.ReadPump()
	})
}
