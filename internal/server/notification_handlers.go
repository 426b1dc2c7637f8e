package server

import (
	"log/slog"

	"witwaves/internal/middleware"
	"witwaves/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireUpgrade rejects plain HTTP requests on websocket routes.
func (s *Server) RequireUpgrade(c *fiber.Ctx) error {
	if s.hub == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Activity notifications are disabled")
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// NotificationSocket handles GET /ws/notifications. The signed-in user
// receives an ActivityEvent whenever someone likes or comments on one of
// their posts.
func (s *Server) NotificationSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.ActiveWebSockets.Inc()
		defer observability.ActiveWebSockets.Dec()

		uid, ok := conn.Locals(middleware.UserIDLocal).(string)
		if !ok || uid == "" {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("notification socket rejected",
				slog.String("user_id", uid), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
