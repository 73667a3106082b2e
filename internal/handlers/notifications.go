package handlers

import (
	"time"

	"github.com/labstack/echo/v4"

	"example.com/arctic-chat/internal/auth"
	"example.com/arctic-chat/internal/notifications"
)

const keepAliveInterval = 15 * time.Second

type NotificationHandler struct {
	Hub *notifications.Hub
}

// NewNotificationHandler создает SSE-обработчик событий сессии.
func NewNotificationHandler(hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{Hub: hub}
}

// Stream открывает SSE-поток, в который дублируются события чата текущей сессии.
func (h *NotificationHandler) Stream(c echo.Context) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	ch, unsubscribe := h.Hub.Subscribe(sessionID)
	defer unsubscribe()

	flusher, ok := startSSE(c)
	if !ok {
		return serverError(c)
	}

	_ = writeSSE(c, "connected", notifications.Event{
		Type:      "connected",
		Timestamp: time.Now().UTC(),
		Data:      map[string]string{"session_id": sessionID.String()},
	})
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Response().Write([]byte(": keep-alive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeSSE(c, event.Type, event); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
