package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/arctic-chat/internal/auth"
	"example.com/arctic-chat/internal/chat"
	"example.com/arctic-chat/internal/web"
)

type PageHandler struct {
	Sessions        *chat.Store
	Title           string
	MaxPromptTokens int
}

// NewPageHandler создает обработчик страницы чата.
func NewPageHandler(sessions *chat.Store, title string, maxPromptTokens int) *PageHandler {
	return &PageHandler{Sessions: sessions, Title: title, MaxPromptTokens: maxPromptTokens}
}

// Index отрисовывает страницу чата с текущей историей.
func (h *PageHandler) Index(c echo.Context) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	return c.Render(http.StatusOK, "index.html", web.PageData{
		Title:           h.Title,
		Snapshot:        h.Sessions.GetOrCreate(sessionID).Snapshot(),
		MaxPromptTokens: h.MaxPromptTokens,
		MinTemperature:  chat.MinTemperature,
		MaxTemperature:  chat.MaxTemperature,
		MinTopP:         chat.MinTopP,
		MaxTopP:         chat.MaxTopP,
	})
}
