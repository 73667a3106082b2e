package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/arctic-chat/internal/chat"
)

// Preloader is satisfied by token counters that load a vocabulary lazily.
type Preloader interface {
	Preload() error
}

type HealthHandler struct {
	Provider  string
	Tokenizer Preloader
	Sessions  *chat.Store
}

type HealthResponse struct {
	Status    string `json:"status"`
	Provider  string `json:"provider,omitempty"`
	Tokenizer string `json:"tokenizer,omitempty"`
	Sessions  int    `json:"sessions"`
}

// NewHealthHandler создает обработчик проверки готовности. tokenizer может быть nil.
func NewHealthHandler(provider string, tokenizer Preloader, sessions *chat.Store) *HealthHandler {
	return &HealthHandler{Provider: provider, Tokenizer: tokenizer, Sessions: sessions}
}

// Health возвращает статус сервиса, провайдера и токенизатора.
func (h *HealthHandler) Health(c echo.Context) error {
	response := HealthResponse{Status: "ok", Provider: h.Provider}
	if h.Sessions != nil {
		response.Sessions = h.Sessions.Len()
	}

	if h.Tokenizer != nil {
		response.Tokenizer = "ready"
		if err := h.Tokenizer.Preload(); err != nil {
			response.Status = "degraded"
			response.Tokenizer = "unavailable"
			return c.JSON(http.StatusServiceUnavailable, response)
		}
	}

	return c.JSON(http.StatusOK, response)
}
