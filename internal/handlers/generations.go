package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"example.com/arctic-chat/internal/auth"
	"example.com/arctic-chat/internal/repository"
)

type GenerationLister interface {
	ListGenerations(ctx context.Context, filter repository.GenerationFilter, limit int) ([]repository.GenerationRecord, error)
}

type GenerationHandler struct {
	Generations GenerationLister
	Logger      *slog.Logger
}

// NewGenerationHandler создает обработчик истории генераций.
func NewGenerationHandler(generations GenerationLister, logger *slog.Logger) *GenerationHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &GenerationHandler{Generations: generations, Logger: logger}
}

type GenerationListResponse struct {
	Items []repository.GenerationRecord `json:"items"`
}

// List возвращает последние генерации текущей сессии.
func (h *GenerationHandler) List(c echo.Context) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = parsed
	}

	items, err := h.Generations.ListGenerations(c.Request().Context(), repository.GenerationFilter{SessionID: &sessionID}, limit)
	if err != nil {
		if errors.Is(err, repository.ErrDisabled) {
			return unavailable(c, "generation log is disabled")
		}
		h.Logger.Error("list generations", slog.String("session_id", sessionID.String()), slog.String("error", err.Error()))
		return serverError(c)
	}

	return c.JSON(http.StatusOK, GenerationListResponse{Items: items})
}
