package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/arctic-chat/internal/auth"
	"example.com/arctic-chat/internal/chat"
	"example.com/arctic-chat/internal/models"
	"example.com/arctic-chat/internal/notifications"
)

type ChatHandler struct {
	Sessions *chat.Store
	Driver   *chat.Driver
	Hub      *notifications.Hub
	Logger   *slog.Logger
	Timeout  time.Duration
}

// NewChatHandler создает обработчик чата.
func NewChatHandler(sessions *chat.Store, driver *chat.Driver, hub *notifications.Hub, logger *slog.Logger, timeout time.Duration) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChatHandler{
		Sessions: sessions,
		Driver:   driver,
		Hub:      hub,
		Logger:   logger,
		Timeout:  timeout,
	}
}

type MessageRequest struct {
	Content string `json:"content" validate:"required,max=8000"`
}

type ParametersRequest struct {
	Temperature float64 `json:"temperature" validate:"gte=0.01,lte=5"`
	TopP        float64 `json:"top_p" validate:"gte=0.01,lte=1"`
}

// Get возвращает снимок текущей сессии.
func (h *ChatHandler) Get(c echo.Context) error {
	session, ok := h.session(c)
	if !ok {
		return unauthorized(c)
	}

	return c.JSON(http.StatusOK, session.Snapshot())
}

// UpdateParameters меняет temperature и top_p сессии.
func (h *ChatHandler) UpdateParameters(c echo.Context) error {
	session, ok := h.session(c)
	if !ok {
		return unauthorized(c)
	}

	var req ParametersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "temperature must be within [0.01, 5.0] and top_p within [0.01, 1.0]")
	}

	if err := session.SetParameters(req.Temperature, req.TopP); err != nil {
		if errors.Is(err, chat.ErrInvalidParameter) {
			return badRequest(c, err.Error())
		}
		return serverError(c)
	}

	h.publish(session.ID(), "parameters", map[string]float64{"temperature": req.Temperature, "top_p": req.TopP})
	return c.JSON(http.StatusOK, session.Snapshot())
}

// PostMessage добавляет ход пользователя и стримит ответ модели как SSE.
func (h *ChatHandler) PostMessage(c echo.Context) error {
	session, ok := h.session(c)
	if !ok {
		return unauthorized(c)
	}

	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "message must not be empty")
	}

	if err := session.AppendUserTurn(req.Content); err != nil {
		return h.turnError(c, err)
	}

	flusher, ok := startSSE(c)
	if !ok {
		return serverError(c)
	}

	sessionID := session.ID()
	sink := chat.SinkFunc(func(event chat.Event) {
		if err := writeSSE(c, string(event.Type), event); err == nil {
			flusher.Flush()
		}
		h.publish(sessionID, string(event.Type), event)
	})

	sink.Emit(chat.Event{Type: chat.EventTurn, Turn: &models.Turn{Role: models.RoleUser, Content: req.Content}})

	ctx := c.Request().Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	if err := h.Driver.Respond(ctx, session, sink); err != nil && !errors.Is(err, chat.ErrPromptTooLong) {
		if errors.Is(err, context.Canceled) {
			h.Logger.Info("chat response canceled", slog.String("session_id", sessionID.String()))
		} else {
			h.Logger.Error("chat response failed", slog.String("session_id", sessionID.String()), slog.String("error", err.Error()))
			sink.Emit(chat.Event{Type: chat.EventError, Message: "response generation failed"})
		}
	}

	sink.Emit(chat.Event{Type: chat.EventDone})
	return nil
}

// Reset возвращает сессию к приветствию.
func (h *ChatHandler) Reset(c echo.Context) error {
	session, ok := h.session(c)
	if !ok {
		return unauthorized(c)
	}

	if err := session.ResetIfIdle(); err != nil {
		return h.turnError(c, err)
	}
	h.publish(session.ID(), "reset", nil)
	return c.JSON(http.StatusOK, session.Snapshot())
}

func (h *ChatHandler) session(c echo.Context) (*chat.Session, bool) {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return nil, false
	}

	return h.Sessions.GetOrCreate(sessionID), true
}

func (h *ChatHandler) publish(sessionID uuid.UUID, eventType string, data interface{}) {
	if h.Hub == nil {
		return
	}

	h.Hub.Publish(sessionID, notifications.Event{Type: eventType, Data: data})
}

func (h *ChatHandler) turnError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, chat.ErrEmptyContent):
		return badRequest(c, "message must not be empty")
	case errors.Is(err, chat.ErrAborted):
		return conflict(c, "the conversation was aborted, reset it to continue")
	case errors.Is(err, chat.ErrBusy):
		return conflict(c, "a reply is still being generated")
	case errors.Is(err, chat.ErrOutOfTurn):
		return conflict(c, "the previous message is still waiting for a reply")
	default:
		return serverError(c)
	}
}
