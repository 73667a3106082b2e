package auth

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const ContextSessionIDKey = "session_id"

type CookieConfig struct {
	Name   string
	Secure bool
}

// SessionMiddleware читает cookie сессии и выдает новую, если cookie нет или она невалидна.
func SessionMiddleware(tokens *SessionTokens, cookie CookieConfig, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if existing, err := c.Cookie(cookie.Name); err == nil && existing.Value != "" {
				sessionID, err := tokens.Parse(existing.Value)
				if err == nil {
					c.Set(ContextSessionIDKey, sessionID)
					return next(c)
				}
				logger.Debug("session cookie rejected", slog.String("error", err.Error()))
			}

			sessionID := uuid.New()
			token, expiresAt, err := tokens.Issue(sessionID)
			if err != nil {
				logger.Error("issue session token", slog.String("error", err.Error()))
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to start session")
			}

			c.SetCookie(&http.Cookie{
				Name:     cookie.Name,
				Value:    token,
				Path:     "/",
				Expires:  expiresAt,
				HttpOnly: true,
				Secure:   cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(ContextSessionIDKey, sessionID)
			return next(c)
		}
	}
}

// SessionIDFromContext извлекает идентификатор сессии из контекста.
func SessionIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(ContextSessionIDKey)
	sessionID, ok := value.(uuid.UUID)
	return sessionID, ok
}
