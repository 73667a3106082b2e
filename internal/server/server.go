package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/arctic-chat/internal/ai"
	"example.com/arctic-chat/internal/auth"
	"example.com/arctic-chat/internal/chat"
	"example.com/arctic-chat/internal/config"
	"example.com/arctic-chat/internal/handlers"
	"example.com/arctic-chat/internal/notifications"
	"example.com/arctic-chat/internal/repository"
	"example.com/arctic-chat/internal/web"
)

const pageTitle = "Snowflake Arctic"

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Text        ai.TextStreamer
	Images      ai.ImageGenerator
	Tokens      ai.TokenCounter
	Generations Generations
	Sessions    *chat.Store
	Hub         *notifications.Hub
}

// Generations is both the driver's log sink and the source of the history endpoint.
type Generations interface {
	chat.GenerationLogger
	handlers.GenerationLister
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, deps Dependencies) (*echo.Echo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Hub == nil {
		deps.Hub = notifications.NewHub()
	}
	if deps.Generations == nil {
		deps.Generations = repository.NopGenerations{}
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.Renderer = renderer

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	var images ai.ImageGenerator
	if cfg.AI.ImagesEnabled {
		images = deps.Images
	}

	driver := chat.NewDriver(deps.Text, images, deps.Tokens, deps.Generations, logger, chat.DriverConfig{
		Provider:        cfg.AI.Provider,
		Model:           cfg.AI.TextModel,
		MaxPromptTokens: cfg.Chat.MaxPromptTokens,
		ImagesEnabled:   cfg.AI.ImagesEnabled,
	})

	tokens := auth.NewSessionTokens(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	sessionMiddleware := auth.SessionMiddleware(tokens, auth.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}, logger)

	tokenizer, _ := deps.Tokens.(handlers.Preloader)

	registerRoutes(
		e,
		handlers.NewHealthHandler(cfg.AI.Provider, tokenizer, deps.Sessions),
		handlers.NewPageHandler(deps.Sessions, pageTitle, cfg.Chat.MaxPromptTokens),
		handlers.NewChatHandler(deps.Sessions, driver, deps.Hub, logger, cfg.AI.Timeout),
		handlers.NewNotificationHandler(deps.Hub),
		handlers.NewGenerationHandler(deps.Generations, logger),
		sessionMiddleware,
		aiRateLimiter(cfg.AI),
	)

	return e, nil
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if sessionID, ok := auth.SessionIDFromContext(c); ok {
				attrs = append(attrs, slog.String("session_id", sessionID.String()))
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func aiRateLimiter(cfg config.AIConfig) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.RateLimitBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
