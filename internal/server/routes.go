package server

import (
	"github.com/labstack/echo/v4"

	"example.com/arctic-chat/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	pageHandler *handlers.PageHandler,
	chatHandler *handlers.ChatHandler,
	notificationHandler *handlers.NotificationHandler,
	generationHandler *handlers.GenerationHandler,
	sessionMiddleware echo.MiddlewareFunc,
	aiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/", pageHandler.Index, sessionMiddleware)

	api := e.Group("/api/v1")
	chatGroup := api.Group("/chat", sessionMiddleware)

	chatGroup.GET("", chatHandler.Get)
	chatGroup.PUT("/parameters", chatHandler.UpdateParameters)
	chatGroup.POST("/messages", chatHandler.PostMessage, aiRateLimiter)
	chatGroup.DELETE("/messages", chatHandler.Reset)
	chatGroup.POST("/reset", chatHandler.Reset)
	chatGroup.GET("/events", notificationHandler.Stream)
	chatGroup.GET("/generations", generationHandler.List)
}
