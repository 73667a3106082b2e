package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// startSSE пишет заголовки потока и снимает write deadline сервера для долгого ответа.
func startSSE(c echo.Context) (http.Flusher, bool) {
	w := c.Response().Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	return flusher, true
}

func writeSSE(c echo.Context, eventType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := c.Response().Write([]byte("event: " + eventType + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}

	return nil
}
