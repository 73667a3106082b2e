package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"example.com/arctic-chat/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageData is the view model of the chat page.
type PageData struct {
	Title           string
	Snapshot        models.Snapshot
	MaxPromptTokens int
	MinTemperature  float64
	MaxTemperature  float64
	MinTopP         float64
	MaxTopP         float64
}

// Renderer renders the embedded HTML templates for Echo.
type Renderer struct {
	templates *template.Template
}

// NewRenderer разбирает встроенные шаблоны.
func NewRenderer() (*Renderer, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{templates: templates}, nil
}

// Render реализует echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
