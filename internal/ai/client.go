package ai

import (
	"context"
	"strings"
)

const (
	ProviderReplicate = "replicate"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"

	// DefaultPromptTemplate passes the serialized conversation through as is.
	DefaultPromptTemplate = "{prompt}"
)

type TextRequest struct {
	Prompt         string
	PromptTemplate string
	Temperature    float64
	TopP           float64
}

// TextStream is a pull stream of completion fragments.
// Recv returns io.EOF once the completion is exhausted.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

type TextStreamer interface {
	StreamText(ctx context.Context, req TextRequest) (TextStream, error)
}

// Image is a reference to a generated image: a remote URL or a data URL.
type Image struct {
	URL string
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}

type TokenCounter interface {
	CountTokens(text string) (int, error)
}

// TokenCounterFunc адаптирует функцию к интерфейсу TokenCounter.
type TokenCounterFunc func(text string) (int, error)

// CountTokens вызывает f(text).
func (f TokenCounterFunc) CountTokens(text string) (int, error) {
	return f(text)
}

// applyTemplate подставляет промпт в шаблон для провайдеров без серверных шаблонов.
func applyTemplate(req TextRequest) string {
	template := req.PromptTemplate
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}

	return strings.ReplaceAll(template, "{prompt}", req.Prompt)
}
