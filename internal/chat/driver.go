package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"example.com/arctic-chat/internal/ai"
	"example.com/arctic-chat/internal/models"
)

const (
	DefaultMaxPromptTokens = 1500

	// FailureMessage replaces a reply whose stream broke mid-way.
	FailureMessage = "Something went wrong while generating the response. Please reset the chat."
)

type EventType string

const (
	EventTurn    EventType = "turn"
	EventChunk   EventType = "chunk"
	EventImage   EventType = "image"
	EventAborted EventType = "aborted"
	EventError   EventType = "error"
	EventDone    EventType = "done"
)

// Event is emitted to the UI while the driver works on a reply.
type Event struct {
	Type     EventType    `json:"type"`
	Turn     *models.Turn `json:"turn,omitempty"`
	Text     string       `json:"text,omitempty"`
	ImageURL string       `json:"image_url,omitempty"`
	Message  string       `json:"message,omitempty"`
}

type Sink interface {
	Emit(event Event)
}

// SinkFunc адаптирует функцию к интерфейсу Sink.
type SinkFunc func(event Event)

// Emit вызывает f(event).
func (f SinkFunc) Emit(event Event) {
	f(event)
}

type GenerationLogger interface {
	LogGeneration(ctx context.Context, log models.GenerationLog) error
}

type DriverConfig struct {
	Provider        string
	Model           string
	MaxPromptTokens int
	ImagesEnabled   bool
}

// Driver turns a pending user turn into a streamed assistant reply.
type Driver struct {
	text   ai.TextStreamer
	images ai.ImageGenerator
	tokens ai.TokenCounter
	logs   GenerationLogger
	logger *slog.Logger
	cfg    DriverConfig
}

// NewDriver создает драйвер ответов. images и logs могут быть nil.
func NewDriver(text ai.TextStreamer, images ai.ImageGenerator, tokens ai.TokenCounter, logs GenerationLogger, logger *slog.Logger, cfg DriverConfig) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = DefaultMaxPromptTokens
	}

	return &Driver{
		text:   text,
		images: images,
		tokens: tokens,
		logs:   logs,
		logger: logger,
		cfg:    cfg,
	}
}

// Respond генерирует ответ, если последний ход принадлежит пользователю.
// При превышении лимита токенов сессия прерывается и возвращается ErrPromptTooLong.
func (d *Driver) Respond(ctx context.Context, session *Session, sink Sink) error {
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}

	if err := session.begin(); err != nil {
		return err
	}
	defer session.end()

	turns := session.Turns()
	if len(turns) == 0 || turns[len(turns)-1].Role != models.RoleUser {
		return nil
	}
	userTurn := turns[len(turns)-1]

	prompt := BuildPrompt(turns)
	count, err := d.tokens.CountTokens(prompt)
	if err != nil {
		d.fail(session, sink)
		return fmt.Errorf("count prompt tokens: %w", err)
	}

	temperature, topP := session.Parameters()
	started := time.Now()
	record := models.GenerationLog{
		SessionID:    session.ID(),
		Provider:     d.cfg.Provider,
		Model:        d.cfg.Model,
		Prompt:       prompt,
		PromptTokens: count,
		Temperature:  temperature,
		TopP:         topP,
	}

	if count >= d.cfg.MaxPromptTokens {
		message := OverflowMessage(d.cfg.MaxPromptTokens)
		if err := session.Abort(message); err != nil {
			return err
		}
		sink.Emit(Event{Type: EventAborted, Message: message})

		record.Aborted = true
		d.logGeneration(ctx, record, started, ErrPromptTooLong)
		d.logger.Warn("chat aborted", slog.String("session_id", session.ID().String()), slog.Int("prompt_tokens", count))
		return ErrPromptTooLong
	}

	if err := session.AppendAssistantPlaceholder(); err != nil {
		d.fail(session, sink)
		return err
	}
	sink.Emit(Event{Type: EventTurn, Turn: &models.Turn{Role: models.RoleAssistant}})

	response, err := d.stream(ctx, session, sink, ai.TextRequest{
		Prompt:         prompt,
		PromptTemplate: ai.DefaultPromptTemplate,
		Temperature:    temperature,
		TopP:           topP,
	})
	record.Response = response
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			d.fail(session, sink)
			record.Response = ""
		}
		d.logGeneration(context.WithoutCancel(ctx), record, started, err)
		return fmt.Errorf("stream completion: %w", err)
	}

	if d.images != nil && d.cfg.ImagesEnabled {
		record.ImageURL = d.generateImage(ctx, session, sink, userTurn.Content)
	}

	d.logGeneration(ctx, record, started, nil)
	return nil
}

func (d *Driver) stream(ctx context.Context, session *Session, sink Sink, req ai.TextRequest) (string, error) {
	stream, err := d.text.StreamText(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return builder.String(), nil
		}
		if err != nil {
			return builder.String(), err
		}

		if err := session.AppendToLastAssistant(delta); err != nil {
			return builder.String(), err
		}
		builder.WriteString(delta)
		sink.Emit(Event{Type: EventChunk, Text: delta})
	}
}

// generateImage запрашивает изображение по ходу пользователя, вызвавшему ответ.
// Ошибка генерации не отменяет уже полученный текст.
func (d *Driver) generateImage(ctx context.Context, session *Session, sink Sink, prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return ""
	}

	image, err := d.images.GenerateImage(ctx, prompt)
	if err != nil {
		d.logger.Warn("image generation failed", slog.String("session_id", session.ID().String()), slog.String("error", err.Error()))
		sink.Emit(Event{Type: EventError, Message: "image generation failed"})
		return ""
	}
	if image.URL == "" {
		return ""
	}

	if err := session.AttachImage(image.URL); err != nil {
		return ""
	}
	sink.Emit(Event{Type: EventImage, ImageURL: image.URL})
	return image.URL
}

// fail прерывает сессию сообщением об ошибке, чтобы ввод не остался заблокированным ходом пользователя.
func (d *Driver) fail(session *Session, sink Sink) {
	if err := session.Abort(FailureMessage); err == nil {
		sink.Emit(Event{Type: EventAborted, Message: FailureMessage})
	}
}

func (d *Driver) logGeneration(ctx context.Context, record models.GenerationLog, started time.Time, err error) {
	if d.logs == nil {
		return
	}

	record.Latency = time.Since(started)
	record.Success = err == nil
	if err != nil {
		message := err.Error()
		record.ErrorMessage = &message
	}

	if logErr := d.logs.LogGeneration(ctx, record); logErr != nil {
		d.logger.Warn("generation log failed", slog.String("session_id", record.SessionID.String()), slog.String("error", logErr.Error()))
	}
}
