package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/replicate/replicate-go"
)

const (
	replicateEventOutput = "output"
	replicateEventError  = "error"
	replicateEventDone   = "done"
)

// ReplicateClient streams completions and runs image models hosted on Replicate.
type ReplicateClient struct {
	client     *replicate.Client
	textModel  string
	imageModel string
}

// NewReplicateClient создает клиент Replicate с заданными моделями.
func NewReplicateClient(apiKey, baseURL, textModel, imageModel string) (*ReplicateClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("replicate api token is missing")
	}

	opts := []replicate.ClientOption{replicate.WithToken(apiKey)}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		opts = append(opts, replicate.WithBaseURL(baseURL))
	}

	client, err := replicate.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create replicate client: %w", err)
	}

	return &ReplicateClient{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

// StreamText открывает поток генерации текста.
func (c *ReplicateClient) StreamText(ctx context.Context, req TextRequest) (TextStream, error) {
	template := req.PromptTemplate
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}

	input := replicate.PredictionInput{
		"prompt":          req.Prompt,
		"prompt_template": template,
		"temperature":     req.Temperature,
		"top_p":           req.TopP,
	}

	return newChunkStream(ctx, func(ctx context.Context, send func(string) error) error {
		events, errs := c.client.Stream(ctx, c.textModel, input, nil)
		return forwardReplicateEvents(ctx, events, errs, send)
	}), nil
}

// GenerateImage запускает модель изображений и возвращает ссылку на результат.
func (c *ReplicateClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	output, err := c.client.Run(ctx, c.imageModel, replicate.PredictionInput{"prompt": prompt}, nil)
	if err != nil {
		return Image{}, fmt.Errorf("replicate image run: %w", err)
	}

	url, err := imageURLFromOutput(output)
	if err != nil {
		return Image{}, err
	}

	return Image{URL: url}, nil
}

func forwardReplicateEvents(ctx context.Context, events <-chan replicate.SSEEvent, errs <-chan error, send func(string) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("replicate stream: %w", err)
			}
		case event, ok := <-events:
			if !ok {
				return pendingReplicateError(errs)
			}

			switch event.Type {
			case replicateEventOutput:
				if event.Data == "" {
					continue
				}
				if err := send(event.Data); err != nil {
					return err
				}
			case replicateEventError:
				return fmt.Errorf("replicate stream error: %s", strings.TrimSpace(event.Data))
			case replicateEventDone:
				return pendingReplicateError(errs)
			}
		}
	}
}

// pendingReplicateError забирает ошибку, которую select мог не успеть прочитать до закрытия событий.
func pendingReplicateError(errs <-chan error) error {
	select {
	case err, ok := <-errs:
		if ok && err != nil {
			return fmt.Errorf("replicate stream: %w", err)
		}
	default:
	}
	return nil
}

// imageURLFromOutput извлекает первую ссылку из вывода модели.
func imageURLFromOutput(output interface{}) (string, error) {
	switch value := output.(type) {
	case string:
		if value != "" {
			return value, nil
		}
	case []string:
		for _, item := range value {
			if item != "" {
				return item, nil
			}
		}
	case []interface{}:
		for _, item := range value {
			if url, ok := item.(string); ok && url != "" {
				return url, nil
			}
		}
	}

	return "", errors.New("replicate image output has no url")
}
