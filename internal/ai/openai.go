package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient calls an OpenAI-compatible completions and images API.
type OpenAIClient struct {
	client     openai.Client
	textModel  string
	imageModel string
}

// NewOpenAIClient создает клиент OpenAI с заданными параметрами.
func NewOpenAIClient(apiKey, baseURL, textModel, imageModel string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is missing")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client:     openai.NewClient(opts...),
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

// StreamText стримит ответ legacy completions API.
func (c *OpenAIClient) StreamText(ctx context.Context, req TextRequest) (TextStream, error) {
	params := openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(c.textModel),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: openai.String(applyTemplate(req)),
		},
		Temperature: openai.Float(req.Temperature),
		TopP:        openai.Float(req.TopP),
	}

	return newChunkStream(ctx, func(ctx context.Context, send func(string) error) error {
		stream := c.client.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			completion := stream.Current()
			for _, choice := range completion.Choices {
				if choice.Text == "" {
					continue
				}
				if err := send(choice.Text); err != nil {
					return err
				}
			}
		}

		if err := stream.Err(); err != nil {
			return fmt.Errorf("openai stream: %w", err)
		}
		return nil
	}), nil
}

// GenerateImage генерирует изображение через Images API.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	response, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.imageModel),
	})
	if err != nil {
		return Image{}, fmt.Errorf("openai image generate: %w", err)
	}

	for _, image := range response.Data {
		if image.URL != "" {
			return Image{URL: image.URL}, nil
		}
		if image.B64JSON != "" {
			return Image{URL: "data:image/png;base64," + image.B64JSON}, nil
		}
	}

	return Image{}, errors.New("openai image response has no data")
}
