package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient calls the Google Generative Language API (Gemini and Imagen).
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// NewGeminiClient создает клиент Gemini с заданными параметрами.
func NewGeminiClient(ctx context.Context, apiKey, baseURL, textModel, imageModel string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is missing")
	}

	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

// StreamText стримит ответ Gemini.
func (c *GeminiClient) StreamText(ctx context.Context, req TextRequest) (TextStream, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
		TopP:        genai.Ptr(float32(req.TopP)),
	}
	contents := genai.Text(applyTemplate(req))

	return newChunkStream(ctx, func(ctx context.Context, send func(string) error) error {
		for result, err := range c.client.Models.GenerateContentStream(ctx, c.textModel, contents, config) {
			if err != nil {
				return fmt.Errorf("gemini stream: %w", err)
			}

			text := result.Text()
			if text == "" {
				continue
			}
			if err := send(text); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

// GenerateImage генерирует изображение через Imagen и возвращает data URL.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	response, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, nil)
	if err != nil {
		return Image{}, fmt.Errorf("gemini image generate: %w", err)
	}

	return imageFromGenerated(response.GeneratedImages)
}

// imageFromGenerated предпочитает ссылку GCS и иначе собирает data URL из байтов.
func imageFromGenerated(images []*genai.GeneratedImage) (Image, error) {
	for _, generated := range images {
		if generated == nil || generated.Image == nil {
			continue
		}
		if generated.Image.GCSURI != "" {
			return Image{URL: generated.Image.GCSURI}, nil
		}
		if len(generated.Image.ImageBytes) > 0 {
			mimeType := generated.Image.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			encoded := base64.StdEncoding.EncodeToString(generated.Image.ImageBytes)
			return Image{URL: "data:" + mimeType + ";base64," + encoded}, nil
		}
	}

	return Image{}, errors.New("gemini image response has no images")
}
