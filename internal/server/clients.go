package server

import (
	"context"
	"fmt"

	"example.com/arctic-chat/internal/ai"
	"example.com/arctic-chat/internal/config"
)

// AIClient is a hosted provider able to stream text and generate images.
type AIClient interface {
	ai.TextStreamer
	ai.ImageGenerator
}

// NewAIClient выбирает клиента провайдера по конфигурации.
func NewAIClient(ctx context.Context, cfg config.AIConfig) (AIClient, error) {
	var (
		client AIClient
		err    error
	)

	switch cfg.Provider {
	case ai.ProviderReplicate:
		client, err = ai.NewReplicateClient(cfg.APIKey, cfg.BaseURL, cfg.TextModel, cfg.ImageModel)
	case ai.ProviderOpenAI:
		client, err = ai.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.TextModel, cfg.ImageModel)
	case ai.ProviderGemini:
		client, err = ai.NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL, cfg.TextModel, cfg.ImageModel)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	return client, nil
}
