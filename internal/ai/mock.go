package ai

import (
	"context"
	"sync"
)

// MockClient is a scripted TextStreamer and ImageGenerator for tests.
// It records every request it receives.
type MockClient struct {
	Chunks    []string
	StreamErr error // returned after all chunks are delivered
	OpenErr   error // returned by StreamText itself
	ImageURL  string
	ImageErr  error

	// OnChunk runs before each chunk is handed to the consumer.
	OnChunk func(index int)

	mu           sync.Mutex
	TextRequests []TextRequest
	ImagePrompts []string
}

// NewMockClient создает мок, отдающий заданные фрагменты.
func NewMockClient(chunks ...string) *MockClient {
	return &MockClient{Chunks: chunks}
}

// StreamText записывает запрос и стримит заготовленные фрагменты.
func (m *MockClient) StreamText(ctx context.Context, req TextRequest) (TextStream, error) {
	m.mu.Lock()
	m.TextRequests = append(m.TextRequests, req)
	chunks := append([]string(nil), m.Chunks...)
	openErr, streamErr, onChunk := m.OpenErr, m.StreamErr, m.OnChunk
	m.mu.Unlock()

	if openErr != nil {
		return nil, openErr
	}

	return newChunkStream(ctx, func(ctx context.Context, send func(string) error) error {
		for i, text := range chunks {
			if onChunk != nil {
				onChunk(i)
			}
			if err := send(text); err != nil {
				return err
			}
		}
		return streamErr
	}), nil
}

// GenerateImage записывает промпт и возвращает заготовленную ссылку.
func (m *MockClient) GenerateImage(_ context.Context, prompt string) (Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ImagePrompts = append(m.ImagePrompts, prompt)
	if m.ImageErr != nil {
		return Image{}, m.ImageErr
	}

	return Image{URL: m.ImageURL}, nil
}

// TextCalls возвращает копию записанных текстовых запросов.
func (m *MockClient) TextCalls() []TextRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]TextRequest(nil), m.TextRequests...)
}

// ImageCalls возвращает копию записанных промптов изображений.
func (m *MockClient) ImageCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.ImagePrompts...)
}
