package ai

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

const (
	DefaultTokenizerModel = "huggyllama/llama-7b"
	tokenizerFileName     = "tokenizer.json"
)

type encoder interface {
	EncodeSingle(input string, addSpecialTokensOpt ...bool) (*tokenizer.Encoding, error)
}

// HFTokenizer counts tokens with a pretrained HuggingFace vocabulary.
// The vocabulary only approximates the generation model's own tokenizer.
// It is loaded on first use and kept for the life of the process.
type HFTokenizer struct {
	load func() (encoder, error)

	once sync.Once
	enc  encoder
	err  error
	mu   sync.Mutex
}

// NewHFTokenizer создает счетчик токенов из файла или модели HuggingFace Hub.
func NewHFTokenizer(file, model string) *HFTokenizer {
	if strings.TrimSpace(model) == "" {
		model = DefaultTokenizerModel
	}

	return &HFTokenizer{
		load: func() (encoder, error) {
			return loadPretrained(file, model)
		},
	}
}

// Preload загружает словарь заранее, чтобы первая генерация не ждала загрузки.
func (t *HFTokenizer) Preload() error {
	_, err := t.loaded()
	return err
}

// CountTokens возвращает количество токенов в тексте без служебных токенов.
func (t *HFTokenizer) CountTokens(text string) (int, error) {
	enc, err := t.loaded()
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	encoding, err := enc.EncodeSingle(text, false)
	if err != nil {
		return 0, fmt.Errorf("encode prompt: %w", err)
	}

	return len(encoding.Tokens), nil
}

func (t *HFTokenizer) loaded() (encoder, error) {
	t.once.Do(func() {
		t.enc, t.err = t.load()
	})

	return t.enc, t.err
}

func loadPretrained(file, model string) (encoder, error) {
	path := strings.TrimSpace(file)
	if path == "" {
		resolved, err := tokenizer.CachedPath(model, tokenizerFileName)
		if err != nil {
			return nil, fmt.Errorf("fetch tokenizer %s: %w", model, err)
		}
		path = resolved
	}

	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}

	return tk, nil
}
