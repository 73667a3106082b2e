package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func newReplicateServer(t *testing.T) (*httptest.Server, func() map[string]interface{}) {
	t.Helper()

	var (
		mu        sync.Mutex
		textInput map[string]interface{}
	)

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/predictions"):
			var body struct {
				Input map[string]interface{} `json:"input"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)

			w.Header().Set("Content-Type", "application/json")
			if _, ok := body.Input["prompt_template"]; ok {
				mu.Lock()
				textInput = body.Input
				mu.Unlock()
				_, _ = io.WriteString(w, `{"id":"text-1","status":"starting","input":{},"urls":{"stream":"`+server.URL+`/stream/text-1","get":"`+server.URL+`/predictions/text-1","cancel":"`+server.URL+`/predictions/text-1/cancel"}}`)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, imagePrediction(server.URL))
		case r.Method == http.MethodGet && r.URL.Path == "/predictions/image-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, imagePrediction(server.URL))
		case r.Method == http.MethodGet && r.URL.Path == "/stream/text-1":
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "event: output\nid: 1\ndata: Hel\n\n")
			_, _ = io.WriteString(w, "event: output\nid: 2\ndata: lo\n\n")
			_, _ = io.WriteString(w, "event: done\nid: 3\ndata: {}\n\n")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	return server, func() map[string]interface{} {
		mu.Lock()
		defer mu.Unlock()
		return textInput
	}
}

func imagePrediction(baseURL string) string {
	return `{"id":"image-1","status":"succeeded","input":{},"output":["https://example.com/fox.png"],"urls":{"get":"` + baseURL + `/predictions/image-1","cancel":"` + baseURL + `/predictions/image-1/cancel"}}`
}

// TestReplicateClientStreamText проверяет стриминг через Replicate и входные параметры модели.
func TestReplicateClientStreamText(t *testing.T) {
	server, textInput := newReplicateServer(t)

	client, err := NewReplicateClient("r8_test", server.URL, "snowflake/snowflake-arctic-instruct", "stability-ai/sdxl:abc123")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	stream, err := client.StreamText(context.Background(), TextRequest{
		Prompt:      "hi",
		Temperature: 0.3,
		TopP:        0.9,
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer stream.Close()

	var got string
	for {
		text, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		got += text
	}

	if got != "Hello" {
		t.Fatalf("expected Hello, got %q", got)
	}

	input := textInput()
	if input["prompt"] != "hi" || input["prompt_template"] != DefaultPromptTemplate || input["temperature"] != 0.3 || input["top_p"] != 0.9 {
		t.Fatalf("unexpected model input %v", input)
	}
}

// TestReplicateClientGenerateImage проверяет запуск модели изображений и извлечение ссылки.
func TestReplicateClientGenerateImage(t *testing.T) {
	server, _ := newReplicateServer(t)

	client, err := NewReplicateClient("r8_test", server.URL, "snowflake/snowflake-arctic-instruct", "stability-ai/sdxl:abc123")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	image, err := client.GenerateImage(context.Background(), "a fox")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if image.URL != "https://example.com/fox.png" {
		t.Fatalf("unexpected url %q", image.URL)
	}
}
