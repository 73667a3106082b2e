package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/replicate/replicate-go"
)

// TestChunkStreamDeliversInOrder проверяет порядок фрагментов и io.EOF в конце.
func TestChunkStreamDeliversInOrder(t *testing.T) {
	stream := newChunkStream(context.Background(), func(_ context.Context, send func(string) error) error {
		for _, text := range []string{"a", "b", "c"} {
			if err := send(text); err != nil {
				return err
			}
		}
		return nil
	})
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

	if got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

// TestChunkStreamPropagatesError проверяет передачу ошибки продюсера.
func TestChunkStreamPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	stream := newChunkStream(context.Background(), func(_ context.Context, send func(string) error) error {
		if err := send("x"); err != nil {
			return err
		}
		return boom
	})
	defer stream.Close()

	if text, err := stream.Recv(); err != nil || text != "x" {
		t.Fatalf("expected first chunk, got %q %v", text, err)
	}
	if _, err := stream.Recv(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

// TestChunkStreamClose проверяет остановку продюсера при закрытии.
func TestChunkStreamClose(t *testing.T) {
	stopped := make(chan struct{})
	stream := newChunkStream(context.Background(), func(ctx context.Context, send func(string) error) error {
		defer close(stopped)
		for {
			if err := send("tick"); err != nil {
				return err
			}
		}
	})

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("recv: %v", err)
	}
	_ = stream.Close()
	<-stopped

	if _, err := stream.Recv(); !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		t.Fatalf("expected canceled or EOF after close, got %v", err)
	}
}

// TestForwardReplicateEvents проверяет разбор событий Replicate.
func TestForwardReplicateEvents(t *testing.T) {
	events := make(chan replicate.SSEEvent, 4)
	errs := make(chan error)
	events <- replicate.SSEEvent{Type: "output", Data: "Hel"}
	events <- replicate.SSEEvent{Type: "logs", Data: "ignored"}
	events <- replicate.SSEEvent{Type: "output", Data: "lo"}
	events <- replicate.SSEEvent{Type: "done"}

	var got []string
	err := forwardReplicateEvents(context.Background(), events, errs, func(text string) error {
		got = append(got, text)
		return nil
	})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(got) != 2 || got[0] != "Hel" || got[1] != "lo" {
		t.Fatalf("unexpected output: %v", got)
	}
}

// TestForwardReplicateEventsError проверяет ошибку из потока событий.
func TestForwardReplicateEventsError(t *testing.T) {
	events := make(chan replicate.SSEEvent, 1)
	events <- replicate.SSEEvent{Type: "error", Data: "model crashed"}

	err := forwardReplicateEvents(context.Background(), events, nil, func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error")
	}
}

// TestImageURLFromOutput проверяет извлечение ссылки из вывода модели.
func TestImageURLFromOutput(t *testing.T) {
	url, err := imageURLFromOutput([]interface{}{"https://example.com/a.png"})
	if err != nil || url != "https://example.com/a.png" {
		t.Fatalf("unexpected result %q %v", url, err)
	}

	url, err = imageURLFromOutput("https://example.com/b.png")
	if err != nil || url != "https://example.com/b.png" {
		t.Fatalf("unexpected result %q %v", url, err)
	}

	if _, err := imageURLFromOutput(map[string]interface{}{}); err == nil {
		t.Fatal("expected error for unknown output")
	}
}

// TestForwardReplicateEventsPendingError проверяет ошибку, оставшуюся в канале после закрытия событий.
func TestForwardReplicateEventsPendingError(t *testing.T) {
	events := make(chan replicate.SSEEvent)
	close(events)

	for i := 0; i < 20; i++ {
		pending := make(chan error, 1)
		pending <- errors.New("connection reset")

		err := forwardReplicateEvents(context.Background(), events, pending, func(string) error { return nil })
		if err == nil {
			t.Fatal("expected pending stream error")
		}
	}

	if err := forwardReplicateEvents(context.Background(), events, nil, func(string) error { return nil }); err != nil {
		t.Fatalf("expected clean end without errors, got %v", err)
	}
}
