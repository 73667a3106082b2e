package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestHubPublishSubscribe проверяет доставку событий слушателю сессии.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	sessionID := uuid.New()

	ch, unsubscribe := hub.Subscribe(sessionID)
	defer unsubscribe()

	hub.Publish(sessionID, Event{Type: "chunk", Data: "Hel"})
	hub.Publish(uuid.New(), Event{Type: "chunk", Data: "other"})

	select {
	case event := <-ch:
		if event.Type != "chunk" || event.Data != "Hel" {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}

	select {
	case event := <-ch:
		t.Fatalf("unexpected event from another session: %+v", event)
	default:
	}
}

// TestHubUnsubscribe проверяет закрытие канала и повторную отписку.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	sessionID := uuid.New()

	ch, unsubscribe := hub.Subscribe(sessionID)
	if hub.listeners(sessionID) != 1 {
		t.Fatalf("expected 1 listener, got %d", hub.listeners(sessionID))
	}

	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
	if hub.listeners(sessionID) != 0 {
		t.Fatalf("expected no listeners, got %d", hub.listeners(sessionID))
	}
}

// TestHubSlowListenerDoesNotBlock проверяет, что переполненный канал не блокирует публикацию.
func TestHubSlowListenerDoesNotBlock(t *testing.T) {
	hub := NewHub()
	sessionID := uuid.New()

	_, unsubscribe := hub.Subscribe(sessionID)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer*4; i++ {
			hub.Publish(sessionID, Event{Type: "chunk"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow listener")
	}
}

// TestHubClose проверяет закрытие всех подписок.
func TestHubClose(t *testing.T) {
	hub := NewHub()
	ch, unsubscribe := hub.Subscribe(uuid.New())

	hub.Close()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}

	late, _ := hub.Subscribe(uuid.New())
	if _, ok := <-late; ok {
		t.Fatal("expected subscription after close to be closed")
	}
}
