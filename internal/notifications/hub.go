package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultBuffer = 32

// Event is a chat event mirrored to every listener of a session.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type Hub struct {
	mu       sync.RWMutex
	buffer   int
	sessions map[uuid.UUID]map[chan Event]struct{}
	closed   bool
}

// NewHub создает хаб для SSE-подписок на события сессий.
func NewHub() *Hub {
	return &Hub{
		buffer:   defaultBuffer,
		sessions: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe подписывает слушателя на события сессии и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(sessionID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	listeners, ok := h.sessions[sessionID]
	if !ok {
		listeners = make(map[chan Event]struct{})
		h.sessions[sessionID] = listeners
	}
	listeners[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			listeners, exists := h.sessions[sessionID]
			if !exists {
				return
			}
			if _, ok := listeners[ch]; !ok {
				return
			}
			delete(listeners, ch)
			if len(listeners) == 0 {
				delete(h.sessions, sessionID)
			}
			close(ch)
		})
	}
}

// Publish отправляет событие всем слушателям сессии. Медленные слушатели пропускают событие.
func (h *Hub) Publish(sessionID uuid.UUID, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.sessions[sessionID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) listeners(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions[sessionID])
}

// Close закрывает все каналы подписчиков.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, listeners := range h.sessions {
		for ch := range listeners {
			close(ch)
		}
		delete(h.sessions, id)
	}
}
