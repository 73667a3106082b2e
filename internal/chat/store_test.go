package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestStoreGetOrCreate проверяет, что одна и та же сессия возвращается по ID.
func TestStoreGetOrCreate(t *testing.T) {
	store := NewStore(StoreConfig{Greeting: "Hey"})
	defer store.Close()

	id := uuid.New()
	first := store.GetOrCreate(id)
	second := store.GetOrCreate(id)

	if first != second {
		t.Fatal("expected the same session instance")
	}
	if first.Turns()[0].Content != "Hey" {
		t.Fatalf("expected configured greeting, got %q", first.Turns()[0].Content)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	if _, ok := store.Get(uuid.New()); ok {
		t.Fatal("expected unknown session to be missing")
	}

	store.remove(id)
	if store.Len() != 0 {
		t.Fatalf("expected store to be empty, got %d", store.Len())
	}
}

// TestStoreSweepRemovesIdleSessions проверяет удаление неактивных сессий.
func TestStoreSweepRemovesIdleSessions(t *testing.T) {
	store := NewStore(StoreConfig{IdleTimeout: time.Minute})
	defer store.Close()

	now := time.Now().Add(-time.Hour)
	store.now = func() time.Time { return now }

	stale := uuid.New()
	store.GetOrCreate(stale)
	store.Get(stale)

	now = time.Now().Add(2 * time.Hour)
	fresh := uuid.New()
	store.GetOrCreate(fresh)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed session, got %d", removed)
	}
	if _, ok := store.Get(fresh); !ok {
		t.Fatal("expected fresh session to remain")
	}
	if _, ok := store.Get(stale); ok {
		t.Fatal("expected stale session to be removed")
	}
}

// TestStoreEvictsLeastRecentlyUsed проверяет вытеснение при переполнении.
func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	store := NewStore(StoreConfig{MaxSessions: 2})
	defer store.Close()

	base := time.Now().Add(48 * time.Hour)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	oldest, middle := uuid.New(), uuid.New()
	store.GetOrCreate(oldest)
	store.GetOrCreate(middle)
	store.GetOrCreate(uuid.New())

	if store.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", store.Len())
	}
	if _, ok := store.Get(oldest); ok {
		t.Fatal("expected oldest session to be evicted")
	}
	if _, ok := store.Get(middle); !ok {
		t.Fatal("expected middle session to remain")
	}
}

// TestStoreAppliesDefaultParameters проверяет параметры генерации новых сессий.
func TestStoreAppliesDefaultParameters(t *testing.T) {
	store := NewStore(StoreConfig{Temperature: 0.7, TopP: 0.5})
	defer store.Close()

	temperature, topP := store.GetOrCreate(uuid.New()).Parameters()
	if temperature != 0.7 || topP != 0.5 {
		t.Fatalf("expected 0.7/0.5, got %v/%v", temperature, topP)
	}
}
