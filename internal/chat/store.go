package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultIdleTimeout   = 24 * time.Hour
	DefaultSweepInterval = time.Hour
	DefaultMaxSessions   = 1000
)

type StoreConfig struct {
	Greeting      string
	Temperature   float64
	TopP          float64
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

type storeEntry struct {
	session    *Session
	lastAccess time.Time
}

// Store keeps chat sessions in memory, keyed by the browser session ID.
// Idle sessions are swept periodically; the least recently used one is
// evicted when the store is full.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*storeEntry
	cfg      StoreConfig
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStore создает хранилище сессий и запускает фоновую очистку.
func NewStore(cfg StoreConfig) *Store {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		sessions: make(map[uuid.UUID]*storeEntry),
		cfg:      cfg,
		now:      time.Now,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go s.sweepLoop(ctx, cfg.SweepInterval)
	} else {
		close(s.done)
	}

	return s
}

// GetOrCreate возвращает сессию по ID, создавая ее при отсутствии.
func (s *Store) GetOrCreate(id uuid.UUID) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.sessions[id]; ok {
		entry.lastAccess = now
		return entry.session
	}

	if len(s.sessions) >= s.cfg.MaxSessions {
		s.evictLRULocked()
	}

	session := NewSession(id, s.cfg.Greeting)
	if s.cfg.Temperature > 0 && s.cfg.TopP > 0 {
		// Out-of-range defaults keep the built-in values.
		_ = session.SetParameters(s.cfg.Temperature, s.cfg.TopP)
	}
	s.sessions[id] = &storeEntry{session: session, lastAccess: now}
	return session
}

// Get возвращает существующую сессию.
func (s *Store) Get(id uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	entry.lastAccess = s.now()
	return entry.session, true
}

func (s *Store) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// Len возвращает количество сессий.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep удаляет неактивные сессии и возвращает их количество.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.IdleTimeout)
	removed := 0
	for id, entry := range s.sessions {
		if entry.session.isResponding() {
			continue
		}
		if lastSeen(entry).Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

// Close останавливает фоновую очистку.
func (s *Store) Close() {
	s.cancel()
	<-s.done
}

func (s *Store) sweepLoop(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				slog.Info("idle chat sessions removed", slog.Int("count", removed), slog.Int("remaining", s.Len()))
			}
		}
	}
}

func (s *Store) evictLRULocked() {
	var (
		oldestID uuid.UUID
		oldest   time.Time
		found    bool
	)

	for id, entry := range s.sessions {
		if entry.session.isResponding() {
			continue
		}
		seen := lastSeen(entry)
		if !found || seen.Before(oldest) {
			oldestID, oldest, found = id, seen, true
		}
	}

	if found {
		delete(s.sessions, oldestID)
	}
}

func lastSeen(entry *storeEntry) time.Time {
	if activity := entry.session.lastActivity(); activity.After(entry.lastAccess) {
		return activity
	}

	return entry.lastAccess
}
