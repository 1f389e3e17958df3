package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

type messageList struct {
	messages  []Message
	expiresAt time.Time
}

// MemoryStore is an in-process Store with lazy expiry: a read past the TTL
// deletes the entry and reports it absent.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	history  map[string]messageList
	now      func() time.Time
	logger   *slog.Logger
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		history:  make(map[string]messageList),
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store_memory")),
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	state := entry.state
	return &state, nil
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, state *State, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = memoryEntry{
		state:     *state,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Extend(_ context.Context, sessionID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		delete(s.history, sessionID)
		return false, nil
	}
	entry.expiresAt = s.now().Add(ttl)
	s.sessions[sessionID] = entry
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	delete(s.history, sessionID)
	return ok, nil
}

func (s *MemoryStore) Info(_ context.Context, sessionID string) (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	remaining := entry.expiresAt.Sub(s.now())
	if remaining <= 0 {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	return &Info{State: entry.state, RemainingTTL: remaining}, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID string, msg Message, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.history[sessionID]
	if ok && s.now().After(list.expiresAt) {
		list = messageList{}
	}
	list.messages = append(list.messages, msg)
	list.expiresAt = s.now().Add(ttl)
	s.history[sessionID] = list
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.history[sessionID]
	if !ok {
		return nil, nil
	}
	if s.now().After(list.expiresAt) {
		delete(s.history, sessionID)
		return nil, nil
	}
	out := make([]Message, len(list.messages))
	copy(out, list.messages)
	return out, nil
}
