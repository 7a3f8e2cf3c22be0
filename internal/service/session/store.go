package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzhao28/agentchat/internal/model/chat"
)

// Store keeps bounded, in-memory conversation histories keyed by session ID.
// Sessions are created lazily on first reference and live for the process
// lifetime. Appends within one session are serialized; snapshots are
// copy-on-read and safe to iterate while writes proceed.
type Store struct {
	mu       sync.RWMutex
	capacity int
	sessions map[string]*history
}

type history struct {
	mu    sync.Mutex
	turns []chat.Turn
}

// NewStore returns a Store whose sessions hold at most capacity turns.
// Non-positive capacities fall back to 20.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 20
	}
	return &Store{
		capacity: capacity,
		sessions: make(map[string]*history),
	}
}

// Capacity returns the per-session turn bound.
func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) get(sessionID string) *history {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.sessions[sessionID]; ok {
		return h
	}
	h = &history{turns: make([]chat.Turn, 0, s.capacity)}
	s.sessions[sessionID] = h
	return h
}

// Append adds a turn to the tail of the session history, evicting the oldest
// turn first when the session is at capacity. Missing metadata is filled in.
func (s *Store) Append(sessionID string, turn chat.Turn) chat.Turn {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	h := s.get(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.turns) >= s.capacity {
		overflow := len(h.turns) - s.capacity + 1
		h.turns = append(h.turns[:0], h.turns[overflow:]...)
	}
	h.turns = append(h.turns, turn)
	return turn
}

// Snapshot returns a copy of the session history in chronological order.
func (s *Store) Snapshot(sessionID string) []chat.Turn {
	h := s.get(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()

	copied := make([]chat.Turn, len(h.turns))
	copy(copied, h.turns)
	return copied
}

// Len reports how many turns the session currently holds.
func (s *Store) Len(sessionID string) int {
	h := s.get(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
