package sessions

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"justdraft/internal/auth"
	"justdraft/internal/extract"
)

// MemStore keeps sessions in process memory only. Results and history
// disappear with the process, matching the tool's ephemeral data model.
type MemStore struct {
	mu       sync.RWMutex
	secret   string
	sessions map[string]*Session
}

// NewMemStore creates a MemStore whose sessions gate on secret.
func NewMemStore(secret string) *MemStore {
	return &MemStore{
		secret:   secret,
		sessions: make(map[string]*Session),
	}
}

func generateSessionID() string {
	u := uuid.New().String()
	return "sess_" + strings.ReplaceAll(u[:8], "-", "")
}

// Create registers a new active session with a fresh auth gate.
func (ms *MemStore) Create() (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:        generateSessionID(),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    SessionActive,
		gate:      auth.NewGate(ms.secret),
	}
	ms.sessions[s.ID] = s
	return s, nil
}

// Get returns a session by ID.
func (ms *MemStore) Get(id string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	s, ok := ms.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return s, nil
}

// List returns all sessions sorted by UpdatedAt descending.
func (ms *MemStore) List() ([]*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	sessions := make([]*Session, 0, len(ms.sessions))
	for _, s := range ms.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Close marks a session as closed.
func (ms *MemStore) Close(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	s.Status = SessionClosed
	s.UpdatedAt = time.Now()
	return nil
}

// Reset clears the current result. History and the auth gate keep their
// state.
func (ms *MemStore) Reset(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	s.current = extract.Result{}
	s.UpdatedAt = time.Now()
	return nil
}

// AppendHistory records a completed extraction.
func (ms *MemStore) AppendHistory(id string, entry HistoryEntry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.history = append(s.history, entry)
	s.UpdatedAt = time.Now()
	return nil
}

// History returns the session's extraction history, oldest first.
func (ms *MemStore) History(id string) ([]HistoryEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	s, ok := ms.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out, nil
}

// SetCurrent replaces the session's current result.
func (ms *MemStore) SetCurrent(id string, result extract.Result) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	s.current = result
	s.UpdatedAt = time.Now()
	return nil
}

// Current returns the session's current result.
func (ms *MemStore) Current(id string) (extract.Result, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	s, ok := ms.sessions[id]
	if !ok {
		return extract.Result{}, fmt.Errorf("session %s not found", id)
	}
	return s.current, nil
}

var _ Store = (*MemStore)(nil)
