// Package sessions provides per-browser session state for Just Draft.
package sessions

import (
	"time"

	"justdraft/internal/auth"
	"justdraft/internal/extract"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// HistoryEntry records one past extraction: a short summary of the input
// and the result it produced.
type HistoryEntry struct {
	Summary   string         `json:"summary"`
	Result    extract.Result `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
}

// Session holds everything scoped to one user's visit: the auth gate,
// the current result and the extraction history. Nothing outlives the
// process.
type Session struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Status    SessionStatus `json:"status"`

	gate    *auth.Gate
	current extract.Result
	history []HistoryEntry
}

// Gate returns the session's auth gate.
func (s *Session) Gate() *auth.Gate { return s.gate }

// Store defines the session lifecycle interface.
type Store interface {
	Create() (*Session, error)
	Get(id string) (*Session, error)
	List() ([]*Session, error)
	Close(id string) error

	// Reset clears the session's current result. History and the gate
	// state are preserved: past extractions stay listed and the user is
	// not asked to log in again.
	Reset(id string) error

	AppendHistory(id string, entry HistoryEntry) error
	History(id string) ([]HistoryEntry, error)
	SetCurrent(id string, result extract.Result) error
	Current(id string) (extract.Result, error)
}
