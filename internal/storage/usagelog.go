// Package storage persists the model-call usage ledger.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"justdraft/internal/events"
)

// UsageEntry is one recorded model call.
type UsageEntry struct {
	Timestamp        time.Time
	SessionID        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	DurationMS       int64
	OK               bool
	Error            string
}

// UsageTotals aggregates the ledger per model.
type UsageTotals struct {
	Model            string
	Calls            int
	Failures         int
	PromptTokens     int
	CompletionTokens int
}

// UsageLog records every model call in a SQLite database (WAL mode) so
// usage survives restarts even though session data does not.
type UsageLog struct {
	db          *sql.DB
	unsubscribe func()
}

// NewUsageLog opens (or creates) the ledger database at dbPath.
func NewUsageLog(dbPath string) (*UsageLog, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("usage db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	ul := &UsageLog{db: db}
	if err := ul.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return ul, nil
}

func (ul *UsageLog) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS model_calls (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		ts                TEXT NOT NULL,
		session_id        TEXT NOT NULL DEFAULT '',
		model             TEXT NOT NULL,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		duration_ms       INTEGER NOT NULL DEFAULT 0,
		ok                INTEGER NOT NULL DEFAULT 1,
		error             TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_model_calls_model ON model_calls(model);
	CREATE INDEX IF NOT EXISTS idx_model_calls_session ON model_calls(session_id);
	`
	_, err := ul.db.Exec(schema)
	return err
}

// Attach subscribes the ledger to model-call events on the bus.
func (ul *UsageLog) Attach(bus *events.Bus) {
	ul.unsubscribe = bus.Subscribe(ul.handleEvent, events.EventModelCall)
}

func (ul *UsageLog) handleEvent(e events.Event) {
	entry := UsageEntry{
		Timestamp: e.Timestamp,
		SessionID: e.SessionID,
	}
	if v, ok := e.Payload["model"].(string); ok {
		entry.Model = v
	}
	if v, ok := e.Payload["prompt_tokens"].(int); ok {
		entry.PromptTokens = v
	}
	if v, ok := e.Payload["completion_tokens"].(int); ok {
		entry.CompletionTokens = v
	}
	if v, ok := e.Payload["duration_ms"].(int64); ok {
		entry.DurationMS = v
	}
	if v, ok := e.Payload["ok"].(bool); ok {
		entry.OK = v
	}
	if v, ok := e.Payload["error"].(string); ok {
		entry.Error = v
	}
	_ = ul.Record(entry)
}

// Record inserts one ledger row.
func (ul *UsageLog) Record(entry UsageEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := ul.db.Exec(`
		INSERT INTO model_calls (ts, session_id, model, prompt_tokens, completion_tokens, duration_ms, ok, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.SessionID, entry.Model,
		entry.PromptTokens, entry.CompletionTokens,
		entry.DurationMS, boolToInt(entry.OK), entry.Error)
	if err != nil {
		return fmt.Errorf("record model call: %w", err)
	}
	return nil
}

// Totals aggregates calls, failures and tokens per model, sorted by
// call count descending.
func (ul *UsageLog) Totals() ([]UsageTotals, error) {
	rows, err := ul.db.Query(`
		SELECT model,
		       COUNT(*),
		       SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END),
		       SUM(prompt_tokens),
		       SUM(completion_tokens)
		FROM model_calls
		GROUP BY model
		ORDER BY COUNT(*) DESC, model`)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var totals []UsageTotals
	for rows.Next() {
		var t UsageTotals
		if err := rows.Scan(&t.Model, &t.Calls, &t.Failures, &t.PromptTokens, &t.CompletionTokens); err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Recent returns the newest n ledger entries, newest first.
func (ul *UsageLog) Recent(n int) ([]UsageEntry, error) {
	rows, err := ul.db.Query(`
		SELECT ts, session_id, model, prompt_tokens, completion_tokens, duration_ms, ok, error
		FROM model_calls
		ORDER BY id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var entries []UsageEntry
	for rows.Next() {
		var (
			e  UsageEntry
			ts string
			ok int
		)
		if err := rows.Scan(&ts, &e.SessionID, &e.Model, &e.PromptTokens, &e.CompletionTokens, &e.DurationMS, &ok, &e.Error); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.OK = ok != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close detaches from the bus and closes the database.
func (ul *UsageLog) Close() error {
	if ul.unsubscribe != nil {
		ul.unsubscribe()
	}
	if ul.db == nil {
		return nil
	}
	return ul.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
