package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"justdraft/internal/events"
)

func newTestLog(t *testing.T) *UsageLog {
	t.Helper()
	ul, err := NewUsageLog(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewUsageLog: %v", err)
	}
	t.Cleanup(func() { ul.Close() })
	return ul
}

func TestRecordAndRecent(t *testing.T) {
	ul := newTestLog(t)

	err := ul.Record(UsageEntry{
		SessionID:        "sess_1",
		Model:            "gemini-1.5-flash",
		PromptTokens:     120,
		CompletionTokens: 45,
		DurationMS:       830,
		OK:               true,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := ul.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.Model != "gemini-1.5-flash" || e.PromptTokens != 120 || e.CompletionTokens != 45 || !e.OK {
		t.Errorf("entry = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("missing timestamp")
	}
}

func TestTotalsGroupByModel(t *testing.T) {
	ul := newTestLog(t)

	for i := 0; i < 3; i++ {
		ul.Record(UsageEntry{Model: "gemini-1.5-flash", PromptTokens: 10, CompletionTokens: 5, OK: true})
	}
	ul.Record(UsageEntry{Model: "gemini-3-flash-preview", OK: false, Error: "503"})

	totals, err := ul.Totals()
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("totals = %+v", totals)
	}
	if totals[0].Model != "gemini-1.5-flash" || totals[0].Calls != 3 || totals[0].PromptTokens != 30 {
		t.Errorf("flash totals = %+v", totals[0])
	}
	if totals[1].Failures != 1 {
		t.Errorf("preview totals = %+v", totals[1])
	}
}

func TestAttachRecordsBusEvents(t *testing.T) {
	ul := newTestLog(t)
	bus := events.NewBus(16)
	defer bus.Close()

	ul.Attach(bus)
	bus.Publish(events.ModelCall("sess_1", "gemini-1.5-flash", 7, 3, 250*time.Millisecond, nil))
	bus.Publish(events.ModelCall("sess_1", "gemini-3-flash-preview", 0, 0, 90*time.Millisecond, errors.New("boom")))

	deadline := time.Now().Add(2 * time.Second)
	var entries []UsageEntry
	for {
		var err error
		entries, err = ul.Recent(10)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(entries) == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}

	// Recent returns newest first.
	if entries[0].Model != "gemini-3-flash-preview" || entries[0].OK || entries[0].Error != "boom" {
		t.Errorf("failed call entry = %+v", entries[0])
	}
	if entries[1].DurationMS != 250 {
		t.Errorf("duration = %d", entries[1].DurationMS)
	}
}
