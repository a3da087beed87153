package history

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordPersistsAcrossManagers(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, "UTC", quietLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	m.Record(Entry{Job: "ingest", StartedAt: time.Now(), Counts: map[string]int{"inserted": 3}})
	m.Record(Entry{Job: "blog", StartedAt: time.Now(), Error: "article generation failed"})
	m.Record(Entry{Job: "ingest", StartedAt: time.Now(), Counts: map[string]int{"inserted": 1}})

	if _, err := os.Stat(m.HistoryFilePath()); err != nil {
		t.Fatalf("history file not written: %v", err)
	}

	reloaded, err := NewManager(dir, "UTC", quietLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	assert.Equal(t, len(reloaded.Runs()), 3)

	latest, ok := reloaded.Latest("ingest")
	assert.Equal(t, ok, true)
	assert.Equal(t, latest.Counts["inserted"], 1)

	blog, ok := reloaded.Latest("blog")
	assert.Equal(t, ok, true)
	assert.Equal(t, blog.Failed(), true)

	_, ok = reloaded.Latest("summary")
	assert.Equal(t, ok, false)
}

func TestNewDayStartsFreshLedger(t *testing.T) {
	m, err := NewManager(t.TempDir(), "UTC", quietLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	day := time.Date(2025, 5, 1, 23, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return day }
	m.Record(Entry{Job: "ingest"})
	assert.Equal(t, len(m.Runs()), 1)

	day = day.Add(2 * time.Hour)
	assert.Equal(t, len(m.Runs()), 0)

	m.Record(Entry{Job: "blog"})
	runs := m.Runs()
	assert.Equal(t, len(runs), 1)
	assert.Equal(t, runs[0].Job, "blog")
	assert.Equal(t, m.ReportDate(), "2025-05-02")
}

func TestReportDateUsesTimezone(t *testing.T) {
	m, err := NewManager(t.TempDir(), "Australia/Sydney", quietLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	m.now = func() time.Time { return time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC) }
	assert.Equal(t, m.ReportDate(), "2025-05-02")
}

func TestCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "UTC", quietLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := os.WriteFile(m.HistoryFilePath(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewManager(dir, "UTC", quietLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	assert.Equal(t, len(reloaded.Runs()), 0)
}

func TestInvalidTimezone(t *testing.T) {
	_, err := NewManager(t.TempDir(), "Mars/Olympus", quietLogger())
	if err == nil {
		t.Fatal("expected error for invalid timezone")
	}
	assert.Equal(t, errors.Unwrap(err) != nil, true)
}

func TestLedgerIsBounded(t *testing.T) {
	m, err := NewManager(t.TempDir(), "UTC", quietLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	for i := 0; i < maxEntries+10; i++ {
		m.Record(Entry{Job: "ingest", Counts: map[string]int{"run": i}})
	}

	runs := m.Runs()
	assert.Equal(t, len(runs), maxEntries)
	assert.Equal(t, runs[0].Counts["run"], 10)
}
