/*
Package history keeps a small local ledger of the worker's job runs for the current report day.
*/
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	historyFileName = "run_history.json"
	historyDirName  = "cryptobriefs"
	maxEntries      = 500
)

// Entry is one finished job run.
type Entry struct {
	Job       string         `json:"job"`
	StartedAt time.Time      `json:"startedAt"`
	Duration  time.Duration  `json:"duration"`
	Counts    map[string]int `json:"counts,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Failed reports whether the run ended with an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

type History struct {
	ReportDate string
	Runs       []Entry
}

type Manager struct {
	history         History
	mutex           sync.Mutex
	historyFilePath string
	reportLocation  *time.Location
	logger          *slog.Logger
	now             func() time.Time
}

// NewManager loads the ledger from dir. An empty dir uses a directory under
// os.TempDir().
func NewManager(dir, tzName string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = filepath.Join(os.TempDir(), historyDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone name '%s': %w", tzName, err)
	}

	m := &Manager{
		historyFilePath: filepath.Join(dir, historyFileName),
		reportLocation:  loc,
		logger:          logger,
		now:             time.Now,
	}

	m.loadHistory()
	return m, nil
}

func (m *Manager) loadHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	today := m.getCurrentReportDate()
	m.history = History{ReportDate: today}

	data, err := os.ReadFile(m.historyFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug("history file not found, starting fresh", "path", m.historyFilePath)
			return
		}
		m.logger.Warn("failed to read history file, starting fresh", "path", m.historyFilePath, "error", err)
		return
	}

	var loaded History
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.logger.Warn("failed to decode history file, starting fresh", "path", m.historyFilePath, "error", err)
		return
	}

	if loaded.ReportDate == today {
		m.history = loaded
		m.logger.Debug("loaded run history", "runs", len(loaded.Runs), "date", today)
	}
}

func (m *Manager) saveHistory() {
	data, err := json.MarshalIndent(m.history, "", "  ")
	if err != nil {
		m.logger.Error("failed to encode run history", "error", err)
		return
	}

	if err := os.WriteFile(m.historyFilePath, data, 0o644); err != nil {
		m.logger.Error("failed to write run history", "path", m.historyFilePath, "error", err)
	}
}

// Record appends a run and persists the ledger. Crossing into a new report
// day discards the previous day's runs.
func (m *Manager) Record(e Entry) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if today := m.getCurrentReportDate(); m.history.ReportDate != today {
		m.history = History{ReportDate: today}
	}

	m.history.Runs = append(m.history.Runs, e)
	if n := len(m.history.Runs); n > maxEntries {
		m.history.Runs = append([]Entry(nil), m.history.Runs[n-maxEntries:]...)
	}
	m.saveHistory()
}

// Runs returns today's runs, oldest first.
func (m *Manager) Runs() []Entry {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.history.ReportDate != m.getCurrentReportDate() {
		return nil
	}
	return append([]Entry(nil), m.history.Runs...)
}

// Latest returns the most recent run of job today.
func (m *Manager) Latest(job string) (Entry, bool) {
	runs := m.Runs()
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Job == job {
			return runs[i], true
		}
	}
	return Entry{}, false
}

func (m *Manager) ReportDate() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.getCurrentReportDate()
}

func (m *Manager) HistoryFilePath() string {
	return m.historyFilePath
}

func (m *Manager) getCurrentReportDate() string {
	return m.now().In(m.reportLocation).Format("2006-01-02")
}
