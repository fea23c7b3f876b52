package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"healthdesk/internal/datatable"
)

// prefsDelay batches the burst of writes a column drag produces.
const prefsDelay = 400 * time.Millisecond

// TablePrefs stores per-table UI preferences.
type TablePrefs struct {
	Widths   datatable.Widths `json:"widths,omitempty"`
	PageSize int              `json:"page_size,omitempty"`
}

// UIPreferences stores persisted app preferences keyed by entity name.
type UIPreferences struct {
	Tables map[string]TablePrefs `json:"tables"`
}

func defaultUIPreferences() UIPreferences {
	return UIPreferences{Tables: map[string]TablePrefs{}}
}

func loadUIPreferences(path string) UIPreferences {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultUIPreferences()
	}

	var prefs UIPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return defaultUIPreferences()
	}
	if prefs.Tables == nil {
		prefs.Tables = map[string]TablePrefs{}
	}
	return prefs
}

func saveUIPreferences(path string, prefs UIPreferences) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return nil
}

// prefsWriter holds preferences in memory and writes them to disk once
// updates have been quiet for delay.
type prefsWriter struct {
	mu     sync.Mutex
	path   string
	delay  time.Duration
	prefs  UIPreferences
	timer  *time.Timer
	logger *zap.Logger
}

func newPrefsWriter(path string, delay time.Duration, logger *zap.Logger) *prefsWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &prefsWriter{
		path:   path,
		delay:  delay,
		prefs:  loadUIPreferences(path),
		logger: logger,
	}
}

// Table returns a copy of the preferences for name.
func (w *prefsWriter) Table(name string) TablePrefs {
	w.mu.Lock()
	defer w.mu.Unlock()
	tp := w.prefs.Tables[name]
	if tp.Widths != nil {
		tp.Widths = tp.Widths.Clone()
	}
	return tp
}

// UpdateTable edits the preferences for name and schedules a write.
func (w *prefsWriter) UpdateTable(name string, fn func(*TablePrefs)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tp := w.prefs.Tables[name]
	fn(&tp)
	w.prefs.Tables[name] = tp

	if w.path == "" {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		if err := w.Flush(); err != nil {
			w.logger.Warn("failed to persist ui preferences", zap.Error(err))
		}
	})
}

// Flush cancels any pending write and writes now.
func (w *prefsWriter) Flush() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.path == "" {
		w.mu.Unlock()
		return nil
	}
	data := UIPreferences{Tables: make(map[string]TablePrefs, len(w.prefs.Tables))}
	for k, v := range w.prefs.Tables {
		data.Tables[k] = v
	}
	w.mu.Unlock()

	return saveUIPreferences(w.path, data)
}
