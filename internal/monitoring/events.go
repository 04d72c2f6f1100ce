// Package monitoring records run events to a JSONL file.
//
// DESIGN: One JSON object per line, appended immediately after each event so
// the log is useful in real time. A disabled writer is a no-op, which keeps
// call sites unconditional.
package monitoring

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harforge/harforge/internal/config"
	"github.com/harforge/harforge/internal/utils"
)

// Event names recorded over a run's lifetime.
const (
	EventRunStart  = "run_start"
	EventSyncStart = "sync_start"
	EventSyncPass  = "sync_pass"
	EventSyncError = "sync_error"
	EventRunDone   = "run_done"
)

// RunEvent is one entry in the run event log.
type RunEvent struct {
	Time    time.Time `json:"time"`
	Event   string    `json:"event"`
	RunID   string    `json:"run_id"`
	Model   string    `json:"model,omitempty"`
	Dest    string    `json:"dest,omitempty"`
	Files   int       `json:"files,omitempty"`
	CostUSD float64   `json:"cost_usd,omitempty"`
	Err     string    `json:"error,omitempty"`
}

// EventWriter appends run events to a JSONL file.
type EventWriter struct {
	path string
	mu   sync.Mutex
}

// NewEventWriter creates a writer appending to path, ensuring the parent
// directory exists. An empty path yields a disabled writer.
func NewEventWriter(path string) (*EventWriter, error) {
	if path == "" {
		return &EventWriter{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), config.DirPerm); err != nil {
		return nil, err
	}
	return &EventWriter{path: path}, nil
}

// Record appends one event. Failures are logged, not returned - telemetry
// must never fail a run.
func (w *EventWriter) Record(ev RunEvent) {
	if w.path == "" {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	// No HTML escaping: goals and error strings stay readable in the log.
	data, err := utils.MarshalNoEscape(ev)
	if err != nil {
		log.Warn().Err(err).Msg("marshal run event")
		return
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, config.FilePerm)
	if err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("open run event log")
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("append run event")
	}
}
