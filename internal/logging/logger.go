// Package logging provides leveled logging and transition tracing for the
// tempering engine. It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TransitionLogger for structured JSONL traces of level-change
//     attempts (transitions.jsonl in the run directory)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for full per-attempt
// content logging. At this level the complete probability vector of every
// attempt is included.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// AttemptRecord is one level-change attempt as it appears in the trace
// file. Time is stamped at write; Probability is the mass the sampler
// assigned to the level the walker ended the attempt on.
type AttemptRecord struct {
	Time         string  `json:"time"`
	Step         int     `json:"step"`
	Proposal     int     `json:"proposal"`
	Accepted     bool    `json:"accepted"`
	Level        int     `json:"level"`
	Probability  float64 `json:"probability"`
	UpdateFactor float64 `json:"factor"`
}

// TransitionLogger writes level-change attempts to a JSONL file. It is
// safe for concurrent use. A nil TransitionLogger is safe to use; all
// methods are no-ops on nil receiver.
type TransitionLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewTransitionLogger creates a transition logger writing to
// dir/transitions.jsonl. At "info" level (the default), returns nil — no
// file is created. At "debug" or "trace" level, the file is opened for
// append. Returns nil if the file cannot be opened. All methods are
// nil-safe.
func NewTransitionLogger(dir string, level string) *TransitionLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "transitions.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TransitionLogger{file: f}
}

// Log writes one attempt as a single JSONL line, stamping rec.Time with
// the current UTC time. Safe to call on nil receiver.
func (tl *TransitionLogger) Log(rec AttemptRecord) {
	if tl == nil || tl.file == nil {
		return
	}
	rec.Time = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	data = append(data, '\n')

	tl.mu.Lock()
	defer tl.mu.Unlock()
	_, _ = tl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (tl *TransitionLogger) Close() {
	if tl == nil || tl.file == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.file.Close()
	tl.file = nil
}
