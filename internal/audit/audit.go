// Package audit is a write-behind fill-report trail. It is a pure sink:
// nothing in this pipeline reads it back at runtime, and a failure to write
// never blocks or fails a trade.
//
// Adapted from the teacher's crash-safe position store: that package
// persists one JSON file per market, replaced atomically on every save
// (write-to-.tmp, then rename) so a position snapshot is never read
// half-written. This package keeps that same atomic-replace discipline but
// repurposes it for append-only logging: each day's fills accumulate in one
// JSON-lines file, and every append rewrites the file through the same
// temp-then-rename sequence rather than truncating it in place.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

// Log appends fill reports to a rotating JSON-lines file under dir, one
// file per UTC calendar day.
type Log struct {
	dir string
	mu  sync.Mutex
}

// Open creates an audit log backed by dir, creating it if necessary.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &Log{dir: dir}, nil
}

// Close is a no-op for file-based storage, matching the teacher's store.
func (l *Log) Close() error { return nil }

// Append records a fill report, fire-and-forget. Errors are returned so the
// caller can log them, but Shield never treats a write failure as a reason
// to change risk-control behavior.
func (l *Log) Append(report types.FillReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal fill report: %w", err)
	}
	line = append(line, '\n')

	path := l.pathForDay(time.Now().UTC())
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read audit log: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(existing, line...), 0o600); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return os.Rename(tmp, path)
}

func (l *Log) pathForDay(day time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("fills_%s.jsonl", day.Format("2006-01-02")))
}
