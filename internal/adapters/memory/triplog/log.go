package triplog

import (
	"context"
	"sync"

	"github.com/eastbay-carpool/tokenbot/internal/ports/out/triplog"
)

// Log is an in-memory implementation of triplog.Log.
// It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []triplog.Entry
}

func NewLog() *Log { return &Log{} }

func (l *Log) Append(ctx context.Context, e triplog.Entry) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

// Entries returns a snapshot of appended entries, oldest first.
func (l *Log) Entries() []triplog.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]triplog.Entry(nil), l.entries...)
}
