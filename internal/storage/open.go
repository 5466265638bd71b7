package storage

import (
	"context"
	"errors"
	"strings"

	logx "postbot/pkg/logx"
)

// Store is the persistence API used by the dispatch loop and retry sweep.
type Store interface {
	// AppendHistory appends one dispatch record, applying the
	// HistoryMaxEntries FIFO cap.
	AppendHistory(ctx context.Context, e HistoryEntry) error
	// ReadHistory returns all retained entries, oldest first.
	ReadHistory(ctx context.Context) ([]HistoryEntry, error)

	// EnqueueFailed persists a post that exhausted its retry budget.
	EnqueueFailed(ctx context.Context, p FailedPost) error
	// ListFailed returns all queued failed posts.
	ListFailed(ctx context.Context) ([]FailedPost, error)
	// RemoveFailed deletes entries matching exactly (accountNumber, text).
	RemoveFailed(ctx context.Context, accountNumber int, text string) error

	Close() error
}

// Open initializes the configured store. The file driver is the default.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

// capHistory enforces the FIFO retention cap on an append-ordered slice.
func capHistory(entries []HistoryEntry) []HistoryEntry {
	if len(entries) > HistoryMaxEntries {
		entries = entries[len(entries)-HistoryMaxEntries:]
	}
	return entries
}
