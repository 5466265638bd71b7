package storage

import (
	"errors"
	"time"

	"postbot/internal/poster"
)

var ErrDisabled = errors.New("storage disabled")

// HistoryMaxEntries caps the history log; the oldest entry is evicted
// first whenever a write would exceed it.
const HistoryMaxEntries = 100

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free JSON file backend (default)
//   - "memory": in-process only (dry runs, tests)
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// HistoryEntry records one full dispatch of a piece of content across all
// accounts. At is the creation time of the dispatch, not of individual
// attempts. Entries are never mutated after append, only evicted.
type HistoryEntry struct {
	At       time.Time       `json:"at"`
	Text     string          `json:"text"`
	Accounts []poster.Result `json:"accounts"`
}

// FailedPost is a post that exhausted its transient-retry budget. It is
// removed only by an exact (AccountNumber, Text) match after a later
// successful replay.
type FailedPost struct {
	At            time.Time `json:"at"`
	Text          string    `json:"text"`
	AccountNumber int       `json:"account_number"`
}
