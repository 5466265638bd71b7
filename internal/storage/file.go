package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "postbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.history.json (full dispatch history, capped)
//   - <prefix>.failed.json  (queued failed posts)
//
// Every write is a read-modify-write against the whole file, flushed via a
// temp file + rename so a crash never leaves a half-written store. A crash
// between a replay success and the failed-file rewrite re-delivers the post
// on the next sweep (at-least-once), never drops it.
type fileStore struct {
	log logx.Logger

	mu          sync.Mutex
	historyPath string
	failedPath  string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &fileStore{
		log:         log,
		historyPath: prefix + ".history.json",
		failedPath:  prefix + ".failed.json",
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) AppendHistory(ctx context.Context, e HistoryEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []HistoryEntry
	if err := readJSONFile(s.historyPath, &entries); err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	entries = capHistory(append(entries, e))
	return writeJSONFile(s.historyPath, entries)
}

func (s *fileStore) ReadHistory(ctx context.Context) ([]HistoryEntry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []HistoryEntry
	if err := readJSONFile(s.historyPath, &entries); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}

func (s *fileStore) EnqueueFailed(ctx context.Context, p FailedPost) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []FailedPost
	if err := readJSONFile(s.failedPath, &posts); err != nil {
		return fmt.Errorf("read failed queue: %w", err)
	}
	posts = append(posts, p)
	return writeJSONFile(s.failedPath, posts)
}

func (s *fileStore) ListFailed(ctx context.Context) ([]FailedPost, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []FailedPost
	if err := readJSONFile(s.failedPath, &posts); err != nil {
		return nil, fmt.Errorf("read failed queue: %w", err)
	}
	return posts, nil
}

func (s *fileStore) RemoveFailed(ctx context.Context, accountNumber int, text string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []FailedPost
	if err := readJSONFile(s.failedPath, &posts); err != nil {
		return fmt.Errorf("read failed queue: %w", err)
	}
	kept := posts[:0]
	for _, p := range posts {
		if p.AccountNumber == accountNumber && p.Text == text {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == len(posts) {
		return nil
	}
	return writeJSONFile(s.failedPath, kept)
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func writeJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
