package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store used for dry runs and tests.
type Memory struct {
	mu      sync.Mutex
	history []HistoryEntry
	failed  []FailedPost
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Close() error { return nil }

func (m *Memory) AppendHistory(ctx context.Context, e HistoryEntry) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = capHistory(append(m.history, e))
	return nil
}

func (m *Memory) ReadHistory(ctx context.Context) ([]HistoryEntry, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history))
	copy(out, m.history)
	return out, nil
}

func (m *Memory) EnqueueFailed(ctx context.Context, p FailedPost) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, p)
	return nil
}

func (m *Memory) ListFailed(ctx context.Context) ([]FailedPost, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FailedPost, len(m.failed))
	copy(out, m.failed)
	return out, nil
}

func (m *Memory) RemoveFailed(ctx context.Context, accountNumber int, text string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.failed[:0]
	for _, p := range m.failed {
		if p.AccountNumber == accountNumber && p.Text == text {
			continue
		}
		kept = append(kept, p)
	}
	m.failed = kept
	return nil
}
