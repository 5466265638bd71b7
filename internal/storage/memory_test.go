package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryHistoryCap(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < HistoryMaxEntries*2; i++ {
		if err := m.AppendHistory(ctx, HistoryEntry{At: time.Now(), Text: "x"}); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}
	got, err := m.ReadHistory(ctx)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(got) != HistoryMaxEntries {
		t.Fatalf("got %d entries, want %d", len(got), HistoryMaxEntries)
	}
}

func TestMemoryFailedQueue(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	if err := m.EnqueueFailed(ctx, FailedPost{AccountNumber: 1, Text: "a"}); err != nil {
		t.Fatalf("EnqueueFailed: %v", err)
	}
	if err := m.EnqueueFailed(ctx, FailedPost{AccountNumber: 1, Text: "a"}); err != nil {
		t.Fatalf("EnqueueFailed: %v", err)
	}
	if err := m.RemoveFailed(ctx, 1, "a"); err != nil {
		t.Fatalf("RemoveFailed: %v", err)
	}
	got, err := m.ListFailed(ctx)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("removal must match every exact duplicate, %d left", len(got))
	}
}
