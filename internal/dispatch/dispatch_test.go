package dispatch

import (
	"context"
	"testing"
	"time"

	"postbot/internal/accounts"
	"postbot/internal/pacing"
	"postbot/internal/poster"
	"postbot/internal/storage"
	"postbot/internal/twitter"
	logx "postbot/pkg/logx"
)

// fakePublisher fails with the queued errors in order, then succeeds.
type fakePublisher struct {
	errs  []error
	calls int
	texts []string
}

func (p *fakePublisher) Publish(ctx context.Context, text string) (twitter.PostResult, error) {
	p.calls++
	p.texts = append(p.texts, text)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return twitter.PostResult{}, err
		}
	}
	return twitter.PostResult{ID: "id", URL: "url"}, nil
}

type spySleeper struct {
	sleeps []time.Duration
}

func (s *spySleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

type fixture struct {
	registry   *accounts.Registry
	store      *storage.Memory
	dispatcher *Dispatcher
	publishers map[string]*fakePublisher // keyed by app key
	sleeper    *spySleeper
}

// newFixture wires a dispatcher over n accounts with scripted publishers.
// errsByAccount maps account number to that publisher's error script.
func newFixture(t *testing.T, n int, errsByAccount map[int][]error, malformed map[int]bool) *fixture {
	t.Helper()

	f := &fixture{
		store:      storage.NewMemory(),
		publishers: make(map[string]*fakePublisher),
		sleeper:    &spySleeper{},
	}

	src := make(accounts.StaticSource, 0, n)
	for i := 1; i <= n; i++ {
		cred := twitter.Credential{
			AppKey:       appKey(i),
			AppSecret:    "s",
			AccessToken:  "t",
			AccessSecret: "ts",
		}
		if malformed[i] {
			cred.AccessSecret = ""
		}
		src = append(src, cred)
		f.publishers[cred.AppKey] = &fakePublisher{errs: errsByAccount[i]}
	}

	f.registry = accounts.NewRegistry(src, func(c twitter.Credential) twitter.Publisher {
		return f.publishers[c.AppKey]
	}, logx.Nop())

	machine := poster.NewMachine(poster.Config{}, f.sleeper, logx.Nop())
	f.dispatcher = New(f.registry, f.store, machine, pacing.NewCalculator(), logx.Nop(), Options{
		Budget:  1,
		Sleeper: f.sleeper,
	})
	return f
}

func appKey(i int) string { return string(rune('a' + i - 1)) }

func resolveAll(t *testing.T, f *fixture) []*accounts.Handle {
	t.Helper()
	handles, err := f.registry.ResolveAll(context.Background())
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	return handles
}

func TestDispatchPostsToAllAccountsInOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3, nil, nil)
	ctx := context.Background()

	results := f.dispatcher.Dispatch(ctx, "hello", resolveAll(t, f))
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, r := range results {
		if r.AccountNumber != i+1 {
			t.Fatalf("result %d is for account %d, dispatch order broken", i, r.AccountNumber)
		}
		if !r.Success {
			t.Fatalf("account %d failed: %+v", r.AccountNumber, r)
		}
	}

	history, err := f.store.ReadHistory(ctx)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d history entries, want 1 aggregate", len(history))
	}
	if len(history[0].Accounts) != 3 || history[0].Text != "hello" {
		t.Fatalf("unexpected aggregate entry: %+v", history[0])
	}

	// Pacing suspends between accounts only: 2 gaps for 3 accounts.
	if len(f.sleeper.sleeps) != 2 {
		t.Fatalf("got %d pacing sleeps, want 2", len(f.sleeper.sleeps))
	}
	for _, d := range f.sleeper.sleeps {
		if d < 24*time.Second || d > 36*time.Second {
			t.Fatalf("pacing delay %v outside jittered default band", d)
		}
	}
}

func TestDispatchFailureDoesNotAbortOtherAccounts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3, map[int][]error{
		2: {&twitter.ProviderError{Code: 32, Message: "bad auth"}},
	}, nil)
	ctx := context.Background()

	results := f.dispatcher.Dispatch(ctx, "hello", resolveAll(t, f))
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Success != true || results[2].Success != true {
		t.Fatal("healthy accounts must complete")
	}
	if results[1].Success {
		t.Fatal("account 2 should have failed")
	}

	failed, err := f.store.ListFailed(ctx)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("got %d failed posts, want 1", len(failed))
	}
	if failed[0].AccountNumber != 2 || failed[0].Text != "hello" {
		t.Fatalf("unexpected failed post: %+v", failed[0])
	}
}

func TestDispatchSkipsUnresolvableAccount(t *testing.T) {
	t.Parallel()
	// Account 2's credential is malformed: ResolveAll drops it, the
	// dispatch covers accounts 1 and 3 only.
	f := newFixture(t, 3, nil, map[int]bool{2: true})
	ctx := context.Background()

	handles := resolveAll(t, f)
	if len(handles) != 2 {
		t.Fatalf("got %d handles, want 2", len(handles))
	}

	results := f.dispatcher.Dispatch(ctx, "hello", handles)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].AccountNumber != 1 || results[1].AccountNumber != 3 {
		t.Fatalf("unexpected accounts: %+v", results)
	}

	failed, err := f.store.ListFailed(ctx)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("unresolved account must not reach the failure queue, got %+v", failed)
	}
}

func TestDispatchRateLimitExhaustionQueuesOriginalText(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1, map[int][]error{
		1: {
			&twitter.ProviderError{Code: 88, Message: "Rate limit exceeded"},
			&twitter.ProviderError{Code: 88, Message: "Rate limit exceeded"},
		},
	}, nil)
	ctx := context.Background()

	results := f.dispatcher.Dispatch(ctx, "hello", resolveAll(t, f))
	if results[0].Success {
		t.Fatal("expected failure after budget exhaustion")
	}

	failed, _ := f.store.ListFailed(ctx)
	if len(failed) != 1 || failed[0].Text != "hello" {
		t.Fatalf("expected one failed post with the original text, got %+v", failed)
	}
}

func TestDispatchHistoryNeverExceedsCap(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1, nil, nil)
	ctx := context.Background()
	handles := resolveAll(t, f)

	for i := 0; i < storage.HistoryMaxEntries+10; i++ {
		f.dispatcher.Dispatch(ctx, "hello", handles)
	}
	history, err := f.store.ReadHistory(ctx)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(history) != storage.HistoryMaxEntries {
		t.Fatalf("history has %d entries, cap is %d", len(history), storage.HistoryMaxEntries)
	}
}
