package accounts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"postbot/internal/twitter"
	logx "postbot/pkg/logx"
)

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, text string) (twitter.PostResult, error) {
	return twitter.PostResult{ID: "0"}, nil
}

func nopFactory(twitter.Credential) twitter.Publisher { return nopPublisher{} }

func fullCred(tag string) twitter.Credential {
	return twitter.Credential{
		AppKey:       "k-" + tag,
		AppSecret:    "s-" + tag,
		AccessToken:  "t-" + tag,
		AccessSecret: "ts-" + tag,
	}
}

func TestResolveAllDropsMalformed(t *testing.T) {
	t.Parallel()
	src := StaticSource{
		fullCred("a"),
		{AppKey: "only-key"}, // malformed: missing the rest of the quad
		fullCred("c"),
	}
	r := NewRegistry(src, nopFactory, logx.Nop())

	handles, err := r.ResolveAll(context.Background())
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("got %d handles, want 2", len(handles))
	}
	if handles[0].Number != 1 || handles[1].Number != 3 {
		t.Fatalf("unexpected account numbers: %d, %d", handles[0].Number, handles[1].Number)
	}
}

func TestResolveLazyAndMemoized(t *testing.T) {
	t.Parallel()
	src := StaticSource{fullCred("a"), fullCred("b")}
	r := NewRegistry(src, nopFactory, logx.Nop())

	if r.Pooled() != 0 {
		t.Fatalf("pool should start empty, has %d", r.Pooled())
	}

	h, err := r.Resolve(context.Background(), 2)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if h.Number != 2 {
		t.Fatalf("Number = %d, want 2", h.Number)
	}
	if r.Pooled() != 1 {
		t.Fatalf("pool size = %d, want 1", r.Pooled())
	}

	again, err := r.Resolve(context.Background(), 2)
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if again != h {
		t.Fatal("expected the memoized handle, got a new one")
	}
}

func TestResolveUnknownAccount(t *testing.T) {
	t.Parallel()
	r := NewRegistry(StaticSource{fullCred("a")}, nopFactory, logx.Nop())
	_, err := r.Resolve(context.Background(), 9)
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestResolveAllMemoizesForLaterResolve(t *testing.T) {
	t.Parallel()
	r := NewRegistry(StaticSource{fullCred("a")}, nopFactory, logx.Nop())
	handles, err := r.ResolveAll(context.Background())
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	h, err := r.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if h != handles[0] {
		t.Fatal("Resolve should reuse the handle built by ResolveAll")
	}
}

func TestFileSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.yaml")
	data := `- app_key: k1
  app_secret: s1
  access_token: t1
  access_secret: ts1
- app_key: k2
  app_secret: s2
  access_token: t2
  access_secret: ts2
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write accounts file: %v", err)
	}

	creds, err := FileSource{Path: path}.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("got %d credentials, want 2", len(creds))
	}
	if creds[0].AccountNumber != 1 || creds[1].AccountNumber != 2 {
		t.Fatalf("account numbers not assigned by order: %d, %d", creds[0].AccountNumber, creds[1].AccountNumber)
	}
	if creds[1].AppKey != "k2" {
		t.Fatalf("AppKey = %q, want k2", creds[1].AppKey)
	}
}
