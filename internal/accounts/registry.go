// Package accounts resolves posting credentials into live publish handles.
//
// The registry is an explicit object owned by the run (no package-level
// pool) so tests can run side by side and tear down cleanly.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"postbot/internal/twitter"
	logx "postbot/pkg/logx"
)

// ErrAccountNotFound reports that no credential exists for the requested
// account number. Callers skip the account; it never aborts a run.
var ErrAccountNotFound = errors.New("accounts: account not found")

// Handle is a ready-to-use posting identity: one credential bound to a
// live publisher. Handles are memoized per account number for the run.
type Handle struct {
	Number     int
	Credential twitter.Credential
	Publisher  twitter.Publisher
}

// PublisherFactory builds the publish transport for one credential.
type PublisherFactory func(twitter.Credential) twitter.Publisher

type Registry struct {
	source Source
	build  PublisherFactory
	log    logx.Logger

	mu   sync.Mutex
	pool map[int]*Handle
}

func NewRegistry(source Source, build PublisherFactory, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{
		source: source,
		build:  build,
		log:    log,
		pool:   make(map[int]*Handle),
	}
}

// ResolveAll loads the credential source and builds a handle per entry.
// Malformed credentials are dropped with a warning, never propagated; the
// returned error is reserved for a source that cannot be read at all.
func (r *Registry) ResolveAll(ctx context.Context) ([]*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	creds, err := r.source.Load()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]*Handle, 0, len(creds))
	for _, cred := range creds {
		if !cred.Valid() {
			r.log.Warn("dropping malformed credential", logx.Int("account", cred.AccountNumber))
			continue
		}
		handles = append(handles, r.handleLocked(cred))
	}
	return handles, nil
}

// Resolve returns the pooled handle for the account, lazily rescanning the
// credential source on a miss. A successful lazy resolve stays pooled for
// the remainder of the run.
func (r *Registry) Resolve(ctx context.Context, accountNumber int) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if h, ok := r.pool[accountNumber]; ok {
		r.mu.Unlock()
		return h, nil
	}
	r.mu.Unlock()

	creds, err := r.source.Load()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have resolved it while we were reading the source.
	if h, ok := r.pool[accountNumber]; ok {
		return h, nil
	}
	for _, cred := range creds {
		if cred.AccountNumber != accountNumber {
			continue
		}
		if !cred.Valid() {
			break
		}
		return r.handleLocked(cred), nil
	}
	return nil, fmt.Errorf("account #%d: %w", accountNumber, ErrAccountNotFound)
}

// Pooled reports how many handles are currently memoized.
func (r *Registry) Pooled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}

func (r *Registry) handleLocked(cred twitter.Credential) *Handle {
	if h, ok := r.pool[cred.AccountNumber]; ok {
		return h
	}
	h := &Handle{
		Number:     cred.AccountNumber,
		Credential: cred,
		Publisher:  r.build(cred),
	}
	r.pool[cred.AccountNumber] = h
	r.log.Debug("pooled account handle", logx.Int("account", cred.AccountNumber))
	return h
}
