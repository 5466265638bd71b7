package dispatch

import (
	"context"

	"postbot/internal/poster"
	"postbot/internal/storage"
	logx "postbot/pkg/logx"
)

// Sweep replays queued failed posts grouped by account, removing each
// entry on a successful replay. It reports whether any work was found.
// Failures stay queued for the next sweep; an unresolvable account skips
// its whole group with a warning.
func (d *Dispatcher) Sweep(ctx context.Context) bool {
	posts, err := d.store.ListFailed(ctx)
	if err != nil {
		d.log.Warn("failed to read failure queue", logx.Err(err))
		return false
	}
	if len(posts) == 0 {
		return false
	}

	// Group by account for replay locality, keeping first-seen order.
	groups := make(map[int][]storage.FailedPost)
	var order []int
	for _, p := range posts {
		if _, ok := groups[p.AccountNumber]; !ok {
			order = append(order, p.AccountNumber)
		}
		groups[p.AccountNumber] = append(groups[p.AccountNumber], p)
	}

	d.log.Info("retry sweep starting",
		logx.Int("queued", len(posts)), logx.Int("accounts", len(order)))

	replayed := 0
	for _, account := range order {
		h, err := d.registry.Resolve(ctx, account)
		if err != nil {
			d.log.Warn("skipping failed-post group: account unresolved",
				logx.Int("account", account), logx.Err(err))
			continue
		}

		for _, p := range groups[account] {
			if replayed > 0 {
				if err := d.sleep.Sleep(ctx, sweepPause); err != nil {
					d.log.Warn("retry sweep interrupted", logx.Err(err))
					return true
				}
			}
			replayed++

			res := d.machine.Attempt(ctx, p.Text, h, d.budget)
			entry := storage.HistoryEntry{At: d.now(), Text: p.Text, Accounts: []poster.Result{res}}
			if err := d.store.AppendHistory(ctx, entry); err != nil {
				d.log.Warn("failed to append sweep history", logx.Err(err))
			}

			if !res.Success {
				d.log.Warn("replay failed, leaving post queued",
					logx.Int("account", account),
					logx.String("error_kind", string(res.ErrorKind)))
				continue
			}

			if err := d.store.RemoveFailed(ctx, p.AccountNumber, p.Text); err != nil {
				// At-least-once: the entry may replay again next sweep, but
				// it is never silently dropped.
				d.log.Warn("replay succeeded but removal failed; post may replay again",
					logx.Err(err), logx.Int("account", account))
				continue
			}
			d.log.Info("replayed queued post",
				logx.Int("account", account), logx.String("post_id", res.PostID))
		}
	}
	return true
}
