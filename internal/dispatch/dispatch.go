// Package dispatch sequences the posting state machine across accounts and
// replays queued failures. Both pipelines are strictly sequential: pacing
// correctness depends on attempts being ordered in time, and the accounts
// share provider infrastructure that throttles coarser under parallel load.
package dispatch

import (
	"context"
	"time"

	"postbot/internal/accounts"
	"postbot/internal/pacing"
	"postbot/internal/poster"
	"postbot/internal/storage"
	logx "postbot/pkg/logx"
)

// sweepPause is the fixed wait between replayed failure-queue entries; the
// sweep deliberately does not use adaptive pacing.
const sweepPause = 5 * time.Second

type Dispatcher struct {
	registry *accounts.Registry
	store    storage.Store
	machine  *poster.Machine
	pacer    *pacing.Calculator
	sleep    poster.Sleeper
	log      logx.Logger

	budget int
	now    func() time.Time
}

// Options tunes a Dispatcher beyond its defaults.
type Options struct {
	// Budget is the per-account transient retry budget.
	Budget int
	// Sleeper overrides the real timer (tests).
	Sleeper poster.Sleeper
	// Now overrides the clock (tests).
	Now func() time.Time
}

func New(registry *accounts.Registry, store storage.Store, machine *poster.Machine, pacer *pacing.Calculator, log logx.Logger, opts Options) *Dispatcher {
	sleep := opts.Sleeper
	if sleep == nil {
		sleep = poster.TimerSleeper{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if pacer == nil {
		pacer = pacing.NewCalculator()
	}
	return &Dispatcher{
		registry: registry,
		store:    store,
		machine:  machine,
		pacer:    pacer,
		sleep:    sleep,
		log:      log,
		budget:   opts.Budget,
		now:      now,
	}
}

// Dispatch posts text to every handle in order, pacing between accounts,
// then appends one aggregate history entry. Per-account failures never
// abort the loop; the entry always records whatever completed.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, handles []*accounts.Handle) []poster.Result {
	start := d.now()
	results := make([]poster.Result, 0, len(handles))

	for i, h := range handles {
		res := d.machine.Attempt(ctx, text, h, d.budget)
		results = append(results, res)

		if !res.Success {
			d.recordFailure(ctx, res)
		}

		if i == len(handles)-1 {
			break
		}

		delay := d.pacer.DelayFor(handles[i+1].Number, d.historySnapshot(ctx))
		d.log.Debug("pacing before next account",
			logx.Int("next_account", handles[i+1].Number),
			logx.Duration("delay", delay))
		if err := d.sleep.Sleep(ctx, delay); err != nil {
			d.log.Warn("dispatch interrupted", logx.Err(err),
				logx.Int("completed", len(results)), logx.Int("total", len(handles)))
			break
		}
	}

	entry := storage.HistoryEntry{At: start, Text: text, Accounts: results}
	if err := d.store.AppendHistory(ctx, entry); err != nil {
		d.log.Warn("failed to append history", logx.Err(err))
	}
	return results
}

// historySnapshot reads the freshest history; a read failure degrades to
// an empty window rather than aborting pacing.
func (d *Dispatcher) historySnapshot(ctx context.Context) []storage.HistoryEntry {
	history, err := d.store.ReadHistory(ctx)
	if err != nil {
		d.log.Warn("failed to read history for pacing", logx.Err(err))
		return nil
	}
	return history
}

func (d *Dispatcher) recordFailure(ctx context.Context, res poster.Result) {
	p := storage.FailedPost{
		At:            d.now(),
		Text:          res.Text,
		AccountNumber: res.AccountNumber,
	}
	if err := d.store.EnqueueFailed(ctx, p); err != nil {
		d.log.Warn("failed to enqueue failed post",
			logx.Err(err), logx.Int("account", res.AccountNumber))
		return
	}
	d.log.Info("queued post for retry sweep",
		logx.Int("account", res.AccountNumber),
		logx.String("error_kind", string(res.ErrorKind)))
}
