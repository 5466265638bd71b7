// Package pacing derives inter-post delays from recent posting history so
// the dispatch cadence backs off when an account is failing.
package pacing

import (
	"math/rand"
	"time"

	"postbot/internal/storage"
)

const (
	// DefaultWindow is how many recent history entries feed the decision.
	DefaultWindow = 20

	baseDelay     = 30 * time.Second
	elevatedDelay = 45 * time.Second
	highDelay     = 60 * time.Second
)

// Calculator computes the pacing delay for an account. The zero value is
// not usable; construct with NewCalculator.
type Calculator struct {
	window int
	rng    *rand.Rand
}

func NewCalculator() *Calculator {
	return &Calculator{
		window: DefaultWindow,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand overrides the jitter source (tests).
func (c *Calculator) SetRand(rng *rand.Rand) {
	if rng != nil {
		c.rng = rng
	}
}

// DelayFor returns the pacing delay before posting to the given account.
// It never fails: with no usable history it falls back to the default
// base. Jitter (uniform [0.8, 1.2]) is always applied so the cadence has
// no detectable fixed period.
func (c *Calculator) DelayFor(accountNumber int, history []storage.HistoryEntry) time.Duration {
	base := BaseDelayFor(accountNumber, history, c.window)
	jitter := 0.8 + c.rng.Float64()*0.4
	return time.Duration(float64(base) * jitter)
}

// BaseDelayFor is the pre-jitter policy: the failure rate of the account's
// attempts across the most recent window entries picks the base.
//
//	failRate > 0.5        -> 60s
//	0.2 < failRate <= 0.5 -> 45s
//	otherwise             -> 30s
func BaseDelayFor(accountNumber int, history []storage.HistoryEntry, window int) time.Duration {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	var attempts, failures int
	for _, e := range history {
		for _, r := range e.Accounts {
			if r.AccountNumber != accountNumber {
				continue
			}
			attempts++
			if !r.Success {
				failures++
			}
		}
	}
	if attempts == 0 {
		return baseDelay
	}

	failRate := float64(failures) / float64(attempts)
	switch {
	case failRate > 0.5:
		return highDelay
	case failRate > 0.2:
		return elevatedDelay
	default:
		return baseDelay
	}
}
