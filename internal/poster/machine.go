// Package poster drives one publish attempt for one (text, account) pair
// through an explicit state machine with a bounded retry budget.
package poster

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"postbot/internal/accounts"
	"postbot/internal/twitter"
	logx "postbot/pkg/logx"
)

type state int

const (
	stateStart state = iota
	stateSimulate
	stateValidate
	stateAttempt
	stateSuccess
	stateFailure
)

// Config tunes the state machine's waits and simulation behavior.
type Config struct {
	// SimulationMode short-circuits every attempt into a synthetic success
	// without touching the transport.
	SimulationMode bool

	// RateLimitWait is the pause before retrying a rate-limited attempt.
	RateLimitWait time.Duration

	// DuplicatePause is the short pause after mutating duplicate text.
	DuplicatePause time.Duration
}

const (
	defaultRateLimitWait  = 300 * time.Second
	defaultDuplicatePause = 2 * time.Second
)

// Machine runs attempt chains. It is stateless across attempts; all
// per-chain state lives on the stack of Attempt.
type Machine struct {
	cfg   Config
	sleep Sleeper
	now   func() time.Time
	log   logx.Logger
}

func NewMachine(cfg Config, sleep Sleeper, log logx.Logger) *Machine {
	if cfg.RateLimitWait <= 0 {
		cfg.RateLimitWait = defaultRateLimitWait
	}
	if cfg.DuplicatePause <= 0 {
		cfg.DuplicatePause = defaultDuplicatePause
	}
	if sleep == nil {
		sleep = TimerSleeper{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Machine{cfg: cfg, sleep: sleep, now: time.Now, log: log}
}

// SetNow overrides the clock (tests).
func (m *Machine) SetNow(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// Attempt runs the chain for one account. budget bounds the combined
// rate-limit and duplicate retries; validation failures consume none of it.
// All outcomes, including exhausted budgets, resolve to a Result.
func (m *Machine) Attempt(ctx context.Context, text string, h *accounts.Handle, budget int) Result {
	res := Result{AccountNumber: h.Number, Text: text}
	log := m.log.With(logx.Int("account", h.Number))

	st := stateStart
	for {
		switch st {
		case stateStart:
			if m.cfg.SimulationMode {
				st = stateSimulate
			} else {
				st = stateValidate
			}

		case stateSimulate:
			res.Success = true
			res.Simulated = true
			res.PostID = "sim-" + uuid.NewString()
			log.Info("simulated post", logx.String("post_id", res.PostID))
			return res

		case stateValidate:
			if res.Text == "" {
				res.ErrorKind = ErrorEmptyContent
				log.Warn("rejecting empty content")
				return res
			}
			if utf8.RuneCountInString(res.Text) > twitter.MaxStatusLength {
				res.ErrorKind = ErrorOversize
				log.Warn("rejecting oversize content", logx.Int("length", utf8.RuneCountInString(res.Text)))
				return res
			}
			st = stateAttempt

		case stateAttempt:
			pr, err := h.Publisher.Publish(ctx, res.Text)
			if err == nil {
				res.PostID = pr.ID
				res.URL = pr.URL
				res.ErrorKind = ErrorNone
				st = stateSuccess
				continue
			}

			switch {
			case twitter.IsRateLimit(err):
				res.ErrorKind = ErrorRateLimited
				if budget <= 0 {
					st = stateFailure
					continue
				}
				budget--
				log.Warn("rate limited, waiting",
					logx.Duration("wait", m.cfg.RateLimitWait),
					logx.Int("budget_left", budget))
				if m.sleep.Sleep(ctx, m.cfg.RateLimitWait) != nil {
					st = stateFailure
					continue
				}
				// stay in stateAttempt

			case twitter.IsDuplicate(err):
				res.ErrorKind = ErrorDuplicate
				if budget <= 0 {
					st = stateFailure
					continue
				}
				budget--
				res.Text = mutateText(res.Text, m.now())
				log.Warn("duplicate content, retrying with mutated text",
					logx.Int("budget_left", budget))
				if m.sleep.Sleep(ctx, m.cfg.DuplicatePause) != nil {
					st = stateFailure
					continue
				}
				// stay in stateAttempt

			default:
				if _, ok := twitter.AsProviderError(err); ok {
					res.ErrorKind = ErrorProvider
				} else {
					res.ErrorKind = ErrorTransport
				}
				log.Error("publish failed", logx.Err(err))
				st = stateFailure
			}

		case stateSuccess:
			res.Success = true
			log.Info("published", logx.String("post_id", res.PostID))
			return res

		case stateFailure:
			res.Success = false
			return res
		}
	}
}

// mutateText appends a time-of-day marker to break exact-duplicate
// detection. If appending would exceed the provider limit, the tail of the
// original text is trimmed so the marker fits.
func mutateText(text string, now time.Time) string {
	marker := " [" + now.Format("15:04:05") + "]"
	budget := twitter.MaxStatusLength - utf8.RuneCountInString(marker)
	runes := []rune(text)
	if len(runes) > budget {
		runes = runes[:budget]
	}
	return string(runes) + marker
}
