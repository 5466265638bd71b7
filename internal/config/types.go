package config

import (
	"errors"
	"strings"
	"time"
)

// Config is the flat tunable surface consumed by the orchestrator.
//
// All durations are Go duration strings (e.g. "2s", "5m").
type Config struct {
	// SimulationMode bypasses the publish transport entirely and
	// synthesizes successful results (dry runs).
	SimulationMode bool `json:"simulation_mode,omitempty"`

	// AccountsFile lists posting credentials, one account per entry.
	AccountsFile string `json:"accounts_file"`

	// TemplatesFile lists content templates.
	TemplatesFile string `json:"templates_file,omitempty"`

	Twitter TwitterConfig `json:"twitter"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`
}

// TwitterConfig tunes the publish transport and retry policy.
//
// Defaults (when fields are omitted/zero):
//   - retry_delay: "300s" (rate-limit wait)
//   - max_retries: 1
//   - rate_per_min: 0 (no local limit)
type TwitterConfig struct {
	// RetryDelay is how long to wait after a rate-limit error.
	RetryDelay string `json:"retry_delay,omitempty"`

	// MaxRetries is the per-attempt-chain transient retry budget.
	MaxRetries int `json:"max_retries,omitempty"`

	// RatePerMin caps outbound publish calls per account. 0 disables.
	RatePerMin int `json:"rate_per_min,omitempty"`

	// BaseURL overrides the API host (tests, proxies).
	BaseURL string `json:"base_url,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./postbot_store" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string  `json:"level,omitempty"`
	Console bool    `json:"console,omitempty"`
	File    LogFile `json:"file,omitempty"`
}

type LogFile struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

const defaultRetryDelay = 300 * time.Second

// Validate rejects configs the run cannot start with. Duration fields are
// checked here so a bad value fails at load, not mid-dispatch.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AccountsFile) == "" {
		return errors.New("accounts_file is required")
	}
	if _, err := ParseDurationField("twitter.retry_delay", c.Twitter.RetryDelay); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if c.Twitter.MaxRetries < 0 {
		return errors.New("twitter.max_retries must be >= 0")
	}
	return nil
}

// RetryWait returns the parsed rate-limit wait, defaulted.
func (t TwitterConfig) RetryWait() time.Duration {
	d, err := ParseDurationOrDefault("twitter.retry_delay", t.RetryDelay, defaultRetryDelay)
	if err != nil {
		return defaultRetryDelay
	}
	return d
}

// Budget returns the retry budget, defaulted to 1 when omitted.
func (t TwitterConfig) Budget() int {
	if t.MaxRetries < 0 {
		return 0
	}
	if t.MaxRetries == 0 {
		return 1
	}
	return t.MaxRetries
}

// BusyWait returns the parsed sqlite busy timeout (0 means driver default).
func (s StorageConfig) BusyWait() time.Duration {
	d, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout)
	if err != nil {
		return 0
	}
	return d
}
