package resilience

import (
	"log/slog"
	"time"
)

// maxRetryAttempts bounds env-driven settings so a typo cannot stall a review
// behind dozens of model calls.
const maxRetryAttempts = 10

// Config is the retry and breaker policy shared by every outbound adapter
// (model providers, Qdrant, the reference fetcher, NATS). BreakerMinRequests
// calls are observed before BreakerFailureRatio can open a breaker.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig keeps a review responsive when a provider degrades: three
// quick attempts, then the breaker sheds calls for half a minute and the
// review falls back to the deterministic checklist.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// LogValue lets the effective policy be logged as one group at startup.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("retry_max_attempts", c.RetryMaxAttempts),
		slog.Int64("retry_initial_backoff_ms", c.RetryInitialBackoff.Milliseconds()),
		slog.Int64("retry_max_backoff_ms", c.RetryMaxBackoff.Milliseconds()),
		slog.Bool("breaker_enabled", c.BreakerEnabled),
		slog.Any("breaker_min_requests", c.BreakerMinRequests),
		slog.Float64("breaker_failure_ratio", c.BreakerFailureRatio),
		slog.Int64("breaker_open_timeout_ms", c.BreakerOpenTimeout.Milliseconds()),
	)
}

// normalize replaces unset or out-of-range values with defaults.
func (c Config) normalize() Config {
	def := DefaultConfig()
	return c.normalizeRetry(def).normalizeBreaker(def)
}

func (c Config) normalizeRetry(def Config) Config {
	switch {
	case c.RetryMaxAttempts <= 0:
		c.RetryMaxAttempts = def.RetryMaxAttempts
	case c.RetryMaxAttempts > maxRetryAttempts:
		c.RetryMaxAttempts = maxRetryAttempts
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if c.RetryMaxBackoff <= 0 {
		c.RetryMaxBackoff = def.RetryMaxBackoff
	}
	c.RetryMaxBackoff = max(c.RetryMaxBackoff, c.RetryInitialBackoff)
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}
	return c
}

func (c Config) normalizeBreaker(def Config) Config {
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = def.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return c
}
