// Package backoff implements the bounded exponential delay schedule used
// between retry attempts.
package backoff

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrInvalidConfig is returned by Validate for a config that breaks the
// schedule invariants.
var ErrInvalidConfig = errors.New("invalid backoff config")

// Config defines retry behavior.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Jitter is the upper bound of a random duration added to each sleep.
	// Zero keeps timing deterministic.
	Jitter time.Duration
}

// DefaultConfig provides the production schedule: 500ms, 750ms, 1125ms,
// 1688ms and then the fifth and final attempt.
var DefaultConfig = Config{
	MaxAttempts: 5,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    3 * time.Second,
	Multiplier:  1.5,
}

// Validate checks 1ms <= baseDelay <= maxDelay, multiplier > 1 and
// maxAttempts >= 1. Delays are rounded to milliseconds, so a smaller base
// would collapse to zero.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.BaseDelay < time.Millisecond {
		return fmt.Errorf("%w: base delay must be at least 1ms, got %s", ErrInvalidConfig, c.BaseDelay)
	}
	if c.BaseDelay > c.MaxDelay {
		return fmt.Errorf("%w: base delay %s exceeds max delay %s", ErrInvalidConfig, c.BaseDelay, c.MaxDelay)
	}
	if c.Multiplier <= 1 {
		return fmt.Errorf("%w: multiplier must be greater than 1, got %g", ErrInvalidConfig, c.Multiplier)
	}
	if c.Jitter < 0 {
		return fmt.Errorf("%w: jitter must not be negative, got %s", ErrInvalidConfig, c.Jitter)
	}
	return nil
}

// Policy maps attempt numbers to wait durations. It is immutable.
type Policy struct {
	cfg Config
}

// NewPolicy validates cfg and returns a Policy.
func NewPolicy(cfg Config) (Policy, error) {
	if err := cfg.Validate(); err != nil {
		return Policy{}, err
	}
	return Policy{cfg: cfg}, nil
}

// MustPolicy is NewPolicy that panics on an invalid config.
func MustPolicy(cfg Config) Policy {
	p, err := NewPolicy(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns the policy configuration.
func (p Policy) Config() Config {
	return p.cfg
}

// MaxAttempts returns the total number of executions allowed.
func (p Policy) MaxAttempts() int {
	return p.cfg.MaxAttempts
}

// DelayFor returns the wait after the given failed attempt:
// min(base * multiplier^(attempt-1), max), rounded to the millisecond.
// Attempt numbers below 1 are treated as 1.
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.cfg.BaseDelay) * math.Pow(p.cfg.Multiplier, float64(attempt-1))
	if delay > float64(p.cfg.MaxDelay) || math.IsInf(delay, 1) || math.IsNaN(delay) {
		delay = float64(p.cfg.MaxDelay)
	}
	ms := math.Round(delay / float64(time.Millisecond))
	d := time.Duration(ms) * time.Millisecond
	if d > p.cfg.MaxDelay {
		d = p.cfg.MaxDelay
	}
	return d
}

// Jitter returns a random duration in [0, cfg.Jitter), or zero when jitter is
// disabled.
func (p Policy) Jitter() time.Duration {
	if p.cfg.Jitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(p.cfg.Jitter)))
}

// Schedule returns the delays slept before attempts 2..MaxAttempts.
func (p Policy) Schedule() []time.Duration {
	if p.cfg.MaxAttempts <= 1 {
		return nil
	}
	out := make([]time.Duration, 0, p.cfg.MaxAttempts-1)
	for attempt := 1; attempt < p.cfg.MaxAttempts; attempt++ {
		out = append(out, p.DelayFor(attempt))
	}
	return out
}

// Summary is the policy view exposed in diagnostics snapshots.
type Summary struct {
	MaxAttempts int     `json:"max_attempts"`
	BaseDelayMs int64   `json:"base_delay_ms"`
	MaxDelayMs  int64   `json:"max_delay_ms"`
	Multiplier  float64 `json:"multiplier"`
	JitterMs    int64   `json:"jitter_ms"`
	ScheduleMs  []int64 `json:"schedule_ms"`
}

// Summary describes the policy for dashboards.
func (p Policy) Summary() Summary {
	schedule := p.Schedule()
	ms := make([]int64, len(schedule))
	for i, d := range schedule {
		ms[i] = d.Milliseconds()
	}
	return Summary{
		MaxAttempts: p.cfg.MaxAttempts,
		BaseDelayMs: p.cfg.BaseDelay.Milliseconds(),
		MaxDelayMs:  p.cfg.MaxDelay.Milliseconds(),
		Multiplier:  p.cfg.Multiplier,
		JitterMs:    p.cfg.Jitter.Milliseconds(),
		ScheduleMs:  ms,
	}
}
