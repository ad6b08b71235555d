// Package backoff retries an operation with exponential delays. Every call
// names its operation ("connect", "reconnect", "publish", ...) so retries
// and give-ups are counted per operation.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

var serviceLabel = "unknown"

// Give-up reasons reported on giveups_total.
const (
	ReasonExhausted = "exhausted"
	ReasonPermanent = "permanent"
	ReasonCanceled  = "canceled"
)

var metrics = struct {
	Attempts  *prometheus.CounterVec
	Retries   *prometheus.CounterVec
	GiveUps   *prometheus.CounterVec
	Successes *prometheus.CounterVec
	Delays    *prometheus.HistogramVec
}{
	Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "attempts_total",
		Help: "Calls of a retried operation, first attempt included",
	}, []string{"service", "op"}),
	Retries: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "retries_total",
		Help: "Failed attempts that were scheduled for a retry",
	}, []string{"service", "op"}),
	GiveUps: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "giveups_total",
		Help: "Operations abandoned, by reason",
	}, []string{"service", "op", "reason"}),
	Successes: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "successes_total",
		Help: "Operations that eventually succeeded",
	}, []string{"service", "op"}),
	Delays: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "connector", Subsystem: "backoff", Name: "retry_delay_seconds",
		Help:    "Delay before each retry",
		Buckets: []float64{.005, .05, .25, 1, 2.5, 5, 10, 30, 60},
	}, []string{"service", "op"}),
}

// SetServiceLabel is called once from common.InitServiceName.
func SetServiceLabel(name string) { serviceLabel = name }

// Config contains tunables for exponential back-off. Zero values mean
// "use the default".
type Config struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`

	// RandomizationFactor adds ±jitter to each delay, within [0,1].
	RandomizationFactor float64 `mapstructure:"randomization_factor"`

	Multiplier  float64       `mapstructure:"multiplier"`
	MaxInterval time.Duration `mapstructure:"max_interval"`

	// MaxElapsedTime bounds all attempts together. Zero: unlimited.
	MaxElapsedTime time.Duration `mapstructure:"max_elapsed_time"`

	// MaxAttempts caps the number of calls. Zero: unlimited.
	MaxAttempts int `mapstructure:"max_attempts"`

	// PerAttemptTimeout bounds each call. Zero: none.
	PerAttemptTimeout time.Duration `mapstructure:"per_attempt_timeout"`
}

func (c *Config) applyDefaults() {
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.RandomizationFactor <= 0 {
		c.RandomizationFactor = 0.5
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
}

// Validate checks a user supplied config.
func (c Config) Validate() error {
	if c.RandomizationFactor < 0 || c.RandomizationFactor > 1 {
		return fmt.Errorf("backoff: RandomizationFactor must be in [0,1]")
	}
	if c.Multiplier != 0 && c.Multiplier < 1 {
		return fmt.Errorf("backoff: Multiplier must be ≥ 1")
	}
	if c.MaxInterval > 0 && c.InitialInterval > c.MaxInterval {
		return fmt.Errorf("backoff: InitialInterval must not exceed MaxInterval")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("backoff: MaxAttempts must not be negative")
	}
	return nil
}

// RetryableFunc is one attempt of an operation.
type RetryableFunc func(ctx context.Context) error

// ErrMaxRetries is returned by Execute when it gives up.
type ErrMaxRetries struct {
	Op       string
	Reason   string // one of the Reason* constants
	Err      error  // last error returned by fn
	Attempts int
}

func (e *ErrMaxRetries) Error() string {
	return fmt.Sprintf("backoff: %s: %s after %d attempt(s): %v", e.Op, e.Reason, e.Attempts, e.Err)
}
func (e *ErrMaxRetries) Unwrap() error { return e.Err }

// Permanent marks an error as non-retryable.
func Permanent(err error) error { return backoff.Permanent(err) }

type attemptKey struct{}

// Attempt returns the 1-based attempt number inside a RetryableFunc, or 0
// outside of Execute.
func Attempt(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey{}).(int)
	return n
}

// Execute runs fn until it succeeds, returns a Permanent error, ctx ends or
// the limits in cfg are reached.
func Execute(ctx context.Context, op string, cfg Config, log *logger.Logger, fn RetryableFunc) error {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("backoff: invalid config: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(zap.String("op", op))

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.RandomizationFactor = cfg.RandomizationFactor
	bo.Multiplier = cfg.Multiplier
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = cfg.MaxElapsedTime // zero never stops
	var policy backoff.BackOff = bo
	if cfg.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(cfg.MaxAttempts-1))
	}
	policy = backoff.WithContext(policy, ctx)

	attempts := 0
	permanent := false
	operation := func() error {
		attempts++
		metrics.Attempts.WithLabelValues(serviceLabel, op).Inc()
		actx := context.WithValue(ctx, attemptKey{}, attempts)
		var err error
		if cfg.PerAttemptTimeout > 0 {
			tctx, cancel := context.WithTimeout(actx, cfg.PerAttemptTimeout)
			err = fn(tctx)
			cancel()
		} else {
			err = fn(actx)
		}
		var perm *backoff.PermanentError
		permanent = errors.As(err, &perm)
		return err
	}
	notify := func(err error, delay time.Duration) {
		metrics.Retries.WithLabelValues(serviceLabel, op).Inc()
		metrics.Delays.WithLabelValues(serviceLabel, op).Observe(delay.Seconds())
		log.Warn("back-off retry",
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		metrics.Successes.WithLabelValues(serviceLabel, op).Inc()
		return nil
	}

	reason := ReasonExhausted
	switch {
	case permanent:
		reason = ReasonPermanent
	case ctx.Err() != nil:
		reason = ReasonCanceled
	}
	metrics.GiveUps.WithLabelValues(serviceLabel, op, reason).Inc()
	log.Error("back-off give-up",
		zap.String("reason", reason),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	return &ErrMaxRetries{Op: op, Reason: reason, Err: err, Attempts: attempts}
}
