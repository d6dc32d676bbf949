package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.TextGenerator = (*Resilient)(nil)

// ResilienceConfig tunes the Resilient wrapper.
type ResilienceConfig struct {
	RequestsPerSecond float64 // <= 0 disables rate limiting
	Burst             int
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	FailureThreshold  uint32 // consecutive failures that open the breaker
	OpenTimeout       time.Duration
}

// DefaultResilienceConfig returns conservative defaults for hosted providers.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RequestsPerSecond: 2,
		Burst:             1,
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		FailureThreshold:  5,
		OpenTimeout:       30 * time.Second,
	}
}

// Resilient wraps a generator with a rate limiter, a circuit breaker and
// exponential backoff retries. Client errors (4xx other than 429), an open
// breaker and context cancellation are not retried.
type Resilient struct {
	inner   ports.TextGenerator
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cfg     ResilienceConfig
	logger  *zap.Logger
}

// NewResilient wraps inner.
func NewResilient(inner ports.TextGenerator, cfg ResilienceConfig, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	log := logger.With(zap.String("provider", inner.Name()))
	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generator-" + inner.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("generator circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Resilient{
		inner:   inner,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: breaker,
		cfg:     cfg,
		logger:  log,
	}
}

// Name reports the wrapped provider.
func (r *Resilient) Name() string { return r.inner.Name() }

// Generate calls the wrapped generator under the limiter, breaker and retry policy.
func (r *Resilient) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	var text string
	attempt := 0

	operation := func() error {
		attempt++
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		res, err := r.breaker.Execute(func() (interface{}, error) {
			return r.inner.Generate(ctx, prompt, params)
		})
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			r.logger.Debug("generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		text = res.(string)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialBackoff
	b.MaxInterval = r.cfg.MaxBackoff
	b.MaxElapsedTime = 0 // bounded by retries and ctx

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries)), ctx)); err != nil {
		return "", err
	}
	return text, nil
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	case errors.Is(err, ErrDisabled):
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
