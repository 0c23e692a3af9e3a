// Package ratelimit wraps a single external capability with a rolling-window
// throttle, a payload size cap, and bounded retries with exponential backoff
// on transient failure.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"smart-quiz-service/internal/domain"
)

// Window counts calls over a rolling interval. Implementations must update
// the counter atomically across concurrent callers.
type Window interface {
	// Allow records one call under key if fewer than limit calls happened in
	// the trailing per interval, and reports whether the call may proceed.
	Allow(ctx context.Context, key string, limit int, per time.Duration) (bool, error)
}

// Config tunes a Limiter.
type Config struct {
	Key        string        // window key, one per wrapped capability
	Limit      int           // max calls per rolling window
	Per        time.Duration // rolling window length
	MaxRetries int           // retries on transient failure, excluding the first attempt
	Backoff    time.Duration // initial backoff, doubled per retry
	MaxPayload int           // hard per-call input cap, in characters
}

// Call performs the remote invocation being wrapped.
type Call func(ctx context.Context, payload string) ([]byte, error)

// Limiter is the rate-limited remote-call wrapper. It holds no persistent
// cache and retains no bytes after a call returns; its only state is the
// throttle window.
type Limiter struct {
	window Window
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(window Window, cfg Config) *Limiter {
	if cfg.Key == "" {
		cfg.Key = "default"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.Per <= 0 {
		cfg.Per = time.Minute
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = 1000
	}
	return &Limiter{window: window, cfg: cfg, sleep: sleepCtx}
}

// Invoke checks the payload cap and the rolling window before calling the
// capability. On exceeding the window it fails fast with ErrRateLimited
// rather than queueing; callers decide whether to wait. Transient failures
// (ErrExternalService) are retried with exponential backoff up to MaxRetries.
func (l *Limiter) Invoke(ctx context.Context, payload string, call Call) ([]byte, error) {
	if n := utf8.RuneCountInString(payload); n > l.cfg.MaxPayload {
		return nil, fmt.Errorf("%w: payload of %d characters exceeds the cap of %d", domain.ErrValidation, n, l.cfg.MaxPayload)
	}

	allowed, err := l.window.Allow(ctx, l.cfg.Key, l.cfg.Limit, l.cfg.Per)
	if err != nil {
		return nil, fmt.Errorf("%w: throttle window: %v", domain.ErrExternalService, err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: more than %d calls per %s", domain.ErrRateLimited, l.cfg.Limit, l.cfg.Per)
	}

	backoff := l.cfg.Backoff
	var lastErr error
	for attempt := 0; ; attempt++ {
		out, err := call(ctx, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isTransient(err) || attempt >= l.cfg.MaxRetries {
			return nil, lastErr
		}
		if err := l.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrExternalService)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
