package platform

import (
	"context"
	"fmt"
	"time"

	"social-automator-api/internal/apperr"
	"social-automator-api/internal/domain"
)

// concurrencyLimits caps in-flight calls per platform.
var concurrencyLimits = map[domain.Platform]int{
	domain.PlatformInstagram: 5,
	domain.PlatformFacebook:  5,
	domain.PlatformThreads:   3,
	domain.PlatformYouTube:   3,
}

// Throttle is a per-platform channel semaphore.
type Throttle struct {
	slots map[domain.Platform]chan struct{}
}

// NewThrottle builds the semaphores with the platform concurrency caps.
func NewThrottle() *Throttle {
	slots := make(map[domain.Platform]chan struct{}, len(concurrencyLimits))
	for p, n := range concurrencyLimits {
		slots[p] = make(chan struct{}, n)
	}
	return &Throttle{slots: slots}
}

// Acquire blocks until a slot is free or the context is done.
func (t *Throttle) Acquire(ctx context.Context, p domain.Platform) error {
	sem, ok := t.slots[p]
	if !ok {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("no throttle for platform %q", p))
	}
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (t *Throttle) Release(p domain.Platform) {
	if sem, ok := t.slots[p]; ok {
		<-sem
	}
}

// RetryConfig holds configuration for retry logic. MaxAttempts counts
// every call, the first one included.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig returns the dispatch retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Retry runs the operation with exponential backoff. Only errors the
// taxonomy marks retryable are attempted again; everything else returns
// immediately.
func Retry(ctx context.Context, config RetryConfig, operation func() error) error {
	var lastErr error
	delay := config.BaseDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		if !apperr.Retryable(err) {
			return err
		}

		lastErr = err

		if attempt < config.MaxAttempts {
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay *= 2
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}
