package scenario

import (
	"context"
	"time"
)

const maxRetryDelay = 5 * time.Second

// retryPolicy retries a failing call with doubling delays capped at
// maxRetryDelay.
type retryPolicy struct {
	retries int
	backoff time.Duration
}

func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	delay := p.backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	err := fn()
	for attempt := 0; err != nil && attempt < p.retries; attempt++ {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
		err = fn()
	}
	return err
}
