package pipeline

import (
	"context"
	"math/rand"
	"time"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
)

const maxCallAttempts = 3

// withRetry runs call up to `attempts` times, backing off exponentially
// with jitter between attempts. Only transient, rate-limited and timeout
// classifications are retried; every other failure surfaces immediately.
func withRetry(ctx context.Context, attempts int, call func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
			jitter := time.Duration(rand.Intn(250)) * time.Millisecond
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = call(ctx)
		if err == nil {
			return nil
		}
		switch apperr.KindOf(err) {
		case apperr.KindTransient, apperr.KindRateLimited, apperr.KindTimeout:
			continue
		default:
			return err
		}
	}
	return err
}
