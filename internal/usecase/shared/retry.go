package shared

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
)

var ErrMaxRetriesExceeded = errs.New("operation failed after max retries")

// RetryPolicy is exponential backoff with symmetric jitter: retry n waits
// Base * Factor^n, scaled by a random factor in [1-Jitter, 1+Jitter].
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Factor     float64
	Jitter     float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Base:       500 * time.Millisecond,
		Factor:     2,
		Jitter:     0.2,
	}
}

func (p RetryPolicy) Backoff(retry int, rnd func() float64) time.Duration {
	d := float64(p.Base) * math.Pow(p.Factor, float64(retry))
	if p.Jitter > 0 {
		d *= 1 + p.Jitter*(2*rnd()-1)
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or
// MaxRetries retries are used up. It returns the number of attempts made.
// Retries are logged to logger.
func Retry[T any](
	ctx context.Context,
	clk clock.Clock,
	logger *slog.Logger,
	p RetryPolicy,
	retryable func(error) bool,
	fn func(ctx context.Context) (T, error),
) (T, int, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, attempt + 1, nil
		}

		if !retryable(err) {
			return zero, attempt + 1, err
		}

		if attempt == p.MaxRetries {
			logger.Error("operation failed after max retries",
				slog.Int("attempts", attempt+1),
				slog.Any("error", err))
			return zero, attempt + 1, errs.Mark(err, ErrMaxRetriesExceeded)
		}

		waitTime := p.Backoff(attempt, rand.Float64)
		logger.Warn("retrying operation due to retryable error",
			slog.Int("attempt", attempt+1),
			slog.Duration("wait_time", waitTime),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return zero, attempt + 1, ctx.Err()
		case <-clk.After(waitTime):
		}
	}
}
