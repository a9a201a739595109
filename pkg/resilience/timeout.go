package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
)

// WithTimeout bounds fn by timeout. fn runs in its own goroutine with a
// derived context; an overshoot returns at the deadline with an error
// wrapping ErrTimeout and context.DeadlineExceeded, while fn is left to
// notice its cancelled context. timeout <= 0 runs fn inline.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(runCtx) }()

	select {
	case err := <-result:
		return err
	case <-runCtx.Done():
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: cancelled: %w", name, err)
	}
	return fmt.Errorf("%s exceeded %v: %w: %w", name, timeout, apperrors.ErrTimeout, context.DeadlineExceeded)
}
