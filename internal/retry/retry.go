// Package retry polls an eventually consistent source until a condition
// holds or a fixed attempt budget runs out.
package retry

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
)

// Policy waits WarmUp before the first attempt and Interval between
// attempts, giving up after MaxAttempts.
type Policy struct {
	WarmUp      time.Duration
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPolicy polls for about seven minutes.
var DefaultPolicy = Policy{
	WarmUp:      5 * time.Second,
	Interval:    10 * time.Second,
	MaxAttempts: 40,
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; Do returns it at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it returns nil, a Permanent error, or the budget is
// spent. The last error is returned annotated with the attempt count.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for calls that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if err := sleep(ctx, p.WarmUp); err != nil {
		return zero, err
	}

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		var perm *permanentError
		if stderrors.As(err, &perm) {
			return zero, perm.err
		}
		last = err
		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return zero, errors.Wrapf(err, "interrupted after %d attempts, last error: %v", attempt, last)
		}
	}
	return zero, errors.Wrapf(last, "gave up after %d attempts", p.MaxAttempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
