// Package retry provides bounded retry with exponential backoff for
// model calls and other flaky operations.
package retry

import (
	"context"
	"fmt"
	"time"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the pipeline defaults: three attempts with a
// 2s delay doubling up to 10s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second}
}

// Attempt reports progress to the caller before each try, mainly so the
// pipeline can tag ledger entries with the attempt number.
type Attempt struct {
	Number int
	Last   bool
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. The
// sleep honours ctx cancellation. The last error is returned when all
// attempts fail.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, a Attempt) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	delay := p.BaseDelay
	var last error
	for n := 1; n <= p.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn(ctx, Attempt{Number: n, Last: n == p.MaxAttempts})
		if last == nil {
			return nil
		}
		if n == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, last)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
