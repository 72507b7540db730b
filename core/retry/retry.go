// Package retry provides the single bounded-backoff policy shared by image
// downloads and cloud uploads.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy controls how many times an operation is attempted and how long to
// wait between attempts. The delay doubles after every failure, with up to
// Jitter of extra random delay added per wait.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}

// Default is the policy used throughout the pipeline unless a caller
// overrides it.
var Default = Policy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	Jitter:      250 * time.Millisecond,
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. It returns the last error from fn, or the context error if the
// wait was interrupted.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := delay
		if p.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Jitter)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
	return err
}
