package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Pacer spaces out sequential upstream requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedPacer enforces a minimum delay between consecutive Wait calls.
type FixedPacer struct {
	limiter *rate.Limiter
}

// NewFixedPacer returns a pacer allowing one request per delay. A
// non-positive delay disables pacing.
func NewFixedPacer(delay time.Duration) Pacer {
	if delay <= 0 {
		return NoPacer{}
	}
	return &FixedPacer{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next request may start.
func (p *FixedPacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "pacer wait")
	}
	return nil
}

// NoPacer never waits.
type NoPacer struct{}

// Wait returns ctx.Err().
func (NoPacer) Wait(ctx context.Context) error { return ctx.Err() }

// SkipFunc receives the item and error of a unit that failed.
type SkipFunc[T any] func(item T, err error)

// Sequence visits items in order, pacing between them. An error from visit,
// including an AuthError, skips that item (reported through onSkip) and the
// loop continues. Visit returning done stops the loop. Only context
// cancellation is returned.
func Sequence[T any](ctx context.Context, p Pacer, items []T, visit func(ctx context.Context, item T) (done bool, err error), onSkip SkipFunc[T]) error {
	if p == nil {
		p = NoPacer{}
	}
	for i, item := range items {
		if i > 0 {
			if err := p.Wait(ctx); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "sequence cancelled")
		}

		done, err := visit(ctx, item)
		if err != nil {
			if onSkip != nil {
				onSkip(item, err)
			}
			continue
		}
		if done {
			return nil
		}
	}
	return nil
}
