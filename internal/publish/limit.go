package publish

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// Limited spaces calls to the wrapped Publisher evenly over a minute.
type Limited struct {
	next Publisher
	lim  *rate.Limiter
}

// Limit wraps p so that at most perMinute posts go out per minute.
// perMinute <= 0 returns p unchanged.
func Limit(p Publisher, perMinute int) Publisher {
	if perMinute <= 0 {
		return p
	}
	return &Limited{
		next: p,
		lim:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Publish waits for a token, then delegates. A context that expires before
// the token is available fails without calling the wrapped publisher.
func (l *Limited) Publish(ctx context.Context, text string) error {
	if err := l.lim.Wait(ctx); err != nil {
		return errors.Wrap(err, "publish: rate limit")
	}
	return l.next.Publish(ctx, text)
}

func (l *Limited) Unwrap() Publisher { return l.next }
