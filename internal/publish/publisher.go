package publish

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/obsidianstack/statusbot/internal/config"
)

// Publisher sends one post.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// Verifier is implemented by publishers that can check their credentials
// before serving.
type Verifier interface {
	Verify(ctx context.Context) (string, error)
}

// Func adapts a function to Publisher.
type Func func(ctx context.Context, text string) error

func (f Func) Publish(ctx context.Context, text string) error { return f(ctx, text) }

// Nop discards every post.
type Nop struct{}

func (Nop) Publish(context.Context, string) error { return nil }

// New builds the publisher selected by cfg, rate limited when
// cfg.RatePerMinute > 0. The returned close function releases connections
// and is never nil.
func New(cfg config.PublisherConfig) (Publisher, func() error, error) {
	noClose := func() error { return nil }

	var (
		p       Publisher
		closeFn = noClose
	)
	switch cfg.Type {
	case config.PublisherMastodon:
		m, err := NewMastodon(cfg.Mastodon)
		if err != nil {
			return nil, noClose, err
		}
		p = m
	case config.PublisherWebhook:
		w, err := NewWebhook(cfg.Webhook.Type, cfg.Webhook.URL())
		if err != nil {
			return nil, noClose, err
		}
		p = w
	case config.PublisherNATS:
		n, err := NewNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, noClose, err
		}
		p, closeFn = n, n.Close
	default:
		return nil, noClose, errors.Newf("publish: unknown publisher type %q", cfg.Type)
	}

	return Limit(p, cfg.RatePerMinute), closeFn, nil
}

// Identity asks p, or the publisher it wraps, to verify its credentials and
// returns the account it posts as. Publishers without credentials return "".
func Identity(ctx context.Context, p Publisher) (string, error) {
	for p != nil {
		if v, ok := p.(Verifier); ok {
			return v.Verify(ctx)
		}
		u, ok := p.(interface{ Unwrap() Publisher })
		if !ok {
			return "", nil
		}
		p = u.Unwrap()
	}
	return "", nil
}
