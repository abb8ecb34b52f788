package publish

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-mastodon"

	"github.com/obsidianstack/statusbot/internal/config"
)

const mastodonTimeout = 10 * time.Second

// Mastodon posts statuses to a Mastodon account.
type Mastodon struct {
	client     *mastodon.Client
	visibility string
}

// NewMastodon creates a client from credentials resolved through cfg's
// environment variables. Server and access token are required.
func NewMastodon(cfg config.MastodonConfig) (*Mastodon, error) {
	server := cfg.Server()
	if server == "" {
		return nil, errors.Newf("mastodon: server is not set (env %s)", cfg.ServerEnv)
	}
	token := cfg.Token()
	if token == "" {
		return nil, errors.Newf("mastodon: access token is not set (env %s)", cfg.TokenEnv)
	}

	c := mastodon.NewClient(&mastodon.Config{
		Server:       server,
		ClientID:     cfg.ClientID(),
		ClientSecret: cfg.ClientSecret(),
		AccessToken:  token,
	})
	c.Timeout = mastodonTimeout

	vis := cfg.Visibility
	if vis == "" {
		vis = config.DefaultVisibility
	}
	return &Mastodon{client: c, visibility: vis}, nil
}

// Verify checks the access token and returns the account handle.
func (m *Mastodon) Verify(ctx context.Context) (string, error) {
	acct, err := m.client.GetAccountCurrentUser(ctx)
	if err != nil {
		return "", errors.Wrap(err, "mastodon: verify credentials")
	}
	return acct.Acct, nil
}

// Publish posts text as a new status.
func (m *Mastodon) Publish(ctx context.Context, text string) error {
	_, err := m.client.PostStatus(ctx, &mastodon.Toot{
		Status:     text,
		Visibility: m.visibility,
	})
	if err != nil {
		return errors.Wrap(err, "mastodon: post status")
	}
	return nil
}
