package publish

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
)

// NATS publishes each post as the payload of a message on Subject.
type NATS struct {
	nc      *nats.Conn
	subject string
}

// NewNATS connects to url. The connection is held until Close.
func NewNATS(url, subject string, opts ...nats.Option) (*NATS, error) {
	if subject == "" {
		return nil, errors.New("nats: subject is required")
	}
	opts = append([]nats.Option{nats.Name("statusbot")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "nats: connect %s", url)
	}
	return &NATS{nc: nc, subject: subject}, nil
}

// Publish sends text and waits for the server to acknowledge the flush.
func (n *NATS) Publish(ctx context.Context, text string) error {
	if err := n.nc.Publish(n.subject, []byte(text)); err != nil {
		return errors.Wrapf(err, "nats: publish to %s", n.subject)
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return errors.Wrap(err, "nats: flush")
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	return n.nc.Drain()
}
