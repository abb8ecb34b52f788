package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Webhook posts text to a chat webhook. Type is one of slack | teams | http.
type Webhook struct {
	Type   string
	URL    string
	Client *http.Client
}

// NewWebhook validates the target and returns a Webhook with a 10s client.
func NewWebhook(typ, url string) (*Webhook, error) {
	switch typ {
	case "slack", "teams", "http":
	default:
		return nil, errors.Newf("webhook: unknown type %q", typ)
	}
	if url == "" {
		return nil, errors.New("webhook: url is not set")
	}
	return &Webhook{
		Type:   typ,
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (w *Webhook) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return http.DefaultClient
}

// Publish sends text in the payload shape the target expects.
func (w *Webhook) Publish(ctx context.Context, text string) error {
	var payload interface{}
	switch w.Type {
	case "teams":
		payload = map[string]interface{}{
			"@type":    "MessageCard",
			"@context": "http://schema.org/extensions",
			"summary":  "statusbot",
			"text":     text,
		}
	default:
		payload = map[string]string{"text": text}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "webhook: encode payload")
	}
	return w.post(ctx, body)
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "webhook: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client().Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook: http post")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Newf("webhook: %s returned HTTP %d", w.Type, resp.StatusCode)
	}
	return nil
}
