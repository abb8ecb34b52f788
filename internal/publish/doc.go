// Package publish delivers rendered status text to an outbound channel.
//
// Implementations of Publisher:
//   - Mastodon: posts a status with the configured visibility
//   - Webhook: Slack, Teams (MessageCard) or a generic JSON POST
//   - NATS: publishes the raw text on a subject
//   - Nop: discards everything (dry runs, tests)
//
// Limit wraps any Publisher with a per-minute token bucket. Nothing here
// retries: a failed post is returned to the caller as-is.
package publish
