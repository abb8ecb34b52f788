// Package api implements the HTTP surface of statusbot.
//
// New(dispatcher, opts) returns an http.Handler that serves:
//
//	POST /                : alert intake (kept for existing senders)
//	POST /api/v1/alerts   : alert intake
//	GET  /api/v1/health   : liveness, live mode and override count
//	GET  /metrics         : Prometheus exposition
//
// Alert bodies are JSON: {"kind":"TRIGGERED|RESOLVED","group":"...",
// "name":"...","description":"..."}. kind is case-insensitive; group and
// name must be present but may be empty; description is optional.
//
// Status codes for the intake routes:
//   - 200: rendered and either published or skipped (live mode off)
//   - 400: body could not be decoded
//   - 401: API key rejected (see package auth)
//   - 500: template rendering or publishing failed
//
// Every response carries an X-Request-Id header, taken from the request
// when present and generated otherwise.
package api
