// Package auth provides the API key middleware for the alert endpoints.
//
// APIKey(mode, header, key) returns HTTP middleware that compares the named
// request header against key. When mode != "apikey" or key == "", every
// request passes through (useful for local development with auth disabled).
// A missing or incorrect key gets 401 with a JSON error body.
package auth
