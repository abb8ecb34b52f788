// Package dispatch turns one alert into one post: resolve the template,
// render it, then publish it or, outside live mode, skip publishing.
package dispatch
