// Package metrics defines the Prometheus collectors statusbot exports on
// /metrics. Collectors live on a private registry so tests can build as
// many instances as they like.
package metrics
