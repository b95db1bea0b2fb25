// Package monitoring provides Prometheus metrics collection.
//
// Metrics are registered on a dedicated registry held by the Metrics struct,
// exposed via the /metrics/prometheus endpoint. HTTP request metrics are
// collected by the Gin middleware; render, session, and persistence metrics
// are recorded by the domain layer.
package monitoring
