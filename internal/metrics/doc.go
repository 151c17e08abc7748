// Package metrics exposes Prometheus collectors for audit runs.
//
// Collectors live on a private registry rather than the global default,
// so tests and multiple servers in one process never collide. Metrics
// implements pipeline.Observer and is handed to every pipeline the web
// server builds; Handler serves the registry on /metrics.
package metrics
