// Package metrics exposes Prometheus counters and gauges for the state
// synchronizer and command dispatcher on a private registry.
package metrics
