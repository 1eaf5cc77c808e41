// Package metric provides Prometheus metrics for pixelsync.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: the Registry of counters and histograms updated by the
//     coordinator and storage, and the /metrics handler
//   - collector.go: a custom collector that samples live state (sessions,
//     cells, epoch) at scrape time
//
// All Registry methods are safe on a nil *Registry, so components can run
// without metrics in tests.
package metric
