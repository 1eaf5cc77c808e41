package metric

import "github.com/prometheus/client_golang/prometheus"

// Stats is a point-in-time view of live state.
type Stats struct {
	Sessions int
	Cells    int
	Epoch    int64
}

// StatsSource provides Stats at scrape time.
type StatsSource interface {
	Stats() Stats
}

// Collector samples a StatsSource on every scrape.
type Collector struct {
	source StatsSource

	sessions *prometheus.Desc
	cells    *prometheus.Desc
	epoch    *prometheus.Desc
}

// NewCollector creates a collector for source.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		sessions: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "sessions"),
			"Connected sessions.", nil, nil),
		cells: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "canvas", "cells"),
			"Colored cells on the canvas.", nil, nil),
		epoch: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "epoch", "current"),
			"Epoch number of the live canvas.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessions
	ch <- c.cells
	ch <- c.epoch
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(s.Sessions))
	ch <- prometheus.MustNewConstMetric(c.cells, prometheus.GaugeValue, float64(s.Cells))
	ch <- prometheus.MustNewConstMetric(c.epoch, prometheus.GaugeValue, float64(s.Epoch))
}

// RegisterSource registers a Collector for source.
func (r *Registry) RegisterSource(source StatsSource) error {
	if r == nil {
		return nil
	}
	return r.reg.Register(NewCollector(source))
}
