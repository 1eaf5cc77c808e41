package main

import (
	"github.com/yndnr/pixelsync/internal/telemetry/metric"
)

type sessionCounter interface {
	Sessions() int
	ActiveEpoch() int64
}

type cellCounter interface {
	Len() int
}

// liveStats feeds the scrape-time gauges.
type liveStats struct {
	coord  sessionCounter
	canvas cellCounter
}

func (s liveStats) Stats() metric.Stats {
	return metric.Stats{
		Sessions: s.coord.Sessions(),
		Cells:    s.canvas.Len(),
		Epoch:    s.coord.ActiveEpoch(),
	}
}
