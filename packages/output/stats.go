package output

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
)

// DurationStats aggregates test durations
type DurationStats struct {
	// Histogram: 1us to 1h range, 3 significant digits
	histogram *hdrhistogram.Histogram
}

func NewDurationStats() *DurationStats {
	return &DurationStats{
		histogram: hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3),
	}
}

// Record adds one duration, clamped to the histogram range
func (s *DurationStats) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > s.histogram.HighestTrackableValue() {
		us = s.histogram.HighestTrackableValue()
	}
	_ = s.histogram.RecordValue(us)
}

// RecordTests adds the duration of every real test that ran
func (s *DurationStats) RecordTests(tests []*graph.Test) {
	for _, t := range tests {
		if !t.IsReal() || t.State() == graph.StateSkipped {
			continue
		}
		if d, err := t.Duration(); err == nil {
			s.Record(d)
		}
	}
}

func (s *DurationStats) Count() int64 {
	return s.histogram.TotalCount()
}

// Percentile returns the duration at quantile q, from 0 to 100
func (s *DurationStats) Percentile(q float64) time.Duration {
	return time.Duration(s.histogram.ValueAtQuantile(q)) * time.Microsecond
}

func (s *DurationStats) Max() time.Duration {
	return time.Duration(s.histogram.Max()) * time.Microsecond
}
