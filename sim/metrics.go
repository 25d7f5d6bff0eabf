// Collects the two time series the run produces: server load and cumulative drops.

package sim

import "sort"

// MetricSample is an immutable (time, value) point.
type MetricSample struct {
	Time  int64   `json:"time" yaml:"time"` // ticks
	Value float64 `json:"value" yaml:"value"`
}

// MetricsCollector samples the server at a fixed period. It only reads server
// state. Both series are append-only and ordered by time.
type MetricsCollector struct {
	server   *Server
	interval int64
	load     []MetricSample
	drops    []MetricSample
}

// NewMetricsCollector creates a collector sampling server every interval ticks.
func NewMetricsCollector(server *Server, interval int64) *MetricsCollector {
	if interval <= 0 {
		panic("NewMetricsCollector: interval must be positive")
	}
	return &MetricsCollector{
		server:   server,
		interval: interval,
		load:     make([]MetricSample, 0),
		drops:    make([]MetricSample, 0),
	}
}

// Sample appends the current load and drop count at time now.
func (m *MetricsCollector) Sample(now int64) {
	m.load = append(m.load, MetricSample{Time: now, Value: m.server.Load()})
	m.drops = append(m.drops, MetricSample{Time: now, Value: float64(m.server.DroppedCount())})
}

// Interval returns the sampling period in ticks.
func (m *MetricsCollector) Interval() int64 { return m.interval }

// Len returns the number of samples taken so far.
func (m *MetricsCollector) Len() int { return len(m.load) }

// LoadSeries returns a copy of the load-over-time series.
func (m *MetricsCollector) LoadSeries() []MetricSample {
	return copySeries(m.load)
}

// DropSeries returns a copy of the dropped-count-over-time series.
func (m *MetricsCollector) DropSeries() []MetricSample {
	return copySeries(m.drops)
}

func copySeries(series []MetricSample) []MetricSample {
	out := make([]MetricSample, len(series))
	copy(out, series)
	return out
}

// SampleAt finds the sample taken exactly at time t in a time-ascending series.
func SampleAt(series []MetricSample, t int64) (MetricSample, bool) {
	i := sort.Search(len(series), func(i int) bool { return series[i].Time >= t })
	if i < len(series) && series[i].Time == t {
		return series[i], true
	}
	return MetricSample{}, false
}

// Values extracts the value column of a series.
func Values(series []MetricSample) []float64 {
	out := make([]float64, len(series))
	for i, s := range series {
		out[i] = s.Value
	}
	return out
}
