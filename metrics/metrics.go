// Package metrics wires the buffer pool's operational counters into
// Prometheus: request hit/miss rate, eviction and write-back counts, pool
// exhaustion, and a live gauge of valid frames (spec §6.5).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the buffer pool's Prometheus collectors. The zero value
// is not usable; construct one with New and register it with a registry
// (or use NewRegistered to do both).
type Metrics struct {
	Requests      *prometheus.CounterVec
	Evictions     *prometheus.CounterVec
	Writebacks    prometheus.Counter
	PoolExhausted prometheus.Counter
	FramesValid   prometheus.Gauge
}

// New builds an unregistered set of collectors.
func New() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dbbufmgr_page_requests_total",
			Help: "Page requests served by the buffer pool, by outcome.",
		}, []string{"outcome"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dbbufmgr_evictions_total",
			Help: "Frames reclaimed by the replacement policy, by whether they were dirty.",
		}, []string{"dirty"}),
		Writebacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dbbufmgr_writebacks_total",
			Help: "Pages written back to their file, from either eviction or an explicit flush.",
		}),
		PoolExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dbbufmgr_pool_exhausted_total",
			Help: "Times the replacement policy failed to find a victim frame.",
		}),
		FramesValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dbbufmgr_frames_valid",
			Help: "Number of frames currently holding a resident page, sampled on PrintSelf.",
		}),
	}
}

// NewRegistered builds a set of collectors and registers them with reg.
func NewRegistered(reg *prometheus.Registry) (*Metrics, error) {
	m := New()
	for _, c := range []prometheus.Collector{m.Requests, m.Evictions, m.Writebacks, m.PoolExhausted, m.FramesValid} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hit records an index hit.
func (m *Metrics) Hit() {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues("hit").Inc()
}

// Miss records an index miss.
func (m *Metrics) Miss() {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues("miss").Inc()
}

// Eviction records a frame reclaimed by the replacement policy.
func (m *Metrics) Eviction(dirty bool) {
	if m == nil {
		return
	}
	label := "false"
	if dirty {
		label = "true"
	}
	m.Evictions.WithLabelValues(label).Inc()
}

// Writeback records a page written back to disk.
func (m *Metrics) Writeback() {
	if m == nil {
		return
	}
	m.Writebacks.Inc()
}

// Exhausted records a failed victim search.
func (m *Metrics) Exhausted() {
	if m == nil {
		return
	}
	m.PoolExhausted.Inc()
}

// SetFramesValid samples the current valid-frame count.
func (m *Metrics) SetFramesValid(n int) {
	if m == nil {
		return
	}
	m.FramesValid.Set(float64(n))
}
