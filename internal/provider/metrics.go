package provider

import (
	"sync"
	"time"

	"github.com/mikeoller82/agentic-core/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsStore owns ProviderMetrics for every registered provider under a
// single mutex, per the data model's ownership rule: "the Provider Router
// exclusively owns ProviderMetrics (mutated under lock)".
type metricsStore struct {
	mu      sync.Mutex
	byName  map[string]*core.ProviderMetrics
	promReq *prometheus.CounterVec
	promDur *prometheus.HistogramVec
}

func newMetricsStore(reg prometheus.Registerer) *metricsStore {
	s := &metricsStore{
		byName: make(map[string]*core.ProviderMetrics),
		promReq: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentic_provider_requests_total",
			Help: "Total requests issued per provider, labelled by outcome.",
		}, []string{"provider", "outcome"}),
		promDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentic_provider_request_duration_seconds",
			Help:    "Provider request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg != nil {
		reg.MustRegister(s.promReq, s.promDur)
	}
	return s
}

// record updates the named provider's metrics atomically under the store
// lock. Reads go through snapshot, which takes the same lock and returns a
// copy; reads are not lock-free.
func (s *metricsStore) record(name string, success bool, elapsed time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byName[name]
	if !ok {
		m = &core.ProviderMetrics{UptimeSince: now}
		s.byName[name] = m
	}
	m.TotalRequests++
	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}
	m.TotalResponseTime += elapsed
	m.LastRequestAt = now

	outcome := "failure"
	if success {
		outcome = "success"
	}
	if s.promReq != nil {
		s.promReq.WithLabelValues(name, outcome).Inc()
		s.promDur.WithLabelValues(name).Observe(elapsed.Seconds())
	}
}

// snapshot returns a copy of the named provider's metrics, or the zero
// value if nothing has been recorded yet.
func (s *metricsStore) snapshot(name string) core.ProviderMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.byName[name]; ok {
		return *m
	}
	return core.ProviderMetrics{}
}
