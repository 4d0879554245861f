package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics counts cost cache traffic per tier.
type CacheMetrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
}

// NewCacheMetrics registers the cache counters on registerer (the default registerer when nil).
func NewCacheMetrics(registerer prometheus.Registerer, cfg Config) *CacheMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "contractorlens"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "contractorlens_cache_hits_total",
		Help:        "Cost cache hits by tier.",
		ConstLabels: constLabels,
	}, []string{"tier"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "contractorlens_cache_misses_total",
		Help:        "Cost cache misses by tier.",
		ConstLabels: constLabels,
	}, []string{"tier"})
	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "contractorlens_cache_evictions_total",
		Help:        "Entries evicted from a full cache tier.",
		ConstLabels: constLabels,
	}, []string{"tier"})

	return &CacheMetrics{
		hits:      registerCounterVec(registerer, hits),
		misses:    registerCounterVec(registerer, misses),
		evictions: registerCounterVec(registerer, evictions),
	}
}

// registerCounterVec reuses an identical collector already registered by an earlier app instance.
func registerCounterVec(registerer prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func (m *CacheMetrics) IncHit(tier string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(tier).Inc()
}

func (m *CacheMetrics) IncMiss(tier string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(tier).Inc()
}

func (m *CacheMetrics) IncEviction(tier string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(tier).Inc()
}
