package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCacheMetricsCountsPerTier(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCacheMetrics(reg, Config{ServiceName: "contractorlens", Environment: "test"})

	m.IncHit("locations")
	m.IncHit("locations")
	m.IncMiss("estimates")
	m.IncEviction("retail_prices")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.hits.WithLabelValues("locations")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.misses.WithLabelValues("estimates")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.misses.WithLabelValues("locations")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.evictions.WithLabelValues("retail_prices")))
}

func TestNilCacheMetricsIsSafe(t *testing.T) {
	var m *CacheMetrics
	assert.NotPanics(t, func() {
		m.IncHit("locations")
		m.IncMiss("locations")
		m.IncEviction("locations")
	})
}
