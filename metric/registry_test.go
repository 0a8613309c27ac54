package metric

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_component_ops_total",
		Help: "test",
	})

	require.NoError(t, registry.Register("discovery", "ops", counter))

	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_component_other_total",
		Help: "test",
	})
	err := registry.Register("discovery", "ops", other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "test"})
	require.NoError(t, registry.Register("graph", "depth", gauge))

	assert.True(t, registry.Unregister("graph", "depth"))
	assert.False(t, registry.Unregister("graph", "depth"))

	// Slot is free again after unregister.
	require.NoError(t, registry.Register("graph", "depth", gauge))
}

func TestCoreMetricsExposedOverHTTP(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordEntityCount("publisher", 3)
	core.RecordDiscoveryEvent("put")
	core.RecordDiscoveryEvent("put")
	core.RecordDiscoveryEvent("delete")
	core.RecordDecodeFailure()
	core.RecordBootstrap(12, 250*time.Millisecond)
	core.RecordSubstrateStatus(true)

	srv := NewServer(0, "/metrics", registry)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)

	entities, ok := families["rosgraph_graph_entities"]
	require.True(t, ok, "entity gauge missing from scrape")
	require.NotEmpty(t, entities.Metric)
	assert.Equal(t, 3.0, entities.Metric[0].GetGauge().GetValue())

	events, ok := families["rosgraph_discovery_events_total"]
	require.True(t, ok)
	total := 0.0
	for _, m := range events.Metric {
		total += m.GetCounter().GetValue()
	}
	assert.Equal(t, 3.0, total)

	_, ok = families["rosgraph_discovery_decode_failures_total"]
	assert.True(t, ok)
}
