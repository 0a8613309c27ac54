package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core rosgraph metrics: graph population,
// discovery throughput, and substrate connection health.
type Metrics struct {
	// Graph metrics
	GraphEntities    *prometheus.GaugeVec
	GraphTopics      prometheus.Gauge
	DiscoveryEvents  *prometheus.CounterVec
	DecodeFailures   prometheus.Counter
	BootstrapTokens  prometheus.Gauge
	BootstrapSeconds prometheus.Gauge

	// Local lifecycle metrics
	TokensDeclared   prometheus.Counter
	TokensUndeclared prometheus.Counter
	EventsTriggered  *prometheus.CounterVec

	// Substrate metrics
	SubstrateConnected  prometheus.Gauge
	SubstrateRTT        prometheus.Gauge
	SubstrateReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all core metrics
func NewMetrics() *Metrics {
	return &Metrics{
		GraphEntities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "rosgraph",
				Subsystem: "graph",
				Name:      "entities",
				Help:      "Known graph entities by kind",
			},
			[]string{"kind"},
		),

		GraphTopics: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rosgraph",
				Subsystem: "graph",
				Name:      "topics",
				Help:      "Distinct topic names with at least one endpoint",
			},
		),

		DiscoveryEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rosgraph",
				Subsystem: "discovery",
				Name:      "events_total",
				Help:      "Liveliness events applied to the graph cache",
			},
			[]string{"kind"},
		),

		DecodeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rosgraph",
				Subsystem: "discovery",
				Name:      "decode_failures_total",
				Help:      "Liveliness keys dropped because they failed to decode",
			},
		),

		BootstrapTokens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rosgraph",
				Subsystem: "discovery",
				Name:      "bootstrap_tokens",
				Help:      "Tokens returned by the bootstrap query",
			},
		),

		BootstrapSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rosgraph",
				Subsystem: "discovery",
				Name:      "bootstrap_seconds",
				Help:      "Duration of the bootstrap query",
			},
		),

		TokensDeclared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rosgraph",
				Subsystem: "liveliness",
				Name:      "tokens_declared_total",
				Help:      "Liveliness tokens declared for local entities",
			},
		),

		TokensUndeclared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rosgraph",
				Subsystem: "liveliness",
				Name:      "tokens_undeclared_total",
				Help:      "Liveliness tokens undeclared for local entities",
			},
		),

		EventsTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rosgraph",
				Subsystem: "events",
				Name:      "triggered_total",
				Help:      "QoS event updates by event kind",
			},
			[]string{"event"},
		),

		SubstrateConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rosgraph",
				Subsystem: "substrate",
				Name:      "connected",
				Help:      "Substrate connection status (0=disconnected, 1=connected)",
			},
		),

		SubstrateRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rosgraph",
				Subsystem: "substrate",
				Name:      "rtt_milliseconds",
				Help:      "Substrate round-trip time in milliseconds",
			},
		),

		SubstrateReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rosgraph",
				Subsystem: "substrate",
				Name:      "reconnects_total",
				Help:      "Total number of substrate reconnections",
			},
		),
	}
}

// RecordEntityCount sets the entity gauge for a kind
func (c *Metrics) RecordEntityCount(kind string, count int) {
	c.GraphEntities.WithLabelValues(kind).Set(float64(count))
}

// RecordTopicCount sets the distinct-topic gauge
func (c *Metrics) RecordTopicCount(count int) {
	c.GraphTopics.Set(float64(count))
}

// RecordDiscoveryEvent increments the discovery event counter for "put" or "delete"
func (c *Metrics) RecordDiscoveryEvent(kind string) {
	c.DiscoveryEvents.WithLabelValues(kind).Inc()
}

// RecordDecodeFailure increments the dropped-key counter
func (c *Metrics) RecordDecodeFailure() {
	c.DecodeFailures.Inc()
}

// RecordBootstrap records the result of a bootstrap query
func (c *Metrics) RecordBootstrap(tokens int, took time.Duration) {
	c.BootstrapTokens.Set(float64(tokens))
	c.BootstrapSeconds.Set(took.Seconds())
}

// RecordTokenDeclared increments the declared-token counter
func (c *Metrics) RecordTokenDeclared() {
	c.TokensDeclared.Inc()
}

// RecordTokenUndeclared increments the undeclared-token counter
func (c *Metrics) RecordTokenUndeclared() {
	c.TokensUndeclared.Inc()
}

// RecordEventTriggered increments the QoS event counter for an event kind
func (c *Metrics) RecordEventTriggered(event string) {
	c.EventsTriggered.WithLabelValues(event).Inc()
}

// RecordSubstrateStatus updates the substrate connection gauge
func (c *Metrics) RecordSubstrateStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.SubstrateConnected.Set(value)
}

// RecordSubstrateRTT updates the substrate round-trip time
func (c *Metrics) RecordSubstrateRTT(rtt time.Duration) {
	c.SubstrateRTT.Set(float64(rtt.Milliseconds()))
}

// RecordSubstrateReconnect increments the reconnection counter
func (c *Metrics) RecordSubstrateReconnect() {
	c.SubstrateReconnects.Inc()
}
