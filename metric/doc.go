// Package metric provides Prometheus-based metrics for rosgraph: graph
// population, discovery throughput, liveliness token churn, and
// substrate connection health.
//
// A MetricsRegistry owns one prometheus.Registry plus the pre-registered
// core Metrics; components register additional collectors under a
// "<component>.<metric>" key so duplicate registrations fail fast. The
// Server type exposes the registry for scraping, or Handler() can be
// mounted on an existing mux.
//
//	registry := metric.NewMetricsRegistry()
//	registry.CoreMetrics().RecordDiscoveryEvent("put")
//
//	srv := metric.NewServer(9090, "/metrics", registry)
//	go srv.Start()
//	defer srv.Stop()
package metric
