// Package main implements rosgraphd, a daemon that joins a ROS 2
// domain's discovery plane over NATS, maintains the entity graph, and
// exposes it through logs and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/c360/rosgraph/config"
	"github.com/c360/rosgraph/graph"
	"github.com/c360/rosgraph/metric"
	"github.com/c360/rosgraph/rmw"
	"github.com/c360/rosgraph/substrate/natsliveliness"
)

const (
	appName = "rosgraphd"
	version = "0.1.0"

	shutdownTimeout = 30 * time.Second
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Daemon failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("%s %s\n", appName, version)
		return nil
	}

	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cli.ConfigPath, err)
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}

	if cli.Validate {
		fmt.Println("Configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	logger.Info("Starting", "config", cli.ConfigPath, "domain", cfg.DomainID)

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	var metricServer *metric.Server
	if cfg.Metrics.Enabled {
		metricServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		go func() {
			if err := metricServer.Start(); err != nil {
				logger.Error("Metrics server stopped", "error", err)
			}
		}()
		logger.Info("Metrics exposed", "address", metricServer.Address())
	}

	ctx := context.Background()
	session, err := natsliveliness.Connect(ctx, strings.Join(cfg.NATS.URLs, ","), cfg.DomainID,
		natsliveliness.WithLogger(logger),
		natsliveliness.WithMetrics(metrics),
		natsliveliness.WithCredentials(cfg.NATS.Username, cfg.NATS.Password),
		natsliveliness.WithToken(cfg.NATS.Token),
		natsliveliness.WithClientName(appName),
		natsliveliness.WithBucketPrefix(cfg.Liveliness.BucketPrefix),
		natsliveliness.WithReconnect(cfg.NATS.MaxReconnects, cfg.NATS.ReconnectWait.Std()),
		natsliveliness.WithConnectTimeout(cfg.NATS.Timeout.Std()),
		natsliveliness.WithConnectionCheck(
			cfg.Liveliness.ConnectionCheckAttempts,
			cfg.Liveliness.ConnectionCheckInterval.Std()),
		tlsOption(cfg),
	)
	if err != nil {
		return fmt.Errorf("connect liveliness session: %w", err)
	}

	graphCtx, err := rmw.Open(ctx, session, cfg.DomainID, cfg.Enclave,
		rmw.WithLogger(logger),
		rmw.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("open context: %w", err)
	}

	changes, cancelWatch := graphCtx.Graph().Notifier().Subscribe()
	go watchGraph(logger, changes)

	logger.Info("Discovery running",
		"session", graphCtx.SessionID(),
		"entities", graphCtx.Graph().Size())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())

	cancelWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := graphCtx.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Context shutdown reported error", "error", err)
	}
	if metricServer != nil {
		if err := metricServer.Stop(); err != nil {
			logger.Warn("Metrics server stop reported error", "error", err)
		}
	}
	return nil
}

// watchGraph logs every graph mutation until the channel closes
func watchGraph(logger *slog.Logger, changes <-chan graph.Change) {
	for change := range changes {
		attrs := []any{"kind", change.Kind.String(), "key", change.Key}
		if change.Entity != nil {
			attrs = append(attrs,
				"entity_kind", change.Entity.Kind().String(),
				"node", change.Entity.NodeInfo().FullyQualifiedName())
		}
		logger.Info("Graph changed", attrs...)
	}
}

func tlsOption(cfg *config.Config) natsliveliness.Option {
	if !cfg.NATS.TLS.Enabled {
		return func(*natsliveliness.Session) {}
	}
	return natsliveliness.WithTLS(cfg.NATS.TLS.CertFile, cfg.NATS.TLS.KeyFile, cfg.NATS.TLS.CAFile)
}
