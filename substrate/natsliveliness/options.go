package natsliveliness

import (
	"log/slog"
	"time"

	"github.com/c360/rosgraph/metric"
)

// Option configures a session before Connect dials
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics exports connection and RTT metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithCredentials sets username/password authentication
func WithCredentials(username, password string) Option {
	return func(s *Session) {
		s.username = username
		s.password = password
	}
}

// WithToken sets token authentication
func WithToken(token string) Option {
	return func(s *Session) { s.token = token }
}

// WithTLS enables TLS with the given certificate files. Cert and key
// may be empty when only a custom CA is needed.
func WithTLS(certFile, keyFile, caFile string) Option {
	return func(s *Session) {
		s.tlsEnabled = true
		s.tlsCertFile = certFile
		s.tlsKeyFile = keyFile
		s.tlsCAFile = caFile
	}
}

// WithClientName sets the connection name visible to the server
func WithClientName(name string) Option {
	return func(s *Session) { s.clientName = name }
}

// WithBucketPrefix overrides the KV bucket name prefix. The domain id
// is appended, so all sessions of one domain share one bucket.
func WithBucketPrefix(prefix string) Option {
	return func(s *Session) { s.bucketPrefix = prefix }
}

// WithReconnect tunes the client-side reconnect policy
func WithReconnect(maxReconnects int, wait time.Duration) Option {
	return func(s *Session) {
		s.maxReconnects = maxReconnects
		s.reconnectWait = wait
	}
}

// WithConnectTimeout bounds the initial dial
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) { s.connectTimeout = d }
}

// WithConnectionCheck tunes the post-dial liveness probe: the session
// pings the server up to attempts times, interval apart, before
// declaring the connection usable. Zero attempts disables the probe.
func WithConnectionCheck(attempts int, interval time.Duration) Option {
	return func(s *Session) {
		s.checkAttempts = attempts
		s.checkInterval = interval
	}
}
