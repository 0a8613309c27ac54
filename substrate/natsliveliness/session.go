package natsliveliness

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/rosgraph/errors"
	"github.com/c360/rosgraph/metric"
	"github.com/c360/rosgraph/pkg/retry"
	"github.com/c360/rosgraph/substrate"
)

const defaultBucketPrefix = "ros2_lv"

// Session is a NATS-backed substrate session. One session maps to one
// NATS connection plus one KV bucket shared by every participant of the
// same domain.
type Session struct {
	id     string
	url    string
	domain int

	logger  *slog.Logger
	metrics *metric.Metrics

	conn   *nats.Conn
	js     jetstream.JetStream
	bucket jetstream.KeyValue

	mu     sync.Mutex
	closed bool

	// Connection options
	username       string
	password       string
	token          string
	tlsEnabled     bool
	tlsCertFile    string
	tlsKeyFile     string
	tlsCAFile      string
	clientName     string
	bucketPrefix   string
	maxReconnects  int
	reconnectWait  time.Duration
	connectTimeout time.Duration
	checkAttempts  int
	checkInterval  time.Duration
}

// Connect dials the NATS server, verifies the connection, and ensures
// the domain's liveliness bucket exists. The returned session carries a
// fresh unique id.
func Connect(ctx context.Context, url string, domainID int, opts ...Option) (*Session, error) {
	if domainID < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Session", "Connect", "negative domain id")
	}

	s := &Session{
		id:             uuid.NewString(),
		url:            url,
		domain:         domainID,
		logger:         slog.Default(),
		bucketPrefix:   defaultBucketPrefix,
		maxReconnects:  -1,
		reconnectWait:  2 * time.Second,
		connectTimeout: 5 * time.Second,
		checkAttempts:  3,
		checkInterval:  time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	err := retry.Do(ctx, retry.Quick(), func() error {
		conn, dialErr := nats.Connect(url, s.buildConnectionOptions()...)
		if dialErr != nil {
			return dialErr
		}
		s.conn = conn
		return nil
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "Session", "Connect", "dial nats")
	}

	if err := s.checkConnection(ctx); err != nil {
		s.conn.Close()
		return nil, err
	}

	js, err := jetstream.New(s.conn)
	if err != nil {
		s.conn.Close()
		return nil, errors.WrapFatal(err, "Session", "Connect", "create jetstream context")
	}
	s.js = js

	bucketName := fmt.Sprintf("%s_%d", s.bucketPrefix, domainID)
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: "liveliness tokens",
		History:     1,
	})
	if err != nil {
		s.conn.Close()
		return nil, errors.WrapFatal(err, "Session", "Connect", "ensure liveliness bucket")
	}
	s.bucket = bucket

	if s.metrics != nil {
		s.metrics.RecordSubstrateStatus(true)
	}
	s.logger.Info("Liveliness session connected",
		"url", url, "domain", domainID, "bucket", bucketName, "session", s.id)
	return s, nil
}

func (s *Session) buildConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(s.maxReconnects),
		nats.ReconnectWait(s.reconnectWait),
		nats.Timeout(s.connectTimeout),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			s.logger.Info("Reconnected to NATS", "session", s.id)
			if s.metrics != nil {
				s.metrics.RecordSubstrateReconnect()
				s.metrics.RecordSubstrateStatus(true)
			}
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("Disconnected from NATS", "session", s.id, "error", err)
			if s.metrics != nil {
				s.metrics.RecordSubstrateStatus(false)
			}
		}),
	}

	if s.username != "" && s.password != "" {
		opts = append(opts, nats.UserInfo(s.username, s.password))
	}
	if s.token != "" {
		opts = append(opts, nats.Token(s.token))
	}
	if s.tlsEnabled {
		if s.tlsCertFile != "" && s.tlsKeyFile != "" {
			opts = append(opts, nats.ClientCert(s.tlsCertFile, s.tlsKeyFile))
		}
		if s.tlsCAFile != "" {
			opts = append(opts, nats.RootCAs(s.tlsCAFile))
		}
	}
	if s.clientName != "" {
		opts = append(opts, nats.Name(s.clientName))
	}
	return opts
}

// checkConnection probes the server with round-trip pings until one
// succeeds or the attempts run out
func (s *Session) checkConnection(ctx context.Context) error {
	if s.checkAttempts <= 0 {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < s.checkAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.WrapTransient(ctx.Err(), "Session", "checkConnection", "wait for probe")
			case <-time.After(s.checkInterval):
			}
		}

		rtt, err := s.conn.RTT()
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordSubstrateRTT(rtt)
			}
			return nil
		}
		lastErr = err
		s.logger.Warn("Connection probe failed", "attempt", attempt+1, "error", err)
	}
	return errors.WrapTransient(lastErr, "Session", "checkConnection", "probe connection")
}

// ID returns the session's unique identifier
func (s *Session) ID() string { return s.id }

// DeclareToken creates the token's KV entry. The entry value is the
// session id, which is informational only; presence of the key is the
// announcement.
func (s *Session) DeclareToken(ctx context.Context, key string) (substrate.Token, error) {
	_, err := s.bucket.Create(ctx, encodeKVKey(key), []byte(s.id))
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyExists) {
			return nil, errors.WrapInvalid(errors.ErrTokenExists, "Session", "DeclareToken", "create kv entry")
		}
		return nil, errors.WrapTransient(err, "Session", "DeclareToken", "create kv entry")
	}
	s.logger.Debug("Token declared", "key", key)
	return &kvToken{session: s, key: key}, nil
}

// QueryTokens drains a watcher's initial-value replay and returns the
// decoded keys matching prefix. The watcher buffers server-side; this
// call applies no backpressure to anything but itself.
func (s *Session) QueryTokens(ctx context.Context, prefix string) ([]string, error) {
	watcher, err := s.bucket.WatchAll(ctx, jetstream.IgnoreDeletes())
	if err != nil {
		return nil, errors.WrapTransient(err, "Session", "QueryTokens", "open kv watcher")
	}
	defer func() {
		if stopErr := watcher.Stop(); stopErr != nil {
			s.logger.Warn("Stopping bootstrap watcher", "error", stopErr)
		}
	}()

	var keys []string
	for {
		select {
		case <-ctx.Done():
			return nil, errors.WrapTransient(ctx.Err(), "Session", "QueryTokens", "drain initial values")
		case entry := <-watcher.Updates():
			// A nil entry marks the end of the initial replay.
			if entry == nil {
				return keys, nil
			}
			key, decErr := decodeKVKey(entry.Key())
			if decErr != nil {
				s.logger.Warn("Skipping undecodable kv key", "kvkey", entry.Key(), "error", decErr)
				continue
			}
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
	}
}

// SubscribeTokens opens a watcher that replays the current key set and
// then streams updates. Replayed puts are redundant with a preceding
// QueryTokens; consumers treat a put as insert-or-overwrite, so the
// replay is what closes the query-to-subscribe window.
func (s *Session) SubscribeTokens(ctx context.Context, prefix string, handler substrate.Handler) (substrate.Subscription, error) {
	watcher, err := s.bucket.WatchAll(ctx)
	if err != nil {
		return nil, errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrSubscriptionFailed, err),
			"Session", "SubscribeTokens", "open kv watcher")
	}

	sub := &kvSubscription{
		session: s,
		watcher: watcher,
		prefix:  prefix,
		handler: handler,
		done:    make(chan struct{}),
	}
	go sub.run()
	return sub, nil
}

// Close drains the connection. Tokens declared by this session become
// stale entries; cooperating participants undeclare before closing.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordSubstrateStatus(false)
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return errors.WrapTransient(err, "Session", "Close", "drain connection")
	}
	s.logger.Info("Liveliness session closed", "session", s.id)
	return nil
}

// kvToken is a declared token backed by one KV entry
type kvToken struct {
	session *Session
	key     string
	once    sync.Once
}

func (t *kvToken) Key() string { return t.key }

// Undeclare deletes the KV entry. Idempotent: the delete runs once and
// later calls return the first outcome's nil.
func (t *kvToken) Undeclare(ctx context.Context) error {
	var err error
	t.once.Do(func() {
		err = t.session.bucket.Delete(ctx, encodeKVKey(t.key))
	})
	if err != nil {
		return errors.WrapTransient(err, "kvToken", "Undeclare", "delete kv entry")
	}
	t.session.logger.Debug("Token undeclared", "key", t.key)
	return nil
}

// kvSubscription pumps watcher updates into the handler
type kvSubscription struct {
	session *Session
	watcher jetstream.KeyWatcher
	prefix  string
	handler substrate.Handler
	done    chan struct{}
}

func (k *kvSubscription) run() {
	defer close(k.done)

	for entry := range k.watcher.Updates() {
		// End-of-replay marker; updates follow on the same channel.
		if entry == nil {
			continue
		}

		key, err := decodeKVKey(entry.Key())
		if err != nil {
			k.session.logger.Warn("Dropping undecodable kv key", "kvkey", entry.Key(), "error", err)
			continue
		}
		if !strings.HasPrefix(key, k.prefix) {
			continue
		}

		change := substrate.Change{Key: key}
		switch entry.Operation() {
		case jetstream.KeyValuePut:
			change.Kind = substrate.ChangePut
		case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
			change.Kind = substrate.ChangeDelete
		default:
			continue
		}
		k.handler(change)
	}
}

// Close stops the watcher and waits for the pump goroutine, so no
// handler invocation begins after Close returns.
func (k *kvSubscription) Close() error {
	if err := k.watcher.Stop(); err != nil {
		return errors.WrapTransient(err, "kvSubscription", "Close", "stop kv watcher")
	}
	<-k.done
	return nil
}
