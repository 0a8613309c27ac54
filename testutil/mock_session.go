// Package testutil provides in-memory test doubles for the substrate
// interfaces so the core packages can be tested without a broker.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/c360/rosgraph/substrate"
)

// MockSession is an in-memory substrate.Session. Tokens live in a map,
// subscribers receive changes synchronously on the declaring goroutine,
// and every operation can be forced to fail for error-path tests.
type MockSession struct {
	mu          sync.Mutex
	id          string
	tokens      map[string]struct{}
	subscribers map[int]*mockSubscription
	nextSubID   int
	closed      bool

	// Failure injection, checked on the next matching call.
	FailDeclare   error
	FailQuery     error
	FailSubscribe error
	FailUndeclare error
}

// NewMockSession creates an empty in-memory session
func NewMockSession() *MockSession {
	return &MockSession{
		id:          "mock-session",
		tokens:      make(map[string]struct{}),
		subscribers: make(map[int]*mockSubscription),
	}
}

// ID returns the fixed mock session identifier
func (s *MockSession) ID() string { return s.id }

// DeclareToken stores the key and fans a put change out to matching
// subscribers
func (s *MockSession) DeclareToken(_ context.Context, key string) (substrate.Token, error) {
	s.mu.Lock()
	if s.FailDeclare != nil {
		err := s.FailDeclare
		s.mu.Unlock()
		return nil, err
	}
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("session closed")
	}
	if _, ok := s.tokens[key]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("token already declared: %s", key)
	}
	s.tokens[key] = struct{}{}
	subs := s.matchingLocked(key)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.handler(substrate.Change{Kind: substrate.ChangePut, Key: key})
	}
	return &mockToken{session: s, key: key}, nil
}

// QueryTokens returns a sorted snapshot of the live keys under prefix
func (s *MockSession) QueryTokens(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailQuery != nil {
		return nil, s.FailQuery
	}
	if s.closed {
		return nil, fmt.Errorf("session closed")
	}

	var keys []string
	for key := range s.tokens {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// SubscribeTokens registers a handler for future changes under prefix
func (s *MockSession) SubscribeTokens(_ context.Context, prefix string, handler substrate.Handler) (substrate.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSubscribe != nil {
		return nil, s.FailSubscribe
	}
	if s.closed {
		return nil, fmt.Errorf("session closed")
	}

	id := s.nextSubID
	s.nextSubID++
	sub := &mockSubscription{session: s, id: id, prefix: prefix, handler: handler}
	s.subscribers[id] = sub
	return sub, nil
}

// Close drops all tokens and subscriptions
func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tokens = make(map[string]struct{})
	s.subscribers = make(map[int]*mockSubscription)
	return nil
}

// Inject delivers a change to matching subscribers without going
// through DeclareToken, for simulating remote sessions
func (s *MockSession) Inject(change substrate.Change) {
	s.mu.Lock()
	if change.Kind == substrate.ChangePut {
		s.tokens[change.Key] = struct{}{}
	} else {
		delete(s.tokens, change.Key)
	}
	subs := s.matchingLocked(change.Key)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.handler(change)
	}
}

// HasToken reports whether a key is currently declared
func (s *MockSession) HasToken(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[key]
	return ok
}

// TokenCount returns the number of live tokens
func (s *MockSession) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// SubscriberCount returns the number of open subscriptions
func (s *MockSession) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *MockSession) matchingLocked(key string) []*mockSubscription {
	var subs []*mockSubscription
	for _, sub := range s.subscribers {
		if strings.HasPrefix(key, sub.prefix) {
			subs = append(subs, sub)
		}
	}
	return subs
}

type mockToken struct {
	session *MockSession
	key     string
	once    sync.Once
}

func (t *mockToken) Key() string { return t.key }

func (t *mockToken) Undeclare(_ context.Context) error {
	t.session.mu.Lock()
	failErr := t.session.FailUndeclare
	t.session.mu.Unlock()
	if failErr != nil {
		return failErr
	}

	t.once.Do(func() {
		s := t.session
		s.mu.Lock()
		delete(s.tokens, t.key)
		subs := s.matchingLocked(t.key)
		s.mu.Unlock()

		for _, sub := range subs {
			sub.handler(substrate.Change{Kind: substrate.ChangeDelete, Key: t.key})
		}
	})
	return nil
}

type mockSubscription struct {
	session *MockSession
	id      int
	prefix  string
	handler substrate.Handler
}

func (m *mockSubscription) Close() error {
	m.session.mu.Lock()
	delete(m.session.subscribers, m.id)
	m.session.mu.Unlock()
	return nil
}
