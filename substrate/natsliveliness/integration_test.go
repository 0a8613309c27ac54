//go:build integration

package natsliveliness

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/c360/rosgraph/substrate"
)

// startNATS runs a JetStream-enabled NATS server in a container and
// returns its client URL.
func startNATS(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--js"},
			WaitingFor:   wait.ForListeningPort("4222/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)
	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestDeclareQuerySubscribe(t *testing.T) {
	url := startNATS(t)
	ctx := context.Background()

	s1, err := Connect(ctx, url, 0, WithReconnect(0, time.Second))
	require.NoError(t, err)
	defer s1.Close()

	s2, err := Connect(ctx, url, 0, WithReconnect(0, time.Second))
	require.NoError(t, err)
	defer s2.Close()

	require.NotEqual(t, s1.ID(), s2.ID())

	keyA := "@ros2_lv/0/" + s1.ID() + "/1/1/NN/%2F/%2F/a"
	keyB := "@ros2_lv/0/" + s1.ID() + "/2/2/NN/%2F/%2F/b"

	tokenA, err := s1.DeclareToken(ctx, keyA)
	require.NoError(t, err)
	_, err = s1.DeclareToken(ctx, keyB)
	require.NoError(t, err)

	// Redeclaring a live key fails.
	_, err = s2.DeclareToken(ctx, keyA)
	require.Error(t, err)

	// The query sees both tokens from the other session.
	keys, err := s2.QueryTokens(ctx, "@ros2_lv/0/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{keyA, keyB}, keys)

	// The subscription replays the current set, then streams updates.
	var mu sync.Mutex
	var changes []substrate.Change
	sub, err := s2.SubscribeTokens(ctx, "@ros2_lv/0/", func(c substrate.Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, tokenA.Undeclare(ctx))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range changes {
			if c.Kind == substrate.ChangeDelete && c.Key == keyA {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond, "delete for keyA not observed")

	mu.Lock()
	sawReplayB := false
	for _, c := range changes {
		if c.Kind == substrate.ChangePut && c.Key == keyB {
			sawReplayB = true
		}
	}
	mu.Unlock()
	assert.True(t, sawReplayB, "replay must deliver tokens alive at subscribe time")
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	url := startNATS(t)
	ctx := context.Background()

	s, err := Connect(ctx, url, 1)
	require.NoError(t, err)
	defer s.Close()

	var mu sync.Mutex
	count := 0
	sub, err := s.SubscribeTokens(ctx, "@ros2_lv/1/", func(substrate.Change) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	_, err = s.DeclareToken(ctx, "@ros2_lv/1/"+s.ID()+"/1/1/NN/%2F/%2F/late")
	require.NoError(t, err)
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}

func TestDomainsUseSeparateBuckets(t *testing.T) {
	url := startNATS(t)
	ctx := context.Background()

	s0, err := Connect(ctx, url, 0)
	require.NoError(t, err)
	defer s0.Close()
	s7, err := Connect(ctx, url, 7)
	require.NoError(t, err)
	defer s7.Close()

	_, err = s7.DeclareToken(ctx, "@ros2_lv/7/"+s7.ID()+"/1/1/NN/%2F/%2F/elsewhere")
	require.NoError(t, err)

	keys, err := s0.QueryTokens(ctx, "@ros2_lv/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
