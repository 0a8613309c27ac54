package rmw

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rosgraph/entity"
	"github.com/c360/rosgraph/errors"
	"github.com/c360/rosgraph/substrate"
	"github.com/c360/rosgraph/testutil"
)

func openContext(t *testing.T) (*Context, *testutil.MockSession) {
	t.Helper()
	session := testutil.NewMockSession()
	c, err := Open(context.Background(), session, 0, "/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c, session
}

func remoteNodeKey(t *testing.T, session string, nodeID uint64, name string) string {
	t.Helper()
	e, err := entity.NewNode(session, nodeID, entity.NodeInfo{
		DomainID: 0, Namespace: "/", Name: name, Enclave: "/",
	})
	require.NoError(t, err)
	return entity.Encode(e)
}

func TestOpenReachesRunning(t *testing.T) {
	c, _ := openContext(t)

	assert.Equal(t, Running, c.State())
	assert.False(t, c.IsShutdown())
	assert.Equal(t, 0, c.DomainID())
	assert.Equal(t, "/", c.Enclave())
}

func TestOpenUnwindsOnSubscribeFailure(t *testing.T) {
	session := testutil.NewMockSession()
	session.FailSubscribe = fmt.Errorf("refused")

	_, err := Open(context.Background(), session, 0, "/")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	// The session was unwound: later use fails.
	_, err = session.QueryTokens(context.Background(), "@ros2_lv/0/")
	assert.Error(t, err)
}

func TestOpenRejectsNegativeDomain(t *testing.T) {
	_, err := Open(context.Background(), testutil.NewMockSession(), -1, "/")
	assert.Error(t, err)
}

func TestLocalNodeAppearsInOwnGraph(t *testing.T) {
	c, session := openContext(t)

	nd, err := c.CreateNode(context.Background(), 1, "/robot", "camera")
	require.NoError(t, err)
	assert.True(t, session.HasToken(entity.Encode(nd.Entity())))

	// The declaration fans back through the live subscription.
	names := c.Graph().NodeNames()
	require.Len(t, names, 1)
	assert.Equal(t, "camera", names[0].Name)
	assert.Equal(t, "/robot", names[0].Namespace)
}

func TestCreateNodeDuplicateHandle(t *testing.T) {
	c, _ := openContext(t)
	ctx := context.Background()

	_, err := c.CreateNode(ctx, 1, "/", "first")
	require.NoError(t, err)

	_, err = c.CreateNode(ctx, 1, "/", "second")
	require.ErrorIs(t, err, errors.ErrDuplicateHandle)
	assert.Equal(t, 1, c.NodeCount())
}

func TestCreateNodeValidatesNames(t *testing.T) {
	c, _ := openContext(t)
	ctx := context.Background()

	_, err := c.CreateNode(ctx, 1, "/", "9starts_with_digit")
	assert.Error(t, err)
	_, err = c.CreateNode(ctx, 2, "relative/ns", "ok")
	assert.Error(t, err)
	assert.Zero(t, c.NodeCount())
}

func TestDeleteNodeUndeclaresToken(t *testing.T) {
	c, session := openContext(t)
	ctx := context.Background()

	nd, err := c.CreateNode(ctx, 1, "/", "transient")
	require.NoError(t, err)
	key := entity.Encode(nd.Entity())

	require.NoError(t, c.DeleteNode(ctx, 1))
	assert.False(t, session.HasToken(key))
	assert.Empty(t, c.Graph().NodeNames())

	// Unknown handle is a no-op.
	assert.NoError(t, c.DeleteNode(ctx, 99))
}

func TestEntityIDsAreUniqueAndIncreasing(t *testing.T) {
	c, _ := openContext(t)
	ctx := context.Background()

	seen := make(map[uint64]bool)
	var last uint64
	for h := uint64(1); h <= 5; h++ {
		nd, err := c.CreateNode(ctx, h, "/", fmt.Sprintf("node%d", h))
		require.NoError(t, err)

		id := nd.Entity().NodeID()
		assert.False(t, seen[id])
		seen[id] = true
		if h > 1 {
			assert.Greater(t, id, last)
		}
		last = id

		// A node announces itself with entity id equal to node id.
		assert.Equal(t, id, nd.Entity().EntityID())
	}
}

func TestShutdownIsIdempotentAndCascades(t *testing.T) {
	session := testutil.NewMockSession()
	c, err := Open(context.Background(), session, 0, "/")
	require.NoError(t, err)
	ctx := context.Background()

	nd, err := c.CreateNode(ctx, 1, "/", "parent")
	require.NoError(t, err)
	_, err = nd.CreatePublisherData(ctx, 10, entity.TopicInfo{
		Name: "/chatter", TypeName: "std_msgs/msg/String", QoS: entity.DefaultQoS(),
	})
	require.NoError(t, err)

	require.NoError(t, c.Shutdown(ctx))
	assert.True(t, c.IsShutdown())
	assert.Zero(t, session.TokenCount(), "all liveliness tokens undeclared")

	require.NoError(t, c.Shutdown(ctx), "second shutdown is a no-op")

	_, err = c.CreateNode(ctx, 2, "/", "late")
	require.ErrorIs(t, err, errors.ErrShutdown)
}

func TestShutdownRaceWithDiscoveryCallbacks(t *testing.T) {
	session := testutil.NewMockSession()
	c, err := Open(context.Background(), session, 0, "/")
	require.NoError(t, err)

	keys := make([]string, 500)
	for i := range keys {
		keys[i] = remoteNodeKey(t, "remote", uint64(i+1), fmt.Sprintf("n%d", i))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, key := range keys {
			session.Inject(substrate.Change{Kind: substrate.ChangePut, Key: key})
		}
	}()

	require.NoError(t, c.Shutdown(context.Background()))
	wg.Wait()

	// After shutdown no further delivery mutates the cache.
	size := c.Graph().Size()
	session.Inject(substrate.Change{
		Kind: substrate.ChangePut,
		Key:  remoteNodeKey(t, "remote", 9999, "straggler"),
	})
	assert.Equal(t, size, c.Graph().Size())
}

func TestConcurrentContextsAreIndependent(t *testing.T) {
	c1, s1 := openContext(t)
	c2, _ := openContext(t)

	s1.Inject(substrate.Change{Kind: substrate.ChangePut, Key: remoteNodeKey(t, "r", 1, "only_one")})

	assert.Equal(t, 1, c1.Graph().Size())
	assert.Zero(t, c2.Graph().Size())
}
