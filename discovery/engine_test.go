package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rosgraph/entity"
	"github.com/c360/rosgraph/errors"
	"github.com/c360/rosgraph/graph"
	"github.com/c360/rosgraph/substrate"
	"github.com/c360/rosgraph/testutil"
)

func nodeKey(t *testing.T, session string, nodeID uint64, name string) string {
	t.Helper()
	e, err := entity.NewNode(session, nodeID, entity.NodeInfo{
		DomainID: 0, Namespace: "/", Name: name, Enclave: "/",
	})
	require.NoError(t, err)
	return entity.Encode(e)
}

func TestBootstrapSeedsCache(t *testing.T) {
	session := testutil.NewMockSession()
	ctx := context.Background()

	_, err := session.DeclareToken(ctx, nodeKey(t, "s1", 1, "alpha"))
	require.NoError(t, err)
	_, err = session.DeclareToken(ctx, nodeKey(t, "s2", 1, "beta"))
	require.NoError(t, err)

	cache := graph.NewCache()
	engine := NewEngine(session, cache, 0)
	require.NoError(t, engine.Start(ctx))
	defer engine.Close()

	names := cache.NodeNames()
	require.Len(t, names, 2)
	assert.Equal(t, "alpha", names[0].Name)
	assert.Equal(t, "beta", names[1].Name)
}

func TestBootstrapThenLiveUpdates(t *testing.T) {
	session := testutil.NewMockSession()
	ctx := context.Background()

	keyA := nodeKey(t, "s1", 1, "a")
	keyB := nodeKey(t, "s1", 2, "b")
	keyC := nodeKey(t, "s1", 3, "c")

	_, err := session.DeclareToken(ctx, keyA)
	require.NoError(t, err)
	_, err = session.DeclareToken(ctx, keyB)
	require.NoError(t, err)

	cache := graph.NewCache()
	engine := NewEngine(session, cache, 0)
	require.NoError(t, engine.Start(ctx))
	defer engine.Close()

	// Bootstrap saw [A, B]; the live subscription then delivers
	// delete(A) and put(C).
	session.Inject(substrate.Change{Kind: substrate.ChangeDelete, Key: keyA})
	session.Inject(substrate.Change{Kind: substrate.ChangePut, Key: keyC})

	names := cache.NodeNames()
	require.Len(t, names, 2)
	assert.Equal(t, "b", names[0].Name)
	assert.Equal(t, "c", names[1].Name)
}

func TestDeleteBeforePutIsNoOp(t *testing.T) {
	session := testutil.NewMockSession()
	cache := graph.NewCache()
	engine := NewEngine(session, cache, 0)
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Close()

	key := nodeKey(t, "s9", 1, "ghost")
	session.Inject(substrate.Change{Kind: substrate.ChangeDelete, Key: key})
	assert.Zero(t, cache.Size())

	// A later put revives the entry.
	session.Inject(substrate.Change{Kind: substrate.ChangePut, Key: key})
	assert.Equal(t, 1, cache.Size())
}

func TestMalformedLiveKeyIsDropped(t *testing.T) {
	session := testutil.NewMockSession()
	cache := graph.NewCache()
	engine := NewEngine(session, cache, 0)
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Close()

	session.Inject(substrate.Change{Kind: substrate.ChangePut, Key: "@ros2_lv/0/garbage"})
	session.Inject(substrate.Change{Kind: substrate.ChangePut, Key: nodeKey(t, "s1", 1, "ok")})

	assert.Equal(t, 1, cache.Size())
}

func TestDomainPrefixFiltersForeignDomains(t *testing.T) {
	session := testutil.NewMockSession()
	ctx := context.Background()

	domain7, err := entity.NewNode("s1", 1, entity.NodeInfo{
		DomainID: 7, Namespace: "/", Name: "other", Enclave: "/",
	})
	require.NoError(t, err)
	_, err = session.DeclareToken(ctx, entity.Encode(domain7))
	require.NoError(t, err)
	_, err = session.DeclareToken(ctx, nodeKey(t, "s1", 2, "mine"))
	require.NoError(t, err)

	cache := graph.NewCache()
	engine := NewEngine(session, cache, 0)
	require.NoError(t, engine.Start(ctx))
	defer engine.Close()

	names := cache.NodeNames()
	require.Len(t, names, 1)
	assert.Equal(t, "mine", names[0].Name)

	// Changes for the foreign domain never reach this engine either.
	session.Inject(substrate.Change{Kind: substrate.ChangeDelete, Key: entity.Encode(domain7)})
	assert.Equal(t, 1, cache.Size())
}

func TestStartFailsFatallyOnQueryError(t *testing.T) {
	session := testutil.NewMockSession()
	session.FailQuery = fmt.Errorf("broker unreachable")

	engine := NewEngine(session, graph.NewCache(), 0)
	err := engine.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Zero(t, session.SubscriberCount(), "no subscription may survive a failed start")
}

func TestStartFailsFatallyOnSubscribeError(t *testing.T) {
	session := testutil.NewMockSession()
	session.FailSubscribe = fmt.Errorf("subscription refused")

	engine := NewEngine(session, graph.NewCache(), 0)
	err := engine.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestDoubleStartRejected(t *testing.T) {
	session := testutil.NewMockSession()
	engine := NewEngine(session, graph.NewCache(), 0)
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Close()

	assert.Error(t, engine.Start(context.Background()))
}

func TestCloseStopsDelivery(t *testing.T) {
	session := testutil.NewMockSession()
	cache := graph.NewCache()
	engine := NewEngine(session, cache, 0)
	require.NoError(t, engine.Start(context.Background()))

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close(), "close is idempotent")

	session.Inject(substrate.Change{Kind: substrate.ChangePut, Key: nodeKey(t, "s1", 1, "late")})
	assert.Zero(t, cache.Size())
}
