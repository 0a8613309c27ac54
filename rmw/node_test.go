package rmw

import (
	"context"
	"fmt"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rosgraph/entity"
	"github.com/c360/rosgraph/errors"
	"github.com/c360/rosgraph/events"
	"github.com/c360/rosgraph/metric"
	"github.com/c360/rosgraph/testutil"
)

func chatterTopic() entity.TopicInfo {
	return entity.TopicInfo{
		Name:     "/chatter",
		TypeName: "std_msgs/msg/String",
		QoS:      entity.DefaultQoS(),
	}
}

func testNode(t *testing.T) (*Context, *NodeData) {
	t.Helper()
	c, _ := openContext(t)
	nd, err := c.CreateNode(context.Background(), 1, "/", "talker")
	require.NoError(t, err)
	return c, nd
}

func TestCreatePublisherData(t *testing.T) {
	c, nd := testNode(t)
	ctx := context.Background()

	pd, err := nd.CreatePublisherData(ctx, 10, chatterTopic())
	require.NoError(t, err)

	ent := pd.Entity()
	assert.Equal(t, entity.KindPublisher, ent.Kind())
	assert.Equal(t, nd.Entity().NodeID(), ent.NodeID())
	assert.NotEqual(t, ent.NodeID(), ent.EntityID())

	// The endpoint is discoverable through the context's own graph.
	pubs := c.Graph().SnapshotFor("/chatter", entity.KindPublisher)
	require.Len(t, pubs, 1)
	assert.Equal(t, ent.EntityID(), pubs[0].EntityID())
}

func TestNoDuplicateEndpointCreate(t *testing.T) {
	_, nd := testNode(t)
	ctx := context.Background()

	_, err := nd.CreatePublisherData(ctx, 10, chatterTopic())
	require.NoError(t, err)

	_, err = nd.CreatePublisherData(ctx, 10, chatterTopic())
	require.ErrorIs(t, err, errors.ErrDuplicateHandle)

	// Exactly one entry remains.
	_, ok := nd.GetPublisherData(10)
	assert.True(t, ok)

	// The same handle value is free in the other registries.
	_, err = nd.CreateSubscriptionData(ctx, 10, chatterTopic())
	assert.NoError(t, err)
}

func TestGetAndDeleteEndpointData(t *testing.T) {
	c, nd := testNode(t)
	ctx := context.Background()

	sd, err := nd.CreateSubscriptionData(ctx, 20, chatterTopic())
	require.NoError(t, err)

	got, ok := nd.GetSubscriptionData(20)
	require.True(t, ok)
	assert.Same(t, sd, got)

	_, ok = nd.GetSubscriptionData(21)
	assert.False(t, ok, "absent handle is a miss, not an error")

	require.NoError(t, nd.DeleteSubscriptionData(ctx, 20))
	_, ok = nd.GetSubscriptionData(20)
	assert.False(t, ok)
	assert.Empty(t, c.Graph().SnapshotFor("/chatter", entity.KindSubscriber))

	assert.NoError(t, nd.DeleteSubscriptionData(ctx, 20), "repeat delete is a no-op")
}

func TestServiceAndClientRegistries(t *testing.T) {
	c, nd := testNode(t)
	ctx := context.Background()

	service := entity.TopicInfo{
		Name:     "/add_two_ints",
		TypeName: "example_interfaces/srv/AddTwoInts",
		QoS:      entity.DefaultQoS(),
	}

	sd, err := nd.CreateServiceData(ctx, 1, service)
	require.NoError(t, err)
	assert.Equal(t, entity.KindService, sd.Entity().Kind())

	cd, err := nd.CreateClientData(ctx, 1, service)
	require.NoError(t, err)
	assert.Equal(t, entity.KindClient, cd.Entity().Kind())

	assert.Equal(t, 1, c.Graph().CountEntities("/add_two_ints", entity.KindService))
	assert.Equal(t, 1, c.Graph().CountEntities("/add_two_ints", entity.KindClient))

	require.NoError(t, nd.DeleteServiceData(ctx, 1))
	require.NoError(t, nd.DeleteClientData(ctx, 1))
	assert.Zero(t, c.Graph().CountEntities("/add_two_ints", entity.KindService))
}

func TestNodeShutdownTearsDownChildren(t *testing.T) {
	c, nd := testNode(t)
	ctx := context.Background()

	pd, err := nd.CreatePublisherData(ctx, 10, chatterTopic())
	require.NoError(t, err)

	require.NoError(t, nd.Shutdown(ctx))
	assert.True(t, pd.IsShutdown())
	assert.Empty(t, c.Graph().SnapshotFor("/chatter", entity.KindPublisher))
	assert.Empty(t, c.Graph().NodeNames())

	require.NoError(t, nd.Shutdown(ctx), "node shutdown is idempotent")

	_, err = nd.CreatePublisherData(ctx, 11, chatterTopic())
	require.ErrorIs(t, err, errors.ErrShutdown)
}

func TestUndeclareMetricCountsOnlySuccesses(t *testing.T) {
	session := testutil.NewMockSession()
	metrics := metric.NewMetricsRegistry().CoreMetrics()
	c, err := Open(context.Background(), session, 0, "/", WithMetrics(metrics))
	require.NoError(t, err)
	ctx := context.Background()

	nd, err := c.CreateNode(ctx, 1, "/", "talker")
	require.NoError(t, err)
	other, err := c.CreateNode(ctx, 2, "/", "listener")
	require.NoError(t, err)

	require.NoError(t, other.Shutdown(ctx))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.TokensUndeclared))

	// A failed undeclare leaves the token on the substrate, so it must
	// not count as undeclared.
	session.FailUndeclare = fmt.Errorf("broker unreachable")
	require.Error(t, nd.Shutdown(ctx))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.TokensUndeclared))

	session.FailUndeclare = nil
	_ = c.Shutdown(ctx)
}

func TestEndpointEventManagers(t *testing.T) {
	_, nd := testNode(t)

	pd, err := nd.CreatePublisherData(context.Background(), 10, chatterTopic())
	require.NoError(t, err)

	pd.Events().UpdateStatus(events.PublicationMatched, 1)
	status := pd.Events().TakeStatus(events.PublicationMatched)
	assert.Equal(t, int64(1), status.CurrentCount)

	var flushed uint64
	pd.DataCallbacks().Trigger()
	pd.DataCallbacks().SetCallback(nil, func(_ any, count uint64) { flushed = count })
	assert.Equal(t, uint64(1), flushed)
}
