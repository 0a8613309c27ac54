package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rosgraph/errors"
)

func TestValidateNodeName(t *testing.T) {
	valid := []string{"talker", "nav_stack", "camera2", "N"}
	for _, name := range valid {
		assert.NoError(t, ValidateNodeName(name), name)
	}

	invalid := []string{"", "2fast", "with-dash", "with/slash", "with space", "pct%name"}
	for _, name := range invalid {
		err := ValidateNodeName(name)
		require.Error(t, err, name)
		assert.True(t, errors.IsInvalid(err), name)
	}
}

func TestValidateNamespace(t *testing.T) {
	valid := []string{"/", "/fleet", "/fleet/alpha", "/a/b/c"}
	for _, ns := range valid {
		assert.NoError(t, ValidateNamespace(ns), ns)
	}

	invalid := []string{"", "relative", "/trailing/", "//double", "/bad-seg"}
	for _, ns := range invalid {
		assert.Error(t, ValidateNamespace(ns), ns)
	}
}

func TestValidateTopicName(t *testing.T) {
	valid := []string{"/chatter", "/fleet/cmd_vel", "/a/b/c"}
	for _, name := range valid {
		assert.NoError(t, ValidateTopicName(name), name)
	}

	invalid := []string{"", "/", "chatter", "/chatter/", "/bad name"}
	for _, name := range invalid {
		assert.Error(t, ValidateTopicName(name), name)
	}
}

func TestFullyQualifiedName(t *testing.T) {
	assert.Equal(t, "/talker", NodeInfo{Namespace: "/", Name: "talker"}.FullyQualifiedName())
	assert.Equal(t, "/fleet/talker", NodeInfo{Namespace: "/fleet", Name: "talker"}.FullyQualifiedName())
}

func TestKindProperties(t *testing.T) {
	assert.False(t, KindNode.HasTopic())
	for _, k := range []Kind{KindPublisher, KindSubscriber, KindService, KindClient} {
		assert.True(t, k.HasTopic(), k.String())
	}
	assert.False(t, Kind(99).IsValid())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestNewEndpointRejectsNodeKind(t *testing.T) {
	_, err := NewEndpoint(KindNode, "s", 1, 2,
		NodeInfo{Namespace: "/", Name: "n"},
		TopicInfo{Name: "/t", TypeName: "T", QoS: DefaultQoS()})
	require.Error(t, err)
}

func TestEntitiesAreImmutableCopies(t *testing.T) {
	e := mustEndpoint(t, KindPublisher, "/chatter", "std_msgs/msg/String", DefaultQoS())

	ti := e.TopicInfo()
	ti.Name = "/hijacked"

	assert.Equal(t, "/chatter", e.TopicInfo().Name, "TopicInfo must return a copy")
}
