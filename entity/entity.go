package entity

import (
	"fmt"
	"strings"
)

// NodeInfo identifies the logical process participant an entity belongs to.
type NodeInfo struct {
	DomainID  int    `json:"domain_id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Enclave   string `json:"enclave"`
}

// TopicInfo describes the topic or service an endpoint entity is bound
// to. It is present only for publisher, subscriber, service, and client
// kinds.
type TopicInfo struct {
	Name     string     `json:"name"`
	TypeName string     `json:"type_name"`
	QoS      QoSProfile `json:"qos"`
}

// Entity is one graph participant. (SessionID, NodeID, EntityID) is
// globally unique and exactly recoverable from the encoded keyexpression.
//
// Entities are immutable once constructed. A changed QoS or name is a
// different entity: delete the old token and declare a new one, never
// mutate in place.
type Entity struct {
	sessionID string
	nodeID    uint64
	entityID  uint64
	kind      Kind
	nodeInfo  NodeInfo
	topicInfo *TopicInfo
}

// validateSessionID rejects session ids the keyexpression cannot carry.
// Session ids are opaque substrate identifiers (uuid or hex strings) and
// occupy an unescaped segment, so "/" and "%" must not appear in them.
func validateSessionID(id string) error {
	if id == "" {
		return &DecodeError{Reason: "empty session id"}
	}
	if strings.ContainsAny(id, "/%") {
		return &DecodeError{Reason: fmt.Sprintf("session id %q contains a reserved character", id)}
	}
	return nil
}

// NewNode constructs a node entity. The entity id of a node is its own
// node id by construction, matching the id the context allocated for it.
func NewNode(sessionID string, nodeID uint64, info NodeInfo) (*Entity, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}
	if err := ValidateNodeName(info.Name); err != nil {
		return nil, err
	}
	if err := ValidateNamespace(info.Namespace); err != nil {
		return nil, err
	}
	return &Entity{
		sessionID: sessionID,
		nodeID:    nodeID,
		entityID:  nodeID,
		kind:      KindNode,
		nodeInfo:  info,
	}, nil
}

// NewEndpoint constructs a publisher, subscriber, service, or client
// entity belonging to the node identified by nodeID.
func NewEndpoint(
	kind Kind,
	sessionID string,
	nodeID, entityID uint64,
	info NodeInfo,
	topic TopicInfo,
) (*Entity, error) {
	if !kind.HasTopic() {
		return nil, fmt.Errorf("entity.NewEndpoint: kind %s is not an endpoint", kind)
	}
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}
	if err := ValidateNodeName(info.Name); err != nil {
		return nil, err
	}
	if err := ValidateNamespace(info.Namespace); err != nil {
		return nil, err
	}
	if err := ValidateTopicName(topic.Name); err != nil {
		return nil, err
	}
	if topic.TypeName == "" {
		return nil, &DecodeError{Reason: "empty type name"}
	}
	t := topic
	return &Entity{
		sessionID: sessionID,
		nodeID:    nodeID,
		entityID:  entityID,
		kind:      kind,
		nodeInfo:  info,
		topicInfo: &t,
	}, nil
}

// SessionID returns the substrate session this entity was created under
func (e *Entity) SessionID() string { return e.sessionID }

// NodeID returns the id of the owning node, unique within the session
func (e *Entity) NodeID() uint64 { return e.nodeID }

// EntityID returns the id of this entity, unique within the node
func (e *Entity) EntityID() uint64 { return e.entityID }

// Kind returns the entity kind
func (e *Entity) Kind() Kind { return e.kind }

// NodeInfo returns the identity of the owning node
func (e *Entity) NodeInfo() NodeInfo { return e.nodeInfo }

// TopicInfo returns a copy of the topic metadata, or nil for nodes
func (e *Entity) TopicInfo() *TopicInfo {
	if e.topicInfo == nil {
		return nil
	}
	t := *e.topicInfo
	return &t
}

// Equal reports whether two entities are identical in identity and metadata
func (e *Entity) Equal(other *Entity) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.sessionID != other.sessionID ||
		e.nodeID != other.nodeID ||
		e.entityID != other.entityID ||
		e.kind != other.kind ||
		e.nodeInfo != other.nodeInfo {
		return false
	}
	if (e.topicInfo == nil) != (other.topicInfo == nil) {
		return false
	}
	if e.topicInfo != nil && *e.topicInfo != *other.topicInfo {
		return false
	}
	return true
}

// String formats the entity for logs
func (e *Entity) String() string {
	if e.topicInfo != nil {
		return fmt.Sprintf("%s %s (session %s, topic %s)", e.kind,
			e.nodeInfo.FullyQualifiedName(), e.sessionID, e.topicInfo.Name)
	}
	return fmt.Sprintf("%s %s (session %s)", e.kind, e.nodeInfo.FullyQualifiedName(), e.sessionID)
}
