package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// AdminPrefix is the first segment of every liveliness keyexpression
// this module declares or understands.
const AdminPrefix = "@ros2_lv"

const (
	segmentsNode     = 9
	segmentsEndpoint = 12
)

// DecodeError describes why a liveliness key could not be decoded.
// Keys arrive from untrusted peers, so decode failures are expected
// operational events, not bugs: callers log and drop them.
type DecodeError struct {
	Key    string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Key == "" {
		return "decode liveliness key: " + e.Reason
	}
	return fmt.Sprintf("decode liveliness key %q: %s", e.Key, e.Reason)
}

// SubscriptionPrefix returns the keyexpression prefix covering every
// liveliness token in the given domain. The discovery engine queries and
// subscribes on this prefix.
func SubscriptionPrefix(domainID int) string {
	return fmt.Sprintf("%s/%d/", AdminPrefix, domainID)
}

// escapeSegment protects free-form fields from segment-separator
// collisions. "%" must be escaped first so unescaping is unambiguous.
func escapeSegment(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, "/", "%2F")
}

func unescapeSegment(s string) (string, error) {
	if strings.Contains(s, "/") {
		return "", fmt.Errorf("raw slash in segment")
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape")
		}
		switch s[i+1 : i+3] {
		case "25":
			b.WriteByte('%')
		case "2F":
			b.WriteByte('/')
		default:
			return "", fmt.Errorf("unknown escape %%%s", s[i+1:i+3])
		}
		i += 2
	}
	return b.String(), nil
}

// Encode renders the entity as its canonical liveliness keyexpression.
// Encode and Decode form a bijection on the set of keys Encode produces.
func Encode(e *Entity) string {
	segments := []string{
		AdminPrefix,
		strconv.Itoa(e.nodeInfo.DomainID),
		e.sessionID, // never contains "/" or "%", enforced at construction
		strconv.FormatUint(e.nodeID, 10),
		strconv.FormatUint(e.entityID, 10),
		kindTokens[e.kind],
		escapeSegment(e.nodeInfo.Enclave),
		escapeSegment(e.nodeInfo.Namespace),
		escapeSegment(e.nodeInfo.Name),
	}
	if e.topicInfo != nil {
		segments = append(segments,
			escapeSegment(e.topicInfo.Name),
			escapeSegment(e.topicInfo.TypeName),
			encodeQoS(e.topicInfo.QoS),
		)
	}
	return strings.Join(segments, "/")
}

// Decode parses a liveliness keyexpression back into an Entity. It is
// the exact inverse of Encode and rejects anything Encode could not have
// produced with a *DecodeError.
func Decode(key string) (*Entity, error) {
	segments := strings.Split(key, "/")
	if len(segments) != segmentsNode && len(segments) != segmentsEndpoint {
		return nil, &DecodeError{Key: key,
			Reason: fmt.Sprintf("expected %d or %d segments, got %d",
				segmentsNode, segmentsEndpoint, len(segments))}
	}
	if segments[0] != AdminPrefix {
		return nil, &DecodeError{Key: key, Reason: "missing " + AdminPrefix + " prefix"}
	}

	domainID, err := strconv.Atoi(segments[1])
	if err != nil || domainID < 0 {
		return nil, &DecodeError{Key: key, Reason: "bad domain id " + segments[1]}
	}
	sessionID := segments[2]
	if sessionID == "" || strings.Contains(sessionID, "%") {
		return nil, &DecodeError{Key: key, Reason: "bad session id " + sessionID}
	}
	nodeID, err := strconv.ParseUint(segments[3], 10, 64)
	if err != nil {
		return nil, &DecodeError{Key: key, Reason: "bad node id " + segments[3]}
	}
	entityID, err := strconv.ParseUint(segments[4], 10, 64)
	if err != nil {
		return nil, &DecodeError{Key: key, Reason: "bad entity id " + segments[4]}
	}
	kind, ok := kindsByToken[segments[5]]
	if !ok {
		return nil, &DecodeError{Key: key, Reason: "unknown kind token " + segments[5]}
	}

	enclave, err := unescapeSegment(segments[6])
	if err != nil {
		return nil, &DecodeError{Key: key, Reason: "enclave: " + err.Error()}
	}
	namespace, err := unescapeSegment(segments[7])
	if err != nil {
		return nil, &DecodeError{Key: key, Reason: "namespace: " + err.Error()}
	}
	name, err := unescapeSegment(segments[8])
	if err != nil {
		return nil, &DecodeError{Key: key, Reason: "name: " + err.Error()}
	}

	info := NodeInfo{
		DomainID:  domainID,
		Namespace: namespace,
		Name:      name,
		Enclave:   enclave,
	}

	if len(segments) == segmentsNode {
		if kind != KindNode {
			return nil, &DecodeError{Key: key, Reason: kind.String() + " entity missing topic segments"}
		}
		if entityID != nodeID {
			return nil, &DecodeError{Key: key, Reason: "node entity id differs from node id"}
		}
		e, err := NewNode(sessionID, nodeID, info)
		if err != nil {
			return nil, &DecodeError{Key: key, Reason: err.Error()}
		}
		return e, nil
	}

	if kind == KindNode {
		return nil, &DecodeError{Key: key, Reason: "node entity carries topic segments"}
	}

	topicName, err := unescapeSegment(segments[9])
	if err != nil {
		return nil, &DecodeError{Key: key, Reason: "topic name: " + err.Error()}
	}
	typeName, err := unescapeSegment(segments[10])
	if err != nil {
		return nil, &DecodeError{Key: key, Reason: "type name: " + err.Error()}
	}
	qos, err := decodeQoS(key, segments[11])
	if err != nil {
		return nil, err
	}

	e, err := NewEndpoint(kind, sessionID, nodeID, entityID, info, TopicInfo{
		Name:     topicName,
		TypeName: typeName,
		QoS:      qos,
	})
	if err != nil {
		return nil, &DecodeError{Key: key, Reason: err.Error()}
	}
	return e, nil
}
