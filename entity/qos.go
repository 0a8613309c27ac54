package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Reliability is the delivery guarantee requested for a topic endpoint.
type Reliability int

// Reliability values
const (
	ReliabilityBestEffort Reliability = iota
	ReliabilityReliable
)

// Durability controls whether late joiners see earlier samples.
type Durability int

// Durability values
const (
	DurabilityVolatile Durability = iota
	DurabilityTransientLocal
)

// History selects how many samples per topic are retained.
type History int

// History values
const (
	HistoryKeepLast History = iota
	HistoryKeepAll
)

// QoSProfile is the subset of QoS settings that participates in
// discovery and matching. It is encoded into the keyexpression as a
// single segment, so two endpoints on the same topic can compare
// profiles without any extra round trip.
type QoSProfile struct {
	Reliability Reliability `json:"reliability"`
	Durability  Durability  `json:"durability"`
	History     History     `json:"history"`
	Depth       int         `json:"depth"`
}

// DefaultQoS returns the profile applied when callers pass a zero profile:
// reliable delivery, volatile durability, keep-last with a depth of 10.
func DefaultQoS() QoSProfile {
	return QoSProfile{
		Reliability: ReliabilityReliable,
		Durability:  DurabilityVolatile,
		History:     HistoryKeepLast,
		Depth:       10,
	}
}

func (r Reliability) String() string {
	if r == ReliabilityReliable {
		return "reliable"
	}
	return "best_effort"
}

func (d Durability) String() string {
	if d == DurabilityTransientLocal {
		return "transient_local"
	}
	return "volatile"
}

func (h History) String() string {
	if h == HistoryKeepAll {
		return "keep_all"
	}
	return "keep_last"
}

// encodeQoS renders the profile as the keyexpression segment
// "<reliability>:<durability>:<history>,<depth>". None of the component
// tokens contain "/" or "%", so the segment needs no escaping.
func encodeQoS(q QoSProfile) string {
	return fmt.Sprintf("%s:%s:%s,%d", q.Reliability, q.Durability, q.History, q.Depth)
}

// decodeQoS parses one qos segment. key is the full liveliness key the
// segment came from, carried into errors so decode failures always name
// the offending key.
func decodeQoS(key, segment string) (QoSProfile, error) {
	parts := strings.Split(segment, ":")
	if len(parts) != 3 {
		return QoSProfile{}, &DecodeError{Key: key, Reason: "qos: expected 3 colon-delimited fields"}
	}

	var q QoSProfile
	switch parts[0] {
	case "reliable":
		q.Reliability = ReliabilityReliable
	case "best_effort":
		q.Reliability = ReliabilityBestEffort
	default:
		return QoSProfile{}, &DecodeError{Key: key, Reason: "qos: unknown reliability " + parts[0]}
	}

	switch parts[1] {
	case "volatile":
		q.Durability = DurabilityVolatile
	case "transient_local":
		q.Durability = DurabilityTransientLocal
	default:
		return QoSProfile{}, &DecodeError{Key: key, Reason: "qos: unknown durability " + parts[1]}
	}

	histDepth := strings.Split(parts[2], ",")
	if len(histDepth) != 2 {
		return QoSProfile{}, &DecodeError{Key: key, Reason: "qos: expected history,depth"}
	}
	switch histDepth[0] {
	case "keep_last":
		q.History = HistoryKeepLast
	case "keep_all":
		q.History = HistoryKeepAll
	default:
		return QoSProfile{}, &DecodeError{Key: key, Reason: "qos: unknown history " + histDepth[0]}
	}

	depth, err := strconv.Atoi(histDepth[1])
	if err != nil || depth < 0 {
		return QoSProfile{}, &DecodeError{Key: key, Reason: "qos: bad depth " + histDepth[1]}
	}
	q.Depth = depth

	return q, nil
}
