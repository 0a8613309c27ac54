package entity

import "encoding/json"

// Kind identifies what role an entity plays in the graph. The set is
// closed: codec and cache logic switch exhaustively over it.
type Kind int

const (
	// KindNode is a logical process participant. Its entity id is always 0.
	KindNode Kind = iota
	// KindPublisher is a message publisher on a topic.
	KindPublisher
	// KindSubscriber is a message subscriber on a topic.
	KindSubscriber
	// KindService is a service server.
	KindService
	// KindClient is a service client.
	KindClient
)

// kindTokens are the fixed discriminators used in the keyexpression.
// NN/MP/MS/SS/SC mirror the original wire contract and must not change.
var kindTokens = map[Kind]string{
	KindNode:       "NN",
	KindPublisher:  "MP",
	KindSubscriber: "MS",
	KindService:    "SS",
	KindClient:     "SC",
}

var kindsByToken = map[string]Kind{
	"NN": KindNode,
	"MP": KindPublisher,
	"MS": KindSubscriber,
	"SS": KindService,
	"SC": KindClient,
}

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindPublisher:
		return "publisher"
	case KindSubscriber:
		return "subscriber"
	case KindService:
		return "service"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// IsValid checks if the Kind is one of the defined constants
func (k Kind) IsValid() bool {
	_, ok := kindTokens[k]
	return ok
}

// HasTopic reports whether entities of this kind carry topic metadata
func (k Kind) HasTopic() bool {
	return k != KindNode && k.IsValid()
}

// MarshalJSON serializes the kind as its human-readable name
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}
