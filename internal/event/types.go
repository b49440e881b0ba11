package event

import (
	"encoding/json"
	"errors"
	"time"
)

// Kind classifies a mutation event.
type Kind string

const (
	KindAdded         Kind = "ADDED"
	KindUpdated       Kind = "UPDATED"
	KindDeleted       Kind = "DELETED"
	KindStatusChanged Kind = "STATUS_CHANGED"
)

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAdded, KindUpdated, KindDeleted, KindStatusChanged:
		return true
	}
	return false
}

// Decode errors.
var (
	// ErrUnknownKind marks a frame with an unrecognized event kind.
	// Future server versions may add kinds; old clients drop them
	// instead of crashing.
	ErrUnknownKind = errors.New("unknown event kind")

	ErrMissingTopic    = errors.New("missing topic")
	ErrMissingData     = errors.New("missing data object")
	ErrMissingEntityID = errors.New("missing entity_id")
	ErrMissingSequence = errors.New("missing or invalid sequence")
	ErrMissingPayload  = errors.New("missing payload")
)

// Event is one immutable mutation fact pushed by the server. The
// payload is the entity's full new representation, never a diff; it is
// nil only for DELETED.
type Event struct {
	Topic        string
	Kind         Kind
	EntityID     string
	Payload      json.RawMessage
	OriginUserID string
	Sequence     int64
	ReceivedAt   time.Time
}

// eventWire is the server frame format.
type eventWire struct {
	Topic    string     `json:"topic"`
	Event    string     `json:"event"`
	Data     *eventData `json:"data"`
	Sequence *int64     `json:"sequence"`
}

type eventData struct {
	EntityID string          `json:"entity_id"`
	Payload  json.RawMessage `json:"payload"`
	UserID   string          `json:"user_id"`
}
