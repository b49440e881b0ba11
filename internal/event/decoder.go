package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Decode validates a raw server frame and converts it into a typed
// Event. Every required field is checked; the caller logs and drops on
// error.
func Decode(data []byte, receivedAt time.Time) (Event, error) {
	var wire eventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Event{}, fmt.Errorf("parse event frame: %w", err)
	}

	if wire.Topic == "" {
		return Event{}, ErrMissingTopic
	}

	kind := Kind(wire.Event)
	if !kind.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, wire.Event)
	}

	if wire.Data == nil {
		return Event{}, ErrMissingData
	}
	if wire.Data.EntityID == "" {
		return Event{}, ErrMissingEntityID
	}
	if wire.Sequence == nil || *wire.Sequence < 1 {
		return Event{}, ErrMissingSequence
	}

	payload := wire.Data.Payload
	if isJSONNull(payload) {
		payload = nil
	}

	// The server sends full entity snapshots on every mutation; only
	// DELETED carries no body.
	if kind == KindDeleted {
		payload = nil
	} else if payload == nil {
		return Event{}, ErrMissingPayload
	}

	return Event{
		Topic:        wire.Topic,
		Kind:         kind,
		EntityID:     wire.Data.EntityID,
		Payload:      payload,
		OriginUserID: wire.Data.UserID,
		Sequence:     *wire.Sequence,
		ReceivedAt:   receivedAt,
	}, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
