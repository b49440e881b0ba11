package event

import (
	"errors"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	raw := []byte(`{
		"topic": "list:42",
		"event": "UPDATED",
		"data": {
			"entity_id": "gift-7",
			"payload": {"id": "gift-7", "name": "scarf", "status": "purchased"},
			"user_id": "user-a"
		},
		"sequence": 12
	}`)

	now := time.Now()
	ev, err := Decode(raw, now)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if ev.Topic != "list:42" {
		t.Errorf("Topic = %q, want list:42", ev.Topic)
	}
	if ev.Kind != KindUpdated {
		t.Errorf("Kind = %q, want UPDATED", ev.Kind)
	}
	if ev.EntityID != "gift-7" {
		t.Errorf("EntityID = %q, want gift-7", ev.EntityID)
	}
	if ev.OriginUserID != "user-a" {
		t.Errorf("OriginUserID = %q, want user-a", ev.OriginUserID)
	}
	if ev.Sequence != 12 {
		t.Errorf("Sequence = %d, want 12", ev.Sequence)
	}
	if len(ev.Payload) == 0 {
		t.Error("Payload should be preserved")
	}
	if !ev.ReceivedAt.Equal(now) {
		t.Errorf("ReceivedAt = %v, want %v", ev.ReceivedAt, now)
	}
}

func TestDecode_DeletedDropsPayload(t *testing.T) {
	raw := []byte(`{
		"topic": "gifts",
		"event": "DELETED",
		"data": {"entity_id": "gift-7", "payload": null, "user_id": "user-a"},
		"sequence": 3
	}`)

	ev, err := Decode(raw, time.Now())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev.Payload != nil {
		t.Errorf("Payload = %q, want nil for DELETED", ev.Payload)
	}
}

func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name:    "not json",
			raw:     `{{{`,
			wantErr: nil, // any error is acceptable
		},
		{
			name:    "missing topic",
			raw:     `{"event": "ADDED", "data": {"entity_id": "e1", "payload": {}}, "sequence": 1}`,
			wantErr: ErrMissingTopic,
		},
		{
			name:    "unknown kind",
			raw:     `{"topic": "gifts", "event": "ARCHIVED", "data": {"entity_id": "e1", "payload": {}}, "sequence": 1}`,
			wantErr: ErrUnknownKind,
		},
		{
			name:    "missing data",
			raw:     `{"topic": "gifts", "event": "ADDED", "sequence": 1}`,
			wantErr: ErrMissingData,
		},
		{
			name:    "missing entity id",
			raw:     `{"topic": "gifts", "event": "ADDED", "data": {"payload": {}}, "sequence": 1}`,
			wantErr: ErrMissingEntityID,
		},
		{
			name:    "missing sequence",
			raw:     `{"topic": "gifts", "event": "ADDED", "data": {"entity_id": "e1", "payload": {}}}`,
			wantErr: ErrMissingSequence,
		},
		{
			name:    "zero sequence",
			raw:     `{"topic": "gifts", "event": "ADDED", "data": {"entity_id": "e1", "payload": {}}, "sequence": 0}`,
			wantErr: ErrMissingSequence,
		},
		{
			name:    "added without payload",
			raw:     `{"topic": "gifts", "event": "ADDED", "data": {"entity_id": "e1"}, "sequence": 1}`,
			wantErr: ErrMissingPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw), time.Now())
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindAdded, KindUpdated, KindDeleted, KindStatusChanged} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if Kind("RENAMED").Valid() {
		t.Error("unknown kind should not be valid")
	}
}
