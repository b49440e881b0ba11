package cache

import (
	"encoding/json"
	"slices"

	"github.com/miethe/family-shopping-dashboard-sub003/internal/event"
)

// ApplyResult reports what an event did to the cache.
type ApplyResult int

const (
	// ResultApplied means the event's payload is now the entry value.
	ResultApplied ApplyResult = iota

	// ResultStale means the event was a duplicate or arrived after a
	// newer one and was discarded. Expected and frequent; not an
	// error.
	ResultStale

	// ResultRemoved means a DELETED event removed the entry.
	ResultRemoved
)

// Apply folds one server event into the cache entry for
// (event.Topic, event.EntityID).
//
// Rules, in order: discard if the sequence is not newer than what the
// entry (or its tombstone) already reflects; otherwise adopt the
// payload wholesale. Sequence gaps are fine because payloads are full
// snapshots. If an optimistic local write is pending, the server
// payload wins either way: a same-user event confirms it, a
// different-user event supersedes it (whole-entity replace; an
// in-flight edit may be overwritten, which is the accepted policy).
func (s *Store) Apply(ev event.Event) ApplyResult {
	s.mu.Lock()

	entries := s.topics[ev.Topic]
	entry := entries[ev.EntityID]

	// Duplicate / out-of-order rejection against the live entry.
	if entry != nil && ev.Sequence <= entry.LastAppliedSequence {
		s.stats.Stale++
		s.mu.Unlock()
		return ResultStale
	}

	// A removed entity's tombstone blocks reordered stragglers from
	// resurrecting it; an event genuinely newer than the delete may.
	if entry == nil {
		if deletedAt, ok := s.tombstones[ev.Topic][ev.EntityID]; ok {
			if ev.Sequence <= deletedAt {
				s.stats.Stale++
				s.mu.Unlock()
				return ResultStale
			}
			delete(s.tombstones[ev.Topic], ev.EntityID)
		}
	}

	if ev.Kind == event.KindDeleted {
		if entries != nil {
			delete(entries, ev.EntityID)
		}
		if s.tombstones[ev.Topic] == nil {
			s.tombstones[ev.Topic] = make(map[string]int64)
		}
		s.tombstones[ev.Topic][ev.EntityID] = ev.Sequence
		if len(s.tombstones[ev.Topic]) > maxTopicTombstones {
			s.pruneTombstonesLocked(ev.Topic)
		}
		s.stats.Removed++
		s.mu.Unlock()

		s.logger.Debug("entity removed",
			"topic", ev.Topic,
			"entity_id", ev.EntityID,
			"sequence", ev.Sequence,
		)
		s.notify(ev.Topic)
		return ResultRemoved
	}

	if entries == nil {
		entries = make(map[string]*Entry)
		s.topics[ev.Topic] = entries
	}
	if entry == nil {
		entry = &Entry{}
		entries[ev.EntityID] = entry
	}

	if entry.PendingLocalMutation {
		if ev.OriginUserID == s.localUserID {
			s.stats.Confirmed++
			s.logger.Debug("optimistic write confirmed by event",
				"topic", ev.Topic,
				"entity_id", ev.EntityID,
				"sequence", ev.Sequence,
			)
		} else {
			s.logger.Debug("optimistic write superseded by concurrent change",
				"topic", ev.Topic,
				"entity_id", ev.EntityID,
				"origin", ev.OriginUserID,
			)
		}
		entry.PendingLocalMutation = false
	}

	entry.Value = ev.Payload
	entry.LastAppliedSequence = ev.Sequence
	s.stats.Applied++
	s.mu.Unlock()

	s.notify(ev.Topic)
	return ResultApplied
}

// maxTopicTombstones caps delete markers per topic. A straggler only
// needs its tombstone for the transport's reorder window; markers far
// older than the newest deletes guard against nothing.
const maxTopicTombstones = 1024

// pruneTombstonesLocked drops the older half of a topic's tombstones
// by delete sequence. Caller holds s.mu.
func (s *Store) pruneTombstonesLocked(topic string) {
	ts := s.tombstones[topic]
	seqs := make([]int64, 0, len(ts))
	for _, seq := range ts {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	cutoff := seqs[len(seqs)/2]
	for id, seq := range ts {
		if seq < cutoff {
			delete(ts, id)
		}
	}
}

// MarkPending records that a local optimistic write for the entity is
// in flight. Creates the entry if this is a local create.
func (s *Store) MarkPending(topic, entityID string) {
	s.mu.Lock()
	entries := s.topics[topic]
	if entries == nil {
		entries = make(map[string]*Entry)
		s.topics[topic] = entries
	}
	entry := entries[entityID]
	if entry == nil {
		entry = &Entry{}
		entries[entityID] = entry
	}
	entry.PendingLocalMutation = true
	s.mu.Unlock()
}

// ClearPending drops the pending marker without touching the value.
// Used when a local call fails, and after a successful DELETE whose
// entry removal belongs to the server's DELETED event.
func (s *Store) ClearPending(topic, entityID string) {
	s.mu.Lock()
	if entry := s.topics[topic][entityID]; entry != nil {
		entry.PendingLocalMutation = false
	}
	s.mu.Unlock()
}

// ConfirmLocal adopts the server's canonical entity from an HTTP
// response, clearing the pending marker. If a server event already
// superseded the write (marker gone), the event's payload stands and
// the response is discarded: the event carries a sequence, the
// response does not.
func (s *Store) ConfirmLocal(topic, entityID string, payload json.RawMessage) bool {
	s.mu.Lock()
	entries := s.topics[topic]
	entry := entries[entityID]
	if entry == nil || !entry.PendingLocalMutation {
		s.mu.Unlock()
		return false
	}
	entry.PendingLocalMutation = false
	entry.Value = payload
	s.stats.Confirmed++
	s.mu.Unlock()

	s.notify(topic)
	return true
}
