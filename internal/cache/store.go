package cache

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Entry is the local materialized view of one entity.
type Entry struct {
	// Value is the last-known entity state as served by the server.
	Value json.RawMessage

	// LastAppliedSequence is the highest sequence folded into Value.
	// Zero means the value came from a local fetch or optimistic
	// write, not from an event.
	LastAppliedSequence int64

	// PendingLocalMutation is set while a local optimistic write is
	// outstanding and neither the HTTP response nor a confirming
	// server event has arrived.
	PendingLocalMutation bool
}

// Snapshot is a read-only copy of one entry for consumers.
type Snapshot struct {
	EntityID string
	Entry
}

// StoreStats counts reconciler outcomes since construction.
type StoreStats struct {
	Applied    int64 // events folded into the cache
	Stale      int64 // duplicates and reordered events discarded
	Removed    int64 // entries removed by DELETED events
	Confirmed  int64 // optimistic writes confirmed (event or HTTP)
	Topics     int
	Entities   int
	Tombstones int
}

// Store owns the process-wide cache map. All mutations flow through
// Store methods; readers only ever get copies.
type Store struct {
	localUserID string
	logger      *slog.Logger

	mu         sync.RWMutex
	topics     map[string]map[string]*Entry
	tombstones map[string]map[string]int64 // delete sequence per removed entity

	listenerMu sync.Mutex
	listeners  map[int64]func(topic string)
	nextToken  int64

	stats StoreStats
}

// NewStore creates an empty cache owned by the given local user. The
// user ID is matched against event origins to recognize confirmations
// of this client's own optimistic writes.
func NewStore(localUserID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		localUserID: localUserID,
		logger:      logger,
		topics:      make(map[string]map[string]*Entry),
		tombstones:  make(map[string]map[string]int64),
		listeners:   make(map[int64]func(topic string)),
	}
}

// Get returns a copy of the entry for (topic, entityID).
func (s *Store) Get(topic, entityID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.topics[topic][entityID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// List returns copies of every entry under a topic.
func (s *Store) List(topic string) []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.topics[topic]
	result := make([]Snapshot, 0, len(entries))
	for id, e := range entries {
		result = append(result, Snapshot{EntityID: id, Entry: *e})
	}
	return result
}

// EvictTopic drops all entries and tombstones for a topic. The
// subscription registry calls this once the last subscriber is gone
// and the grace period has elapsed.
func (s *Store) EvictTopic(topic string) {
	s.mu.Lock()
	_, had := s.topics[topic]
	delete(s.topics, topic)
	delete(s.tombstones, topic)
	s.mu.Unlock()

	if had {
		s.logger.Debug("topic evicted", "topic", topic)
		s.notify(topic)
	}
}

// OnTopicChanged registers a level-triggered change listener. The
// returned cancel func removes it; views must cancel on unmount.
func (s *Store) OnTopicChanged(fn func(topic string)) (cancel func()) {
	s.listenerMu.Lock()
	s.nextToken++
	token := s.nextToken
	s.listeners[token] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, token)
		s.listenerMu.Unlock()
	}
}

// Stats returns a snapshot of reconciler counters.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.stats
	st.Topics = len(s.topics)
	for _, entries := range s.topics {
		st.Entities += len(entries)
	}
	for _, ts := range s.tombstones {
		st.Tombstones += len(ts)
	}
	return st
}

// notify invokes every topic-change listener outside the store lock so
// listeners may read the cache.
func (s *Store) notify(topic string) {
	s.listenerMu.Lock()
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(topic)
	}
}
