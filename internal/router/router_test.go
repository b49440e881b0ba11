package router

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/miethe/family-shopping-dashboard-sub003/internal/cache"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/connection"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/event"
)

func rawFrame(t *testing.T, topic, kind, entityID string, seq int64, name string) connection.RawMessage {
	t.Helper()
	frame := map[string]any{
		"topic": topic,
		"event": kind,
		"data": map[string]any{
			"entity_id": entityID,
			"user_id":   "user-b",
		},
		"sequence": seq,
	}
	if kind != "DELETED" {
		frame["data"].(map[string]any)["payload"] = map[string]any{"id": entityID, "name": name}
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return connection.RawMessage{Data: data, ReceivedAt: time.Now()}
}

func startRouter(t *testing.T) (*Router, chan connection.RawMessage, *cache.Store) {
	t.Helper()
	input := make(chan connection.RawMessage, 64)
	store := cache.NewStore("user-local", nil)
	r := NewRouter(DefaultConfig(), input, store, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.Stop(ctx)
	})
	return r, input, store
}

func waitStats(t *testing.T, r *Router, cond func(Stats) bool) Stats {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := r.Stats()
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats condition not met, last stats %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRouter_DispatchesToTopicSubscribers(t *testing.T) {
	r, input, _ := startRouter(t)

	var mu sync.Mutex
	var got []event.Event
	cancel := r.Subscribe("list:42", func(ev event.Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	defer cancel()

	input <- rawFrame(t, "list:42", "ADDED", "g1", 1, "socks")
	input <- rawFrame(t, "occasions", "ADDED", "o1", 1, "birthday") // different topic

	waitStats(t, r, func(s Stats) bool { return s.Applied == 2 })

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("subscriber saw %d events, want 1", len(got))
	}
	if got[0].EntityID != "g1" || got[0].Kind != event.KindAdded {
		t.Errorf("event = %+v", got[0])
	}
}

func TestRouter_FoldsIntoCacheWithoutSubscribers(t *testing.T) {
	r, input, store := startRouter(t)

	input <- rawFrame(t, "people", "ADDED", "p1", 1, "grandma")
	waitStats(t, r, func(s Stats) bool { return s.Applied == 1 })

	if _, ok := store.Get("people", "p1"); !ok {
		t.Error("event must reach the cache even with zero subscribers")
	}
}

func TestRouter_StaleEventsDoNotFireCallbacks(t *testing.T) {
	r, input, _ := startRouter(t)

	var mu sync.Mutex
	calls := 0
	cancel := r.Subscribe("gifts", func(event.Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	defer cancel()

	input <- rawFrame(t, "gifts", "UPDATED", "g1", 5, "v5")
	input <- rawFrame(t, "gifts", "UPDATED", "g1", 5, "v5") // duplicate
	input <- rawFrame(t, "gifts", "UPDATED", "g1", 3, "v3") // reordered

	waitStats(t, r, func(s Stats) bool { return s.Applied == 1 && s.Stale == 2 })

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callbacks = %d, want 1", calls)
	}
}

func TestRouter_DropsMalformedFrames(t *testing.T) {
	r, input, _ := startRouter(t)

	input <- connection.RawMessage{Data: []byte(`{{{not json`), ReceivedAt: time.Now()}
	input <- connection.RawMessage{Data: []byte(`{"topic":"gifts"}`), ReceivedAt: time.Now()}
	input <- rawFrame(t, "gifts", "ADDED", "g1", 1, "ok")

	st := waitStats(t, r, func(s Stats) bool { return s.Applied == 1 })
	if st.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", st.ParseErrors)
	}
}

func TestRouter_DropsUnknownKinds(t *testing.T) {
	r, input, _ := startRouter(t)

	input <- connection.RawMessage{
		Data:       []byte(`{"topic":"gifts","event":"ARCHIVED","data":{"entity_id":"g1","payload":{}},"sequence":1}`),
		ReceivedAt: time.Now(),
	}

	st := waitStats(t, r, func(s Stats) bool { return s.Unknown == 1 })
	if st.ParseErrors != 0 {
		t.Errorf("unknown kind must not count as a parse error, stats %+v", st)
	}
}

func TestRouter_UnsubscribeStopsDelivery(t *testing.T) {
	r, input, _ := startRouter(t)

	var mu sync.Mutex
	calls := 0
	cancel := r.Subscribe("gifts", func(event.Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	input <- rawFrame(t, "gifts", "ADDED", "g1", 1, "a")
	waitStats(t, r, func(s Stats) bool { return s.Applied == 1 })

	cancel()
	input <- rawFrame(t, "gifts", "UPDATED", "g1", 2, "b")
	waitStats(t, r, func(s Stats) bool { return s.Applied == 2 })

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callbacks after cancel = %d, want 1", calls)
	}
}

func TestRouter_FirehoseCarriesAppliedEvents(t *testing.T) {
	r, input, _ := startRouter(t)

	input <- rawFrame(t, "gifts", "ADDED", "g1", 1, "a")
	input <- rawFrame(t, "gifts", "ADDED", "g1", 1, "a") // stale, not tapped
	input <- rawFrame(t, "gifts", "DELETED", "g1", 2, "")

	waitStats(t, r, func(s Stats) bool { return s.Applied == 2 && s.Stale == 1 })

	tap := r.Events()
	first, ok := tap.TryReceive()
	if !ok || first.Kind != event.KindAdded {
		t.Fatalf("first tapped event = %+v ok=%v", first, ok)
	}
	second, ok := tap.TryReceive()
	if !ok || second.Kind != event.KindDeleted {
		t.Fatalf("second tapped event = %+v ok=%v", second, ok)
	}
	if _, ok := tap.TryReceive(); ok {
		t.Error("stale event must not reach the firehose")
	}
}
