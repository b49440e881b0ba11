package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/miethe/family-shopping-dashboard-sub003/internal/cache"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/connection"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/event"
)

// Config holds router settings.
type Config struct {
	// FirehoseBufferSize is the initial capacity of the applied-event
	// tap consumed by the journal.
	FirehoseBufferSize int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{FirehoseBufferSize: 1024}
}

// Stats contains routing counters.
type Stats struct {
	Received    int64 // raw frames consumed
	Applied     int64 // events folded into the cache
	Stale       int64 // duplicates/reordered events discarded by the cache
	ParseErrors int64 // malformed frames dropped
	Unknown     int64 // frames with unrecognized event kinds dropped
}

// Router consumes the connection manager's raw frames, decodes them,
// reconciles them into the cache, and fans applied events out to topic
// subscribers.
type Router struct {
	cfg    Config
	logger *slog.Logger

	input <-chan connection.RawMessage
	store *cache.Store

	subMu     sync.RWMutex
	subs      map[string]map[int64]func(event.Event)
	nextToken int64

	firehose *GrowableBuffer[event.Event]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statMu sync.Mutex
	stats  Stats
}

// NewRouter creates a Router over the given frame source and cache.
func NewRouter(cfg Config, input <-chan connection.RawMessage, store *cache.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FirehoseBufferSize < 1 {
		cfg.FirehoseBufferSize = DefaultConfig().FirehoseBufferSize
	}
	return &Router{
		cfg:      cfg,
		logger:   logger,
		input:    input,
		store:    store,
		subs:     make(map[string]map[int64]func(event.Event)),
		firehose: NewGrowableBuffer[event.Event](cfg.FirehoseBufferSize),
	}
}

// Start begins the routing loop.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("event router started")
	return nil
}

// Stop shuts the router down and closes the firehose tap.
func (r *Router) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("event router stopped")
	case <-ctx.Done():
		r.logger.Warn("event router stop timed out")
	}

	r.firehose.Close()
	return nil
}

// Subscribe registers a callback for events on one topic. The
// returned cancel func removes the subscription; views call it on
// unmount so listeners never leak.
func (r *Router) Subscribe(topic string, fn func(event.Event)) (cancel func()) {
	r.subMu.Lock()
	r.nextToken++
	token := r.nextToken
	if r.subs[topic] == nil {
		r.subs[topic] = make(map[int64]func(event.Event))
	}
	r.subs[topic][token] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		if fns := r.subs[topic]; fns != nil {
			delete(fns, token)
			if len(fns) == 0 {
				delete(r.subs, topic)
			}
		}
		r.subMu.Unlock()
	}
}

// Events returns the firehose of applied events in arrival order.
func (r *Router) Events() *GrowableBuffer[event.Event] {
	return r.firehose
}

// Stats returns current counters.
func (r *Router) Stats() Stats {
	r.statMu.Lock()
	defer r.statMu.Unlock()
	return r.stats
}

func (r *Router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("frame source closed")
				return
			}
			r.route(raw)
		}
	}
}

// route handles one raw frame to completion before the next is read,
// preserving per-topic delivery order end to end.
func (r *Router) route(raw connection.RawMessage) {
	r.count(func(s *Stats) { s.Received++ })

	ev, err := event.Decode(raw.Data, raw.ReceivedAt)
	if err != nil {
		if errors.Is(err, event.ErrUnknownKind) {
			// Newer servers may push kinds this client predates.
			r.count(func(s *Stats) { s.Unknown++ })
			r.logger.Debug("skipping unknown event kind", "error", err)
		} else {
			r.count(func(s *Stats) { s.ParseErrors++ })
			r.logger.Warn("dropping malformed frame", "error", err)
		}
		return
	}

	result := r.store.Apply(ev)
	if result == cache.ResultStale {
		r.count(func(s *Stats) { s.Stale++ })
		return
	}
	r.count(func(s *Stats) { s.Applied++ })

	r.firehose.Send(ev)
	r.dispatch(ev)
}

// dispatch invokes each current subscriber of the event's topic once.
func (r *Router) dispatch(ev event.Event) {
	r.subMu.RLock()
	fns := make([]func(event.Event), 0, len(r.subs[ev.Topic]))
	for _, fn := range r.subs[ev.Topic] {
		fns = append(fns, fn)
	}
	r.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (r *Router) count(apply func(*Stats)) {
	r.statMu.Lock()
	apply(&r.stats)
	r.statMu.Unlock()
}
