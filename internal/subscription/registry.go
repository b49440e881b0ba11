package subscription

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Sender delivers subscription control frames to the server. The
// connection manager implements it.
type Sender interface {
	SendSubscribe(topic string) error
	SendUnsubscribe(topic string) error
}

// Evictor drops a topic's cached entries once nothing references it.
// The cache store implements it.
type Evictor interface {
	EvictTopic(topic string)
}

// Config holds registry settings.
type Config struct {
	// GracePeriod is how long a topic with zero subscribers stays
	// subscribed server-side before UNSUBSCRIBE is sent.
	GracePeriod time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{GracePeriod: 3 * time.Second}
}

// Registry tracks which topics have live subscribers.
type Registry struct {
	cfg     Config
	logger  *slog.Logger
	sender  Sender
	evictor Evictor

	mu      sync.Mutex
	viewers map[string]map[string]struct{} // topic → view IDs
	grace   map[string]*time.Timer
	closed  bool
}

// NewRegistry creates a Registry. The evictor may be nil if cached
// state should outlive interest.
func NewRegistry(cfg Config, sender Sender, evictor Evictor, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultConfig().GracePeriod
	}
	return &Registry{
		cfg:     cfg,
		logger:  logger,
		sender:  sender,
		evictor: evictor,
		viewers: make(map[string]map[string]struct{}),
		grace:   make(map[string]*time.Timer),
	}
}

// Subscribe registers a view's interest in a topic. The 0→1
// transition sends SUBSCRIBE to the server; re-subscribing within a
// pending grace window just cancels the timer, because the server
// never stopped pushing.
func (r *Registry) Subscribe(topic, viewID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	if timer, ok := r.grace[topic]; ok {
		timer.Stop()
		delete(r.grace, topic)
		r.viewers[topic][viewID] = struct{}{}
		r.logger.Debug("unsubscribe debounced", "topic", topic, "view", viewID)
		return
	}

	views := r.viewers[topic]
	first := len(views) == 0
	if views == nil {
		views = make(map[string]struct{})
		r.viewers[topic] = views
	}
	views[viewID] = struct{}{}

	if first {
		// While disconnected the sender defers; the resubscribe
		// flush on connect replays ActiveTopics.
		if err := r.sender.SendSubscribe(topic); err != nil {
			r.logger.Warn("subscribe send failed", "topic", topic, "error", err)
		}
	}
}

// Unsubscribe drops a view's interest. The decrement is synchronous,
// so an unmount mid-flight of anything asynchronous still lands; the
// 1→0 transition arms the grace timer.
func (r *Registry) Unsubscribe(topic, viewID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	views := r.viewers[topic]
	if views == nil {
		return
	}
	delete(views, viewID)
	if len(views) > 0 {
		return
	}

	r.grace[topic] = time.AfterFunc(r.cfg.GracePeriod, func() {
		r.expire(topic)
	})
}

// ActiveTopics returns topics with at least one subscriber, sorted
// for deterministic resubscribe order.
func (r *Registry) ActiveTopics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]string, 0, len(r.viewers))
	for topic, views := range r.viewers {
		if len(views) > 0 {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// SubscriberCount returns the number of views on a topic.
func (r *Registry) SubscriberCount(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers[topic])
}

// Close stops all grace timers. Pending unsubscribes are abandoned;
// the server-side session is going away with the connection anyway.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for topic, timer := range r.grace {
		timer.Stop()
		delete(r.grace, topic)
	}
}

// expire fires when a topic's grace window lapses with no
// re-subscription. The send and eviction happen under r.mu so a
// Subscribe cannot interleave between them and have its fresh topic
// state wiped by a trailing eviction.
func (r *Registry) expire(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if _, ok := r.grace[topic]; !ok {
		// A Subscribe raced the timer and won.
		return
	}
	delete(r.grace, topic)
	if len(r.viewers[topic]) > 0 {
		return
	}
	delete(r.viewers, topic)

	if err := r.sender.SendUnsubscribe(topic); err != nil {
		r.logger.Warn("unsubscribe send failed", "topic", topic, "error", err)
	}
	if r.evictor != nil {
		r.evictor.EvictTopic(topic)
	}
	r.logger.Debug("topic interest expired", "topic", topic)
}
