package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// TopicSource supplies the topics that must be live on the server.
// The subscription registry implements it; the manager replays the
// list after every (re)connect so interest lost during a disconnect is
// recovered.
type TopicSource interface {
	ActiveTopics() []string
}

// Manager owns the single socket per process. It is constructed
// explicitly and injected; there are no package-level globals, so
// tests build isolated instances.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu            sync.Mutex
	state         State
	client        Client
	topics        TopicSource
	sessionCtx    context.Context
	sessionCancel context.CancelFunc

	listenerMu sync.Mutex
	listeners  map[int64]func(State)
	nextToken  int64

	messages chan RawMessage

	attempts  atomic.Int64
	forwarded atomic.Int64
	dropped   atomic.Int64

	// newClient is a seam for tests.
	newClient func(ClientConfig, *slog.Logger) Client
}

// NewManager creates a Manager. Call SetTopicSource before Connect so
// the resubscribe flush has something to replay.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		logger:    logger,
		state:     StateDisconnected,
		listeners: make(map[int64]func(State)),
		messages:  make(chan RawMessage, cfg.MessageBufferSize),
		newClient: NewClient,
	}
}

// SetTopicSource wires the subscription registry in. Separate from the
// constructor because the registry needs the manager as its sender.
func (m *Manager) SetTopicSource(ts TopicSource) {
	m.mu.Lock()
	m.topics = ts
	m.mu.Unlock()
}

// Connect opens the socket. A dial failure is not fatal: the manager
// transitions to RECONNECTING and retries with backoff until it
// succeeds or Disconnect is called. Returns an error only on misuse.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.sessionCtx, m.sessionCancel = context.WithCancel(ctx)
	sessionCtx := m.sessionCtx
	prev := m.state
	m.state = StateConnecting
	m.mu.Unlock()
	m.stateChanged(prev, StateConnecting)

	if err := m.dial(sessionCtx); err != nil {
		if sessionCtx.Err() != nil {
			// Disconnect won the race with the handshake; the state
			// is already terminal.
			return nil
		}
		m.logger.Warn("initial connect failed, retrying", "error", err)
		m.setState(StateReconnecting)
		go m.reconnectLoop(sessionCtx)
	}
	return nil
}

// Disconnect terminally closes the connection and cancels any pending
// reconnect. The state stays DISCONNECTED until Connect is called
// again; used for logout.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.sessionCancel != nil {
		m.sessionCancel()
		m.sessionCancel = nil
	}
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}
	m.setState(StateDisconnected)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnStateChange registers a listener notified on every transition.
// The returned cancel func removes it.
func (m *Manager) OnStateChange(fn func(State)) (cancel func()) {
	m.listenerMu.Lock()
	m.nextToken++
	token := m.nextToken
	m.listeners[token] = fn
	m.listenerMu.Unlock()

	return func() {
		m.listenerMu.Lock()
		delete(m.listeners, token)
		m.listenerMu.Unlock()
	}
}

// Messages returns the channel feeding the event router. It stays
// open across reconnects.
func (m *Manager) Messages() <-chan RawMessage {
	return m.messages
}

// SendSubscribe asks the server to start pushing a topic. While
// disconnected this is a silent no-op: the resubscribe flush on the
// next connect replays every active topic.
func (m *Manager) SendSubscribe(topic string) error {
	return m.sendControl(frameSubscribe, topic)
}

// SendUnsubscribe asks the server to stop pushing a topic.
func (m *Manager) SendUnsubscribe(topic string) error {
	return m.sendControl(frameUnsubscribe, topic)
}

// Stats returns current counters.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		State:             m.State(),
		ReconnectAttempts: m.attempts.Load(),
		Forwarded:         m.forwarded.Load(),
		Dropped:           m.dropped.Load(),
	}
}

func (m *Manager) sendControl(frameType, topic string) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil || !client.IsConnected() {
		m.logger.Debug("not connected, control frame deferred to resubscribe flush",
			"type", frameType,
			"topic", topic,
		)
		return nil
	}

	data, err := json.Marshal(controlFrame{Type: frameType, Topic: topic})
	if err != nil {
		return err
	}
	return client.Send(data)
}

// dial opens a fresh client and, on success, flushes subscriptions and
// starts the read loop.
func (m *Manager) dial(sessionCtx context.Context) error {
	clientCfg := ClientConfig{
		URL:              m.cfg.WSURL,
		HandshakeTimeout: 10 * time.Second,
		HeartbeatTimeout: m.cfg.HeartbeatTimeout,
		WriteTimeout:     m.cfg.WriteTimeout,
		BufferSize:       m.cfg.MessageBufferSize,
	}
	client := m.newClient(clientCfg, m.logger.With("component", "ws-client"))

	if err := client.Connect(sessionCtx); err != nil {
		client.Close()
		return err
	}

	// Install the client and transition to CONNECTED in one critical
	// section, re-checking the session first: Disconnect may have
	// canceled it while the handshake was in flight, and a
	// late-succeeding dial must not resurrect the connection.
	m.mu.Lock()
	if sessionCtx.Err() != nil {
		m.mu.Unlock()
		client.Close()
		return sessionCtx.Err()
	}
	prev := m.state
	m.client = client
	m.state = StateConnected
	m.mu.Unlock()
	m.stateChanged(prev, StateConnected)

	m.flushSubscriptions(client)

	go m.readLoop(sessionCtx, client)
	return nil
}

// flushSubscriptions replays every active topic as SUBSCRIBE frames.
func (m *Manager) flushSubscriptions(client Client) {
	m.mu.Lock()
	ts := m.topics
	m.mu.Unlock()
	if ts == nil {
		return
	}

	topics := ts.ActiveTopics()
	for _, topic := range topics {
		data, err := json.Marshal(controlFrame{Type: frameSubscribe, Topic: topic})
		if err != nil {
			continue
		}
		if err := client.Send(data); err != nil {
			m.logger.Warn("resubscribe flush failed", "topic", topic, "error", err)
			return
		}
	}
	if len(topics) > 0 {
		m.logger.Info("resubscribed topics", "count", len(topics))
	}
}

// readLoop forwards frames to the router until the session ends or
// the socket dies, in which case it hands off to the reconnect loop.
func (m *Manager) readLoop(sessionCtx context.Context, client Client) {
	for {
		select {
		case <-sessionCtx.Done():
			return

		case err := <-client.Errors():
			select {
			case <-sessionCtx.Done():
				return
			default:
			}
			m.logger.Warn("connection lost", "error", err)
			client.Close()
			m.setState(StateReconnecting)
			go m.reconnectLoop(sessionCtx)
			return

		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			select {
			case m.messages <- RawMessage{Data: msg.Data, ReceivedAt: msg.ReceivedAt}:
				m.forwarded.Add(1)
			case <-sessionCtx.Done():
				return
			default:
				m.dropped.Add(1)
				m.logger.Warn("router buffer full, dropping frame")
			}
		}
	}
}

// reconnectLoop retries indefinitely with exponential backoff and
// jitter until the dial succeeds or the session is canceled.
func (m *Manager) reconnectLoop(sessionCtx context.Context) {
	for attempt := 0; ; attempt++ {
		wait := withJitter(m.cfg.backoffDelay(attempt))

		select {
		case <-sessionCtx.Done():
			return
		case <-time.After(wait):
		}

		m.attempts.Add(1)
		m.logger.Info("attempting reconnect", "attempt", attempt+1, "waited", wait)

		if err := m.dial(sessionCtx); err != nil {
			if sessionCtx.Err() != nil {
				return
			}
			m.logger.Warn("reconnect failed", "attempt", attempt+1, "error", err)
			continue
		}

		m.logger.Info("reconnected", "attempts", attempt+1)
		return
	}
}

// setState transitions the state machine and notifies listeners
// outside the manager lock.
func (m *Manager) setState(next State) {
	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = next
	m.mu.Unlock()

	m.stateChanged(prev, next)
}

// stateChanged logs a transition and notifies listeners. Call without
// m.mu held.
func (m *Manager) stateChanged(prev, next State) {
	m.logger.Debug("connection state changed", "from", prev, "to", next)

	m.listenerMu.Lock()
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.listenerMu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// backoffDelay returns the deterministic exponential delay for the
// given attempt, capped at the configured ceiling.
func (cfg ManagerConfig) backoffDelay(attempt int) time.Duration {
	d := cfg.ReconnectBaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cfg.ReconnectMaxDelay {
			return cfg.ReconnectMaxDelay
		}
	}
	if d > cfg.ReconnectMaxDelay {
		return cfg.ReconnectMaxDelay
	}
	return d
}

// withJitter spreads reconnects out so clients dropped by the same
// server restart do not dial back in lockstep.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half+1)))
}
