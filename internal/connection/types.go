package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (nothing received within heartbeat window)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrAlreadyConnected = errors.New("already connected")
)

// State is the process-wide connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns the wire-style name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	}
	return "UNKNOWN"
}

// TimestampedMessage wraps raw frame bytes with the local receive time.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// RawMessage is what the Manager hands to the event router.
type RawMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// controlFrame is the client→server subscription message format.
type controlFrame struct {
	Type  string `json:"type"` // "SUBSCRIBE" or "UNSUBSCRIBE"
	Topic string `json:"topic"`
}

const (
	frameSubscribe   = "SUBSCRIBE"
	frameUnsubscribe = "UNSUBSCRIBE"
)

// ClientConfig configures a single WebSocket client.
type ClientConfig struct {
	URL              string        // full ws(s):// endpoint
	HandshakeTimeout time.Duration // dial deadline
	HeartbeatTimeout time.Duration // max silence before the connection is declared dead
	WriteTimeout     time.Duration // write deadline for sends
	BufferSize       int           // inbound message channel capacity
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		HeartbeatTimeout: 45 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

// ManagerConfig configures the connection Manager.
type ManagerConfig struct {
	WSURL              string
	ReconnectBaseDelay time.Duration // first retry delay; doubles per attempt
	ReconnectMaxDelay  time.Duration // backoff ceiling
	HeartbeatTimeout   time.Duration
	WriteTimeout       time.Duration
	MessageBufferSize  int // capacity of the channel feeding the router
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectBaseDelay: time.Second,
		ReconnectMaxDelay:  30 * time.Second,
		HeartbeatTimeout:   45 * time.Second,
		WriteTimeout:       5 * time.Second,
		MessageBufferSize:  1024,
	}
}

// ManagerStats is a point-in-time snapshot of manager counters.
type ManagerStats struct {
	State             State
	ReconnectAttempts int64 // total reconnect attempts since construction
	Forwarded         int64 // messages handed to the router
	Dropped           int64 // messages dropped because the router fell behind
}
