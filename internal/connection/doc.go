// Package connection maintains the single WebSocket session to the
// dashboard server.
//
// Client wraps one gorilla/websocket connection with read and
// heartbeat loops. Manager owns at most one live Client per process,
// exposes the connection-state machine, reconnects with exponential
// backoff and jitter, and replays topic subscriptions after every
// reconnect.
package connection
