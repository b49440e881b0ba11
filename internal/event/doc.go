// Package event defines the typed mutation events pushed by the server
// and the decoder that validates raw WebSocket frames into them.
//
// A single malformed frame must never take down the socket: Decode
// returns an error and the caller drops the frame.
package event
