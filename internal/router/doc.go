// Package router decodes raw WebSocket frames into typed events and
// dispatches them by topic.
//
// Every decoded event is folded into the cache even when its topic has
// no subscribers: the cache is process-wide, so a view mounting a
// moment later sees consistent state. Subscriber callbacks fire only
// for events the cache actually applied; duplicates and reordered
// stragglers stay silent.
package router
