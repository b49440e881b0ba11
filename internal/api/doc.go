// Package api provides the REST client for the dashboard backend and
// the optimistic mutation flow that pairs REST writes with the local
// cache.
package api
