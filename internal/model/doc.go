// Package model defines the shared domain types for the gift-planning
// dashboard sync client.
//
// Conventions:
//   - Prices: integer cents
//   - Timestamps: int64 microseconds since Unix epoch
//   - IDs: opaque strings assigned by the server (UUIDs in practice)
package model
