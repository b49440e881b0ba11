// Package database provides connection pool management for the
// PostgreSQL event journal.
package database
