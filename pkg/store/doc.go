// Package store persists finished spans to PostgreSQL.
//
// The store is optional: the collector and the store-backed Sender both
// degrade to a no-op when no database is configured. Span fields are stored as
// JSONB so they can be queried without a fixed schema.
package store
