package store

import "time"

// Config holds table and bus names for the Store and its collaborators.
type Config struct {
	// UsersTable is the single table holding profile, email-index and
	// status-index records.
	// Default: "roster_users"
	UsersTable string

	// IdempotencyTable holds idempotency records with a DynamoDB TTL
	// attribute named "ttl".
	// Default: "roster_idempotency"
	IdempotencyTable string

	// AuditTable holds materialized audit events for the query path.
	// Default: "roster_audit"
	AuditTable string

	// EventBus is the EventBridge bus audit events are published to.
	// Default: "user-management-audit-events"
	EventBus string

	// IdempotencyTTL is how long an idempotency record shields retries.
	// Expiry is passive: expired records are treated as absent on read and
	// evicted by the table's TTL, never erased synchronously.
	// Default: 24h
	IdempotencyTTL time.Duration
}

// DefaultConfig returns the table and bus names used by the deployed stacks.
func DefaultConfig() Config {
	return Config{
		UsersTable:       "roster_users",
		IdempotencyTable: "roster_idempotency",
		AuditTable:       "roster_audit",
		EventBus:         "user-management-audit-events",
		IdempotencyTTL:   24 * time.Hour,
	}
}

// validate fills in defaults for unset values.
func (c *Config) validate() {
	if c.UsersTable == "" {
		c.UsersTable = "roster_users"
	}
	if c.IdempotencyTable == "" {
		c.IdempotencyTable = "roster_idempotency"
	}
	if c.AuditTable == "" {
		c.AuditTable = "roster_audit"
	}
	if c.EventBus == "" {
		c.EventBus = "user-management-audit-events"
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = 24 * time.Hour
	}
}
