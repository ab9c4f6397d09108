// Package store is the transactional state-store engine for user records.
//
// A user entity is materialized as three derived records in one DynamoDB
// table: the authoritative profile (USER#id / PROFILE), an email uniqueness
// index (USER_EMAIL#email / USER), and a status partition entry
// (USER_STATUS#status / USER#id) that supports listing. Every mutation
// commits the affected records through a single TransactWriteItems call, so
// the three views are never individually visible in an inconsistent
// combination.
//
// # Components
//
//   - [Store] - atomic multi-record writer/reader owning status transitions
//     and role mutations
//   - [Idempotency] - best-effort retry coordinator with passive 24h expiry
//   - [Emitter] - fire-and-forget audit event publisher (EventBridge)
//   - [EncodeCursor]/[DecodeCursor] - opaque, leniently decoded pagination
//     tokens
//
// # Errors
//
// All failures surface as [*Error] carrying one of the closed [Kind] values:
//
//   - [KindValidation] - malformed input, caught before storage access
//   - [KindNotFound] - no such live entity
//   - [KindConflict] - email collision or idempotency-key reuse with a
//     divergent payload
//   - [KindInternal] - unexpected storage or transport failure
//
// Idempotency-check and audit-emit failures are logged and suppressed; the
// primary mutation's own storage failure propagates as KindInternal.
//
// # Concurrency
//
// There is no client-side locking. Conditional writes make email uniqueness
// and profile creation race-free, but read-modify-write sequences for the
// same user are last-writer-wins (two concurrent role assignments can
// overwrite each other's roles list). That tradeoff is accepted and pinned by
// tests rather than silently fixed.
package store
