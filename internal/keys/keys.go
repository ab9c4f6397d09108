// Package keys builds the composite partition/sort keys for the user table views.
package keys

import (
	"fmt"
	"strings"
)

// Sort key constants for the fixed-SK record kinds.
const (
	ProfileSK    = "PROFILE"
	EmailIndexSK = "USER"
)

// ProfilePK returns the partition key for a user's profile record.
func ProfilePK(userID string) string {
	mustNonEmpty("userID", userID)
	return "USER#" + userID
}

// EmailPK returns the partition key for an email uniqueness record.
func EmailPK(email string) string {
	mustNonEmpty("email", email)
	return "USER_EMAIL#" + email
}

// StatusPK returns the partition key for a status partition.
func StatusPK(status string) string {
	mustNonEmpty("status", status)
	return "USER_STATUS#" + status
}

// StatusSK returns the sort key of a user's record within a status partition.
func StatusSK(userID string) string {
	mustNonEmpty("userID", userID)
	return "USER#" + userID
}

// IdempotencyPK returns the partition key for an idempotency record.
func IdempotencyPK(key string) string {
	mustNonEmpty("key", key)
	return "IDEM#" + key
}

// AuditPK returns the partition key of a user's audit partition.
func AuditPK(userID string) string {
	mustNonEmpty("userID", userID)
	return "AUDIT#" + userID
}

// AuditSK returns the sort key for an audit event. Timestamps are RFC 3339 UTC,
// so lexical sort order is chronological; the event id breaks ties.
func AuditSK(timestamp, eventID string) string {
	mustNonEmpty("timestamp", timestamp)
	mustNonEmpty("eventID", eventID)
	return timestamp + "#" + eventID
}

// UserIDFromStatusSK extracts the user id from a status partition sort key.
// Returns false if the sort key is not a status index key.
func UserIDFromStatusSK(sk string) (string, bool) {
	id, ok := strings.CutPrefix(sk, "USER#")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// mustNonEmpty panics on empty key components. A missing component is a
// programming error in the caller, never a domain condition.
func mustNonEmpty(name, value string) {
	if value == "" {
		panic(fmt.Sprintf("keys: empty %s", name))
	}
}
