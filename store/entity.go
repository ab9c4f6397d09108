package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/roster/internal/keys"
)

// Status is a user lifecycle state. "deleted" is a status, not record removal:
// deleted users keep their profile and stay resolvable for status transitions
// and audit history, but are invisible to fetch and listing operations.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusDeleted  Status = "deleted"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDisabled, StatusDeleted:
		return true
	}
	return false
}

// Action identifies the mutation an audit event records.
type Action string

const (
	ActionUserCreated   Action = "USER_CREATED"
	ActionUserUpdated   Action = "USER_UPDATED"
	ActionStatusChanged Action = "STATUS_CHANGED"
	ActionRoleAssigned  Action = "ROLE_ASSIGNED"
	ActionRoleRemoved   Action = "ROLE_REMOVED"
)

// User is the canonical user entity, materialized as three table records
// (profile, email index, status index) that commit together or not at all.
type User struct {
	UserID    string            `json:"userId"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Status    Status            `json:"status"`
	Roles     []string          `json:"roles"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
}

// Change is a single field transition carried by an audit event.
type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// AuditEvent is the immutable record emitted once per successful mutation.
type AuditEvent struct {
	EventID       string            `json:"eventId"`
	UserID        string            `json:"userId"`
	Timestamp     string            `json:"timestamp"`
	Action        Action            `json:"action"`
	Actor         string            `json:"actor"`
	CorrelationID string            `json:"correlationId"`
	Changes       map[string]Change `json:"changes"`
}

// Record shapes. Each kind carries an entityType discriminator for
// forward-compatible schema evolution.

const (
	entityTypeProfile     = "USER_PROFILE"
	entityTypeEmailIndex  = "EMAIL_INDEX"
	entityTypeStatusIndex = "STATUS_INDEX"
	entityTypeAuditEvent  = "AUDIT_EVENT"
)

type profileRecord struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	UserID     string            `dynamodbav:"userId"`
	Email      string            `dynamodbav:"email"`
	Name       string            `dynamodbav:"name"`
	Status     string            `dynamodbav:"status"`
	Roles      []string          `dynamodbav:"roles"`
	Metadata   map[string]string `dynamodbav:"metadata"`
	CreatedAt  string            `dynamodbav:"createdAt"`
	UpdatedAt  string            `dynamodbav:"updatedAt"`
	EntityType string            `dynamodbav:"entityType"`
}

type emailIndexRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	UserID     string `dynamodbav:"userId"`
	Email      string `dynamodbav:"email"`
	Status     string `dynamodbav:"status"`
	EntityType string `dynamodbav:"entityType"`
}

type statusIndexRecord struct {
	PK         string   `dynamodbav:"PK"`
	SK         string   `dynamodbav:"SK"`
	UserID     string   `dynamodbav:"userId"`
	Email      string   `dynamodbav:"email"`
	Name       string   `dynamodbav:"name"`
	Status     string   `dynamodbav:"status"`
	Roles      []string `dynamodbav:"roles"`
	CreatedAt  string   `dynamodbav:"createdAt"`
	EntityType string   `dynamodbav:"entityType"`
}

type auditRecord struct {
	PK            string            `dynamodbav:"PK"`
	SK            string            `dynamodbav:"SK"`
	EventID       string            `dynamodbav:"eventId"`
	UserID        string            `dynamodbav:"userId"`
	Timestamp     string            `dynamodbav:"timestamp"`
	Action        string            `dynamodbav:"action"`
	Actor         string            `dynamodbav:"actor"`
	CorrelationID string            `dynamodbav:"correlationId"`
	Changes       map[string]Change `dynamodbav:"changes"`
	EntityType    string            `dynamodbav:"entityType"`
}

// normalize ensures the collection fields marshal as empty collections rather
// than NULL attributes.
func (u *User) normalize() {
	if u.Roles == nil {
		u.Roles = []string{}
	}
	if u.Metadata == nil {
		u.Metadata = map[string]string{}
	}
}

// HasRole reports whether role is currently assigned.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// clone returns a deep copy, so before/after pairs never alias.
func (u *User) clone() User {
	out := *u
	out.Roles = append([]string(nil), u.Roles...)
	out.Metadata = make(map[string]string, len(u.Metadata))
	for k, v := range u.Metadata {
		out.Metadata[k] = v
	}
	out.normalize()
	return out
}

func marshalProfile(u User) (map[string]types.AttributeValue, error) {
	u.normalize()
	item, err := attributevalue.MarshalMap(profileRecord{
		PK:         keys.ProfilePK(u.UserID),
		SK:         keys.ProfileSK,
		UserID:     u.UserID,
		Email:      u.Email,
		Name:       u.Name,
		Status:     string(u.Status),
		Roles:      u.Roles,
		Metadata:   u.Metadata,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
		EntityType: entityTypeProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal profile record: %w", err)
	}
	return item, nil
}

func marshalEmailIndex(u User) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(emailIndexRecord{
		PK:         keys.EmailPK(u.Email),
		SK:         keys.EmailIndexSK,
		UserID:     u.UserID,
		Email:      u.Email,
		Status:     string(u.Status),
		EntityType: entityTypeEmailIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal email index record: %w", err)
	}
	return item, nil
}

func marshalStatusIndex(u User) (map[string]types.AttributeValue, error) {
	u.normalize()
	item, err := attributevalue.MarshalMap(statusIndexRecord{
		PK:         keys.StatusPK(string(u.Status)),
		SK:         keys.StatusSK(u.UserID),
		UserID:     u.UserID,
		Email:      u.Email,
		Name:       u.Name,
		Status:     string(u.Status),
		Roles:      u.Roles,
		CreatedAt:  u.CreatedAt,
		EntityType: entityTypeStatusIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal status index record: %w", err)
	}
	return item, nil
}

func unmarshalProfile(item map[string]types.AttributeValue) (User, error) {
	var rec profileRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return User{}, fmt.Errorf("unmarshal profile record: %w", err)
	}
	u := User{
		UserID:    rec.UserID,
		Email:     rec.Email,
		Name:      rec.Name,
		Status:    Status(rec.Status),
		Roles:     rec.Roles,
		Metadata:  rec.Metadata,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	u.normalize()
	return u, nil
}

// ListedUser is the projection stored in the status index and returned by
// listing queries. It omits metadata and updatedAt, which only the profile
// record carries.
type ListedUser struct {
	UserID    string   `json:"userId"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"createdAt"`
}

func unmarshalStatusIndex(item map[string]types.AttributeValue) (ListedUser, error) {
	var rec statusIndexRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return ListedUser{}, fmt.Errorf("unmarshal status index record: %w", err)
	}
	lu := ListedUser{
		UserID:    rec.UserID,
		Email:     rec.Email,
		Name:      rec.Name,
		Status:    Status(rec.Status),
		Roles:     rec.Roles,
		CreatedAt: rec.CreatedAt,
	}
	if lu.Roles == nil {
		lu.Roles = []string{}
	}
	return lu, nil
}

// MarshalAuditRecord builds the audit table item for a delivered event.
// Used by the ingest handler; the mutation path never writes this table.
func MarshalAuditRecord(ev AuditEvent) (map[string]types.AttributeValue, error) {
	if ev.Changes == nil {
		ev.Changes = map[string]Change{}
	}
	item, err := attributevalue.MarshalMap(auditRecord{
		PK:            keys.AuditPK(ev.UserID),
		SK:            keys.AuditSK(ev.Timestamp, ev.EventID),
		EventID:       ev.EventID,
		UserID:        ev.UserID,
		Timestamp:     ev.Timestamp,
		Action:        string(ev.Action),
		Actor:         ev.Actor,
		CorrelationID: ev.CorrelationID,
		Changes:       ev.Changes,
		EntityType:    entityTypeAuditEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit record: %w", err)
	}
	return item, nil
}

func unmarshalAuditRecord(item map[string]types.AttributeValue) (AuditEvent, error) {
	var rec auditRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return AuditEvent{}, fmt.Errorf("unmarshal audit record: %w", err)
	}
	ev := AuditEvent{
		EventID:       rec.EventID,
		UserID:        rec.UserID,
		Timestamp:     rec.Timestamp,
		Action:        Action(rec.Action),
		Actor:         rec.Actor,
		CorrelationID: rec.CorrelationID,
		Changes:       rec.Changes,
	}
	if ev.Changes == nil {
		ev.Changes = map[string]Change{}
	}
	return ev, nil
}
