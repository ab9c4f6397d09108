// Package service implements the caller-facing user management operations.
//
// Every mutation follows the same control flow: validate input, consult the
// idempotency coordinator, commit through the entity store, emit an audit
// event, and store the idempotency record. Read operations go straight to the
// store's query paths.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jacentio/roster/store"
)

// TODO: take the actor from the authentication context once authn lands.
const actorSystem = "system"

// Service is the one long-lived service object, constructed at process start
// and injected into handlers. It holds no mutable state of its own.
type Service struct {
	store  *store.Store
	idem   *store.Idempotency
	audit  *store.Emitter
	logger *slog.Logger
}

// New creates a Service.
func New(st *store.Store, idem *store.Idempotency, audit *store.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, idem: idem, audit: audit, logger: logger}
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Email          string            `json:"email"`
	Name           string            `json:"name"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey"`
}

// requestHashPayload strips the idempotency key itself out of the hashed
// request: the key identifies the request, the hash detects divergent reuse.
func (in RegisterInput) requestHashPayload() any {
	return map[string]any{"email": in.Email, "name": in.Name, "metadata": in.Metadata}
}

// Register creates a new user. Retries with the same idempotency key and an
// identical payload replay the original response; the same key with a
// different payload is a conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput, correlationID string) (store.User, error) {
	if errs := validateRegister(in); errs != nil {
		return store.User{}, store.NewValidation("invalid request data", errs)
	}

	payload := in.requestHashPayload()
	if stored, err := s.idem.Check(ctx, in.IdempotencyKey, payload); err != nil {
		return store.User{}, err
	} else if stored != nil {
		s.logger.Info("replaying idempotent register", "correlationId", correlationID)
		return replayUser(stored)
	}

	user, err := s.store.Create(ctx, store.NewUser{
		Email:    in.Email,
		Name:     in.Name,
		Metadata: in.Metadata,
	})
	if err != nil {
		return store.User{}, err
	}

	s.audit.Emit(ctx, store.ActionUserCreated, user.UserID, actorSystem, correlationID,
		map[string]store.Change{
			"user": {Before: nil, After: user},
		})
	s.idem.Store(ctx, in.IdempotencyKey, payload, user)

	s.logger.Info("user registered",
		"userId", user.UserID,
		"correlationId", correlationID,
	)
	return user, nil
}

// GetProfile fetches a live user. Deleted users are not found here.
func (s *Service) GetProfile(ctx context.Context, userID string) (store.User, error) {
	return s.store.GetByID(ctx, userID, false)
}

// UpdateProfileInput is the payload for UpdateProfile. Email is immutable and
// has no field here; unexpected fields are rejected at the request boundary.
type UpdateProfileInput struct {
	Name           *string           `json:"name,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey"`
}

func (in UpdateProfileInput) requestHashPayload(userID string) any {
	return map[string]any{"userId": userID, "name": in.Name, "metadata": in.Metadata}
}

// UpdateProfile applies a name/metadata patch with idempotent retry handling.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput, correlationID string) (store.User, error) {
	if errs := validateUpdateProfile(in); errs != nil {
		return store.User{}, store.NewValidation("invalid request data", errs)
	}

	payload := in.requestHashPayload(userID)
	if stored, err := s.idem.Check(ctx, in.IdempotencyKey, payload); err != nil {
		return store.User{}, err
	} else if stored != nil {
		s.logger.Info("replaying idempotent profile update",
			"userId", userID,
			"correlationId", correlationID,
		)
		return replayUser(stored)
	}

	before, after, err := s.store.UpdateProfile(ctx, userID, store.ProfilePatch{
		Name:     in.Name,
		Metadata: in.Metadata,
	})
	if err != nil {
		return store.User{}, err
	}

	s.audit.Emit(ctx, store.ActionUserUpdated, userID, actorSystem, correlationID,
		profileChanges(before, after))
	s.idem.Store(ctx, in.IdempotencyKey, payload, after)

	return after, nil
}

// StatusResult is the trimmed response for status changes.
type StatusResult struct {
	UserID    string       `json:"userId"`
	Status    store.Status `json:"status"`
	UpdatedAt string       `json:"updatedAt"`
}

// SetStatus transitions a user between lifecycle states. A deleted user can
// be transitioned back to active; a same-status call is a no-op and emits no
// audit event.
func (s *Service) SetStatus(ctx context.Context, userID, status, correlationID string) (StatusResult, error) {
	if errs := validateStatus(status); errs != nil {
		return StatusResult{}, store.NewValidation("invalid request data", errs)
	}

	before, after, err := s.store.UpdateStatus(ctx, userID, store.Status(status))
	if err != nil {
		return StatusResult{}, err
	}

	if before.Status != after.Status {
		s.logger.Info("user status changed",
			"userId", userID,
			"from", before.Status,
			"to", after.Status,
			"correlationId", correlationID,
		)
		s.audit.Emit(ctx, store.ActionStatusChanged, userID, actorSystem, correlationID,
			map[string]store.Change{
				"status": {Before: before.Status, After: after.Status},
			})
	}

	return StatusResult{UserID: userID, Status: after.Status, UpdatedAt: after.UpdatedAt}, nil
}

// RoleResult is the trimmed response for role mutations.
type RoleResult struct {
	UserID    string   `json:"userId"`
	Roles     []string `json:"roles"`
	UpdatedAt string   `json:"updatedAt"`
}

// AssignRole adds a role to the user. Assigning an already-present role is an
// idempotent no-op with no audit event.
func (s *Service) AssignRole(ctx context.Context, userID, role, correlationID string) (RoleResult, error) {
	before, after, err := s.store.AssignRole(ctx, userID, role)
	if err != nil {
		return RoleResult{}, err
	}

	if len(before.Roles) != len(after.Roles) {
		s.audit.Emit(ctx, store.ActionRoleAssigned, userID, actorSystem, correlationID,
			map[string]store.Change{
				"role":  {Before: nil, After: role},
				"roles": {Before: before.Roles, After: after.Roles},
			})
	}

	return RoleResult{UserID: userID, Roles: after.Roles, UpdatedAt: after.UpdatedAt}, nil
}

// RemoveRole removes a role from the user. Removing a role that is not
// assigned fails NotFound — deliberately asymmetric with AssignRole's no-op.
func (s *Service) RemoveRole(ctx context.Context, userID, role, correlationID string) (RoleResult, error) {
	before, after, err := s.store.RemoveRole(ctx, userID, role)
	if err != nil {
		return RoleResult{}, err
	}

	s.audit.Emit(ctx, store.ActionRoleRemoved, userID, actorSystem, correlationID,
		map[string]store.Change{
			"role":  {Before: role, After: nil},
			"roles": {Before: before.Roles, After: after.Roles},
		})

	return RoleResult{UserID: userID, Roles: after.Roles, UpdatedAt: after.UpdatedAt}, nil
}

// UserPage is one page of a status listing.
type UserPage struct {
	Users      []store.ListedUser `json:"users"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// ListUsers pages through one status partition. Status defaults to active,
// limit to 50; limits outside [1,100] are validation errors.
func (s *Service) ListUsers(ctx context.Context, status string, limit int32, cursor string) (UserPage, error) {
	if status == "" {
		status = string(store.StatusActive)
	}
	if errs := validateStatus(status); errs != nil {
		return UserPage{}, store.NewValidation("invalid request data", errs)
	}
	limit, errs := normalizeLimit(limit)
	if errs != nil {
		return UserPage{}, store.NewValidation("invalid request data", errs)
	}

	users, next, err := s.store.ListByStatus(ctx, store.Status(status), limit, cursor)
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{Users: users, NextCursor: next}, nil
}

// AuditPage is one page of a user's audit history, newest first.
type AuditPage struct {
	Events     []store.AuditEvent `json:"auditLogs"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// GetAuditLog returns a user's audit trail. The user must resolve as a live
// entity first; deleted users' history stays reachable only through the
// status-transition path.
func (s *Service) GetAuditLog(ctx context.Context, userID string, limit int32, cursor string) (AuditPage, error) {
	limit, errs := normalizeLimit(limit)
	if errs != nil {
		return AuditPage{}, store.NewValidation("invalid request data", errs)
	}

	if _, err := s.store.GetByID(ctx, userID, false); err != nil {
		return AuditPage{}, err
	}

	events, next, err := s.store.AuditLog(ctx, userID, limit, cursor)
	if err != nil {
		return AuditPage{}, err
	}
	return AuditPage{Events: events, NextCursor: next}, nil
}

// replayUser decodes a stored idempotent response back into a User.
func replayUser(stored json.RawMessage) (store.User, error) {
	var user store.User
	if err := json.Unmarshal(stored, &user); err != nil {
		return store.User{}, store.NewInternal("failed to replay stored response", err)
	}
	return user, nil
}

// profileChanges diffs the mutable profile fields for the audit event.
func profileChanges(before, after store.User) map[string]store.Change {
	changes := map[string]store.Change{}
	if before.Name != after.Name {
		changes["name"] = store.Change{Before: before.Name, After: after.Name}
	}
	if !equalMetadata(before.Metadata, after.Metadata) {
		changes["metadata"] = store.Change{Before: before.Metadata, After: after.Metadata}
	}
	return changes
}

func equalMetadata(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
