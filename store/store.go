package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"

	"github.com/jacentio/roster/internal/keys"
)

// rolePattern bounds role names. Anything else is a validation error.
var rolePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store maintains the three derived views of a user entity as one atomic
// unit. Every multi-record write goes through TransactWriteItems, so a
// partial state is never visible to concurrent readers.
//
// Read-modify-write sequences are not serialized per user: two concurrent
// role mutations can both read the same before-image and the later commit
// wins on the roles list. Email uniqueness and the profile-create path are
// strongly protected by conditional writes.
type Store struct {
	client DynamoDBAPI
	config Config
	now    func() time.Time
	newID  func() string
}

// New creates a Store instance.
func New(client DynamoDBAPI, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
}

// NewUser is the input for Create.
type NewUser struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// ProfilePatch carries the mutable profile fields. Nil means unchanged.
// Email is immutable through this path and rejected at the boundary.
type ProfilePatch struct {
	Name     *string
	Metadata map[string]string
}

// Create registers a new user with a server-generated id and active status,
// committing profile, email-index and status-index records in one
// transaction. Email uniqueness is enforced by a conditional write at commit
// time, not a pre-check, so two concurrent registrations for the same email
// cannot both succeed.
func (s *Store) Create(ctx context.Context, input NewUser) (User, error) {
	now := s.now().UTC().Format(time.RFC3339)
	user := User{
		UserID:    s.newID(),
		Email:     input.Email,
		Name:      input.Name,
		Status:    StatusActive,
		Roles:     []string{},
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user.normalize()

	profile, err := marshalProfile(user)
	if err != nil {
		return User{}, NewInternal("failed to create user", err)
	}
	emailIdx, err := marshalEmailIndex(user)
	if err != nil {
		return User{}, NewInternal("failed to create user", err)
	}
	statusIdx, err := marshalStatusIndex(user)
	if err != nil {
		return User{}, NewInternal("failed to create user", err)
	}

	// Item order matters for cancellation-reason mapping below.
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.config.UsersTable),
				Item:                profile,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.config.UsersTable),
				Item:                emailIdx,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName: aws.String(s.config.UsersTable),
				Item:      statusIdx,
			}},
		},
	})
	if err != nil {
		return User{}, s.mapCreateError(err, user)
	}
	return user, nil
}

// GetByID fetches a user's profile record. Deleted users resolve only when
// includeDeleted is set; status transitions read through it to resurrect
// deleted users, every other read path excludes them.
func (s *Store) GetByID(ctx context.Context, userID string, includeDeleted bool) (User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.UsersTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: keys.ProfilePK(userID)},
			"SK": &types.AttributeValueMemberS{Value: keys.ProfileSK},
		},
	})
	if err != nil {
		return User{}, NewInternal("failed to load user", err)
	}
	if result.Item == nil {
		return User{}, NewNotFound("user %q not found", userID)
	}

	user, err := unmarshalProfile(result.Item)
	if err != nil {
		return User{}, NewInternal("failed to load user", err)
	}
	if user.Status == StatusDeleted && !includeDeleted {
		return User{}, NewNotFound("user %q not found", userID)
	}
	return user, nil
}

// UpdateProfile applies a name/metadata patch, rewriting the profile and
// status-index records atomically. The email index carries neither field and
// is left untouched.
func (s *Store) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (before, after User, err error) {
	before, err = s.GetByID(ctx, userID, false)
	if err != nil {
		return User{}, User{}, err
	}

	after = before.clone()
	if patch.Name != nil {
		after.Name = *patch.Name
	}
	if patch.Metadata != nil {
		after.Metadata = patch.Metadata
	}
	after.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.writeProfileAndStatusIndex(ctx, after); err != nil {
		return User{}, User{}, err
	}
	return before, after, nil
}

// UpdateStatus moves a user to a new status. Reads include deleted users so a
// deleted user can transition back. A same-status update is a no-op: the
// before and after images are identical and nothing is written.
//
// A status move touches all three views plus the partition move: profile and
// email-index rewritten, old status-index record deleted, new one inserted,
// all in one transaction. A partial failure leaves the old consistent triple
// intact.
func (s *Store) UpdateStatus(ctx context.Context, userID string, newStatus Status) (before, after User, err error) {
	before, err = s.GetByID(ctx, userID, true)
	if err != nil {
		return User{}, User{}, err
	}
	if before.Status == newStatus {
		return before, before, nil
	}

	after = before.clone()
	after.Status = newStatus
	after.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	profile, err := marshalProfile(after)
	if err != nil {
		return User{}, User{}, NewInternal("failed to update status", err)
	}
	emailIdx, err := marshalEmailIndex(after)
	if err != nil {
		return User{}, User{}, NewInternal("failed to update status", err)
	}
	statusIdx, err := marshalStatusIndex(after)
	if err != nil {
		return User{}, User{}, NewInternal("failed to update status", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName: aws.String(s.config.UsersTable),
				Item:      profile,
			}},
			{Put: &types.Put{
				TableName: aws.String(s.config.UsersTable),
				Item:      emailIdx,
			}},
			{Delete: &types.Delete{
				TableName: aws.String(s.config.UsersTable),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: keys.StatusPK(string(before.Status))},
					"SK": &types.AttributeValueMemberS{Value: keys.StatusSK(userID)},
				},
			}},
			{Put: &types.Put{
				TableName: aws.String(s.config.UsersTable),
				Item:      statusIdx,
			}},
		},
	})
	if err != nil {
		return User{}, User{}, NewInternal("failed to update status", err)
	}
	return before, after, nil
}

// AssignRole appends a role to the user's role set. Assigning a role that is
// already present is an idempotent no-op: identical before/after, no write.
func (s *Store) AssignRole(ctx context.Context, userID, role string) (before, after User, err error) {
	if !rolePattern.MatchString(role) {
		return User{}, User{}, NewValidation("invalid role name", map[string]string{
			"role": "Role must match [A-Za-z0-9_-]+",
		})
	}

	before, err = s.GetByID(ctx, userID, false)
	if err != nil {
		return User{}, User{}, err
	}
	if before.HasRole(role) {
		return before, before, nil
	}

	after = before.clone()
	after.Roles = append(after.Roles, role)
	after.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.writeProfileAndStatusIndex(ctx, after); err != nil {
		return User{}, User{}, err
	}
	return before, after, nil
}

// RemoveRole removes a role from the user's role set. Removing a role that is
// not assigned fails NotFound — deliberately asymmetric with AssignRole's
// no-op, only the message distinguishes it from a missing user.
func (s *Store) RemoveRole(ctx context.Context, userID, role string) (before, after User, err error) {
	before, err = s.GetByID(ctx, userID, false)
	if err != nil {
		return User{}, User{}, err
	}
	if !before.HasRole(role) {
		return User{}, User{}, NewNotFound("role %q not found for user %q", role, userID)
	}

	after = before.clone()
	remaining := make([]string, 0, len(after.Roles)-1)
	for _, r := range after.Roles {
		if r != role {
			remaining = append(remaining, r)
		}
	}
	after.Roles = remaining
	after.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.writeProfileAndStatusIndex(ctx, after); err != nil {
		return User{}, User{}, err
	}
	return before, after, nil
}

// writeProfileAndStatusIndex rewrites the two views that carry profile fields.
// Used by mutations that never move the user between status partitions.
func (s *Store) writeProfileAndStatusIndex(ctx context.Context, user User) error {
	profile, err := marshalProfile(user)
	if err != nil {
		return NewInternal("failed to write user", err)
	}
	statusIdx, err := marshalStatusIndex(user)
	if err != nil {
		return NewInternal("failed to write user", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName: aws.String(s.config.UsersTable),
				Item:      profile,
			}},
			{Put: &types.Put{
				TableName: aws.String(s.config.UsersTable),
				Item:      statusIdx,
			}},
		},
	})
	if err != nil {
		return NewInternal("failed to write user", err)
	}
	return nil
}

// mapCreateError maps a create transaction failure to a domain error using
// the cancellation reason indices: item 0 is the profile put, item 1 the
// email-index put.
func (s *Store) mapCreateError(err error, user User) error {
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
				continue
			}
			if i == 0 {
				// Guarded against, should not happen with fresh
				// server-generated ids.
				return NewConflict("user already exists", map[string]string{
					"userId": user.UserID,
				})
			}
			return NewConflict("email is already registered", map[string]string{
				"email": user.Email,
			})
		}
	}
	return NewInternal("failed to create user", err)
}
