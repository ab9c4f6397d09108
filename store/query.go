package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/roster/internal/keys"
)

// ListByStatus queries one status partition, in the table's native key order.
// The order is stable across cursor pages as long as no listed user moves
// status concurrently. Records whose materialized status reads deleted are
// filtered out even inside a non-deleted partition, guarding against races
// during a status index move.
//
// nextCursor is "" when no further pages remain.
func (s *Store) ListByStatus(ctx context.Context, status Status, limit int32, cursor string) (users []ListedUser, nextCursor string, err error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.UsersTable),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.StatusPK(string(status))},
		},
		Limit: aws.Int32(limit),
	}
	if startKey := DecodeCursor(cursor); startKey != nil {
		input.ExclusiveStartKey = startKey
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, "", NewInternal("failed to list users", err)
	}

	users = make([]ListedUser, 0, len(result.Items))
	for _, item := range result.Items {
		user, err := unmarshalStatusIndex(item)
		if err != nil {
			return nil, "", NewInternal("failed to list users", err)
		}
		if user.Status == StatusDeleted {
			continue
		}
		users = append(users, user)
	}

	return users, EncodeCursor(result.LastEvaluatedKey), nil
}

// AuditLog returns a user's audit events newest first. Callers resolve the
// user before querying; this reads the audit partition only.
func (s *Store) AuditLog(ctx context.Context, userID string, limit int32, cursor string) (events []AuditEvent, nextCursor string, err error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.AuditTable),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keys.AuditPK(userID)},
		},
		Limit:            aws.Int32(limit),
		ScanIndexForward: aws.Bool(false),
	}
	if startKey := DecodeCursor(cursor); startKey != nil {
		input.ExclusiveStartKey = startKey
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, "", NewInternal("failed to query audit log", err)
	}

	events = make([]AuditEvent, 0, len(result.Items))
	for _, item := range result.Items {
		event, err := unmarshalAuditRecord(item)
		if err != nil {
			return nil, "", NewInternal("failed to query audit log", err)
		}
		events = append(events, event)
	}

	return events, EncodeCursor(result.LastEvaluatedKey), nil
}
