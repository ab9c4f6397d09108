package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/roster/internal/keys"
)

// Idempotency coordinates retried mutation requests. A stored record pairs a
// caller-supplied key with the hash of the originating request and the
// serialized response; a retry with a matching hash replays the response, a
// mismatching hash is a conflict.
//
// Idempotency is a best-effort optimization, never a blocking dependency:
// backend failures during Check behave as key-not-found, and failures during
// Store never fail the already-committed mutation. Both are logged and
// swallowed.
type Idempotency struct {
	client DynamoDBAPI
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewIdempotency creates an idempotency coordinator.
func NewIdempotency(client DynamoDBAPI, config Config, logger *slog.Logger) *Idempotency {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Idempotency{
		client: client,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

type idempotencyRecord struct {
	PK             string `dynamodbav:"PK"`
	IdempotencyKey string `dynamodbav:"idempotencyKey"`
	RequestHash    string `dynamodbav:"requestHash"`
	Response       string `dynamodbav:"response"`
	CreatedAt      int64  `dynamodbav:"createdAt"`
	TTL            int64  `dynamodbav:"ttl"`
}

// Check looks up key. It returns the previously stored response when the key
// exists with a matching request hash, nil when the key is absent or expired,
// and a conflict error when the key was used for a different request.
func (i *Idempotency) Check(ctx context.Context, key string, payload any) (json.RawMessage, error) {
	result, err := i.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(i.config.IdempotencyTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: keys.IdempotencyPK(key)},
		},
	})
	if err != nil {
		// Lookup failure behaves as key-not-found: the caller proceeds
		// as a new request.
		i.logger.Error("idempotency lookup failed", "error", err, "idempotencyKey", key)
		return nil, nil
	}
	if result.Item == nil || isExpired(result.Item, i.now()) {
		return nil, nil
	}

	var rec idempotencyRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		i.logger.Error("idempotency record unmarshal failed", "error", err, "idempotencyKey", key)
		return nil, nil
	}

	hash, err := canonicalHash(payload)
	if err != nil {
		i.logger.Error("idempotency request hash failed", "error", err, "idempotencyKey", key)
		return nil, nil
	}
	if rec.RequestHash != hash {
		return nil, NewConflict(
			fmt.Sprintf("idempotency key %q already used with different request data", key),
			map[string]string{"idempotencyKey": key},
		)
	}

	return json.RawMessage(rec.Response), nil
}

// Store upserts key -> (request hash, response) with passive TTL expiry.
// Genuine retries carry a matching hash, so last write wins is safe.
func (i *Idempotency) Store(ctx context.Context, key string, payload, response any) {
	hash, err := canonicalHash(payload)
	if err != nil {
		i.logger.Error("idempotency request hash failed", "error", err, "idempotencyKey", key)
		return
	}
	body, err := json.Marshal(response)
	if err != nil {
		i.logger.Error("idempotency response marshal failed", "error", err, "idempotencyKey", key)
		return
	}

	now := i.now()
	item, err := attributevalue.MarshalMap(idempotencyRecord{
		PK:             keys.IdempotencyPK(key),
		IdempotencyKey: key,
		RequestHash:    hash,
		Response:       string(body),
		CreatedAt:      now.Unix(),
		TTL:            now.Add(i.config.IdempotencyTTL).Unix(),
	})
	if err != nil {
		i.logger.Error("idempotency record marshal failed", "error", err, "idempotencyKey", key)
		return
	}

	if _, err := i.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(i.config.IdempotencyTable),
		Item:      item,
	}); err != nil {
		// The mutation already committed; a lost record only costs a
		// replay shortcut on retry.
		i.logger.Error("idempotency store failed", "error", err, "idempotencyKey", key)
	}
}

// canonicalHash returns the sha256 hex digest of payload's canonical JSON.
// The payload is round-tripped through an untyped value so map keys serialize
// in sorted order regardless of the input's Go type.
func canonicalHash(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	canon, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal canonical payload: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
