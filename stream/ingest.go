// Package stream provides the EventBridge-triggered handler that
// materializes published audit events into the queryable audit table.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/roster/store"
)

// Handler persists audit events delivered through the event bus.
type Handler struct {
	client store.DynamoDBAPI
	table  string
	logger *slog.Logger
}

// NewHandler creates a new ingest handler writing to the given audit table.
func NewHandler(client store.DynamoDBAPI, table string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		client: client,
		table:  table,
		logger: logger,
	}
}

// HandleAuditEvent processes a single EventBridge event. The detail payload
// is the audit event as published by the emitter. Returning an error makes
// the invocation retry and eventually land in the DLQ.
func (h *Handler) HandleAuditEvent(ctx context.Context, event events.CloudWatchEvent) error {
	if event.DetailType != store.EventDetailType {
		h.logger.Info("skipping unexpected event",
			"detailType", event.DetailType,
			"source", event.Source,
		)
		return nil
	}

	var audit store.AuditEvent
	if err := json.Unmarshal(event.Detail, &audit); err != nil {
		// A malformed payload never becomes valid on retry.
		h.logger.Error("dropping undecodable audit event",
			"eventID", event.ID,
			"error", err,
		)
		return nil
	}
	if audit.EventID == "" || audit.UserID == "" || audit.Timestamp == "" {
		h.logger.Error("dropping audit event with missing identity",
			"eventID", audit.EventID,
			"userID", audit.UserID,
		)
		return nil
	}

	item, err := store.MarshalAuditRecord(audit)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	// Unconditional put: redelivery writes the same key with the same
	// content, so the ingest is idempotent.
	if _, err := h.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("persist audit event: %w", err)
	}

	h.logger.Info("audit event persisted",
		"eventID", audit.EventID,
		"userID", audit.UserID,
		"action", audit.Action,
	)
	return nil
}
