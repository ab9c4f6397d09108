package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/oklog/ulid/v2"
)

// EventBridge envelope constants. The ingest rule matches on both.
const (
	EventSource     = "user-management.users"
	EventDetailType = "UserAuditEvent"
)

// Emitter constructs audit events and hands them to EventBridge. Delivery is
// fire-and-forget and at-most-once from the mutation path's perspective: a
// publish failure is logged and swallowed, never failing the mutation.
type Emitter struct {
	client EventBridgeAPI
	bus    string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewEmitter creates an audit emitter publishing to the configured bus.
func NewEmitter(client EventBridgeAPI, config Config, logger *slog.Logger) *Emitter {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		client: client,
		bus:    config.EventBus,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
}

// Emit publishes one audit event for a committed mutation. The event gets a
// fresh id and timestamp here; callers supply only the mutation facts.
func (e *Emitter) Emit(ctx context.Context, action Action, userID, actor, correlationID string, changes map[string]Change) {
	if changes == nil {
		changes = map[string]Change{}
	}
	event := AuditEvent{
		EventID:       e.newID(),
		UserID:        userID,
		Timestamp:     e.now().UTC().Format(time.RFC3339),
		Action:        action,
		Actor:         actor,
		CorrelationID: correlationID,
		Changes:       changes,
	}

	detail, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("audit event marshal failed",
			"error", err,
			"action", action,
			"userId", userID,
		)
		return
	}

	_, err = e.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{
			{
				Source:       aws.String(EventSource),
				DetailType:   aws.String(EventDetailType),
				Detail:       aws.String(string(detail)),
				EventBusName: aws.String(e.bus),
			},
		},
	})
	if err != nil {
		e.logger.Error("audit event publish failed",
			"error", err,
			"action", action,
			"userId", userID,
			"eventId", event.EventID,
		)
	}
}
