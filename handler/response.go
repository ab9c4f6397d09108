package handler

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/roster/store"
)

// errorBody is the wire shape for all error responses.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func statusFor(kind store.Kind) int {
	switch kind {
	case store.KindValidation:
		return 400
	case store.KindNotFound:
		return 404
	case store.KindConflict:
		return 409
	default:
		return 500
	}
}

func jsonResponse(status int, correlationID string, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		// Responses are our own structs; this only fires on a programming error.
		body = []byte(`{"code":"INTERNAL_ERROR","message":"failed to encode response"}`)
		status = 500
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

func errorResponse(logger *slog.Logger, correlationID string, err error) events.APIGatewayProxyResponse {
	kind := store.KindOf(err)
	status := statusFor(kind)

	body := errorBody{Code: kind.Code(), Message: err.Error()}
	var serr *store.Error
	if errors.As(err, &serr) {
		body.Message = serr.Message
		body.Details = serr.Details
	}
	if status == 500 {
		// Internals keep their cause in the logs, not on the wire.
		logger.Error("request failed", "error", err)
		body.Message = "internal server error"
		body.Details = nil
	} else {
		logger.Info("request rejected", "status", status, "code", body.Code)
	}

	return jsonResponse(status, correlationID, body)
}
