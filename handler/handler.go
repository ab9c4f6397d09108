// Package handler exposes the user management operations over API Gateway
// proxy integration.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/jacentio/roster/service"
	"github.com/jacentio/roster/store"
)

const correlationHeader = "X-Correlation-Id"

// Handler routes API Gateway requests to the service. It is constructed once
// at cold start and reused across invocations.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Handle dispatches one API Gateway proxy request. The route key is the
// method plus the resource template, so path parameters stay symbolic.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(req)
	logger := h.logger.With(
		"correlationId", correlationID,
		"method", req.HTTPMethod,
		"resource", req.Resource,
	)

	payload, status, err := h.route(ctx, req, correlationID)
	if err != nil {
		return errorResponse(logger, correlationID, err), nil
	}

	logger.Info("request completed", "status", status)
	return jsonResponse(status, correlationID, payload), nil
}

func (h *Handler) route(ctx context.Context, req events.APIGatewayProxyRequest, correlationID string) (any, int, error) {
	userID := req.PathParameters["userId"]

	switch req.HTTPMethod + " " + req.Resource {
	case "POST /users":
		var in service.RegisterInput
		if err := decodeBody(req.Body, &in); err != nil {
			return nil, 0, err
		}
		user, err := h.svc.Register(ctx, in, correlationID)
		if err != nil {
			return nil, 0, err
		}
		return user, 201, nil

	case "GET /users":
		limit, err := limitParam(req.QueryStringParameters["limit"])
		if err != nil {
			return nil, 0, err
		}
		page, err := h.svc.ListUsers(ctx, req.QueryStringParameters["status"], limit, req.QueryStringParameters["cursor"])
		if err != nil {
			return nil, 0, err
		}
		return page, 200, nil

	case "GET /users/{userId}":
		user, err := h.svc.GetProfile(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		return user, 200, nil

	case "PUT /users/{userId}":
		var in service.UpdateProfileInput
		if err := decodeBody(req.Body, &in); err != nil {
			return nil, 0, err
		}
		user, err := h.svc.UpdateProfile(ctx, userID, in, correlationID)
		if err != nil {
			return nil, 0, err
		}
		return user, 200, nil

	case "PUT /users/{userId}/status":
		var in struct {
			Status string `json:"status"`
		}
		if err := decodeBody(req.Body, &in); err != nil {
			return nil, 0, err
		}
		res, err := h.svc.SetStatus(ctx, userID, in.Status, correlationID)
		if err != nil {
			return nil, 0, err
		}
		return res, 200, nil

	case "POST /users/{userId}/roles":
		var in struct {
			Role string `json:"role"`
		}
		if err := decodeBody(req.Body, &in); err != nil {
			return nil, 0, err
		}
		res, err := h.svc.AssignRole(ctx, userID, in.Role, correlationID)
		if err != nil {
			return nil, 0, err
		}
		return res, 200, nil

	case "DELETE /users/{userId}/roles/{role}":
		res, err := h.svc.RemoveRole(ctx, userID, req.PathParameters["role"], correlationID)
		if err != nil {
			return nil, 0, err
		}
		return res, 200, nil

	case "GET /users/{userId}/audit":
		limit, err := limitParam(req.QueryStringParameters["limit"])
		if err != nil {
			return nil, 0, err
		}
		page, err := h.svc.GetAuditLog(ctx, userID, limit, req.QueryStringParameters["cursor"])
		if err != nil {
			return nil, 0, err
		}
		return page, 200, nil
	}

	return nil, 0, store.NewNotFound("route %s %s not found", req.HTTPMethod, req.Resource)
}

// decodeBody parses a JSON request body. Unknown fields are rejected so
// clients cannot smuggle immutable attributes like email past an update.
func decodeBody(body string, out any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return store.NewValidation("invalid request body", map[string]string{"body": err.Error()})
	}
	return nil
}

func limitParam(raw string) (int32, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, store.NewValidation("invalid request data", map[string]string{"limit": "limit must be an integer"})
	}
	return int32(limit), nil
}

func correlationIDFrom(req events.APIGatewayProxyRequest) string {
	for name, value := range req.Headers {
		if strings.EqualFold(name, correlationHeader) && value != "" {
			return value
		}
	}
	if req.RequestContext.RequestID != "" {
		return req.RequestContext.RequestID
	}
	return uuid.NewString()
}
