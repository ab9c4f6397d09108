package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/roster/handler"
	"github.com/jacentio/roster/internal/storetest"
	"github.com/jacentio/roster/service"
	"github.com/jacentio/roster/store"
)

func newTestHandler() *handler.Handler {
	cfg := store.Config{
		UsersTable:       "users",
		IdempotencyTable: "idempotency",
		AuditTable:       "audit",
		EventBus:         "audit-bus",
	}
	db := storetest.NewDB()
	svc := service.New(
		store.New(db, cfg),
		store.NewIdempotency(db, cfg, nil),
		store.NewEmitter(&storetest.Bus{}, cfg, nil),
		nil,
	)
	return handler.NewHandler(svc, nil)
}

func request(method, resource, body string, pathParams map[string]string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod:     method,
		Resource:       resource,
		Body:           body,
		PathParameters: pathParams,
		Headers:        map[string]string{"x-correlation-id": "corr-test"},
	}
}

func registerBody(email, key string) string {
	return fmt.Sprintf(`{"email":%q,"name":"Alice","idempotencyKey":%q}`, email, key)
}

func registerUser(t *testing.T, h *handler.Handler, email, key string) store.User {
	t.Helper()
	resp, err := h.Handle(context.Background(), request("POST", "/users", registerBody(email, key), nil))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("register status %d: %s", resp.StatusCode, resp.Body)
	}
	var user store.User
	if err := json.Unmarshal([]byte(resp.Body), &user); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return user
}

func decodeError(t *testing.T, body string) (code string, details map[string]string) {
	t.Helper()
	var e struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return e.Code, e.Details
}

func TestRegisterRoute(t *testing.T) {
	h := newTestHandler()
	user := registerUser(t, h, "alice@example.com", "k1")
	if user.Email != "alice@example.com" || user.Status != store.StatusActive {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestRegisterDuplicateEmailMapsToConflict(t *testing.T) {
	h := newTestHandler()
	registerUser(t, h, "alice@example.com", "k1")

	resp, err := h.Handle(context.Background(), request("POST", "/users", registerBody("alice@example.com", "k2"), nil))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, resp.Body)
	}
	if code, _ := decodeError(t, resp.Body); code != "CONFLICT" {
		t.Errorf("expected CONFLICT, got %s", code)
	}
}

func TestRegisterValidationMapsTo400(t *testing.T) {
	h := newTestHandler()
	resp, err := h.Handle(context.Background(), request("POST", "/users", `{"email":"","name":"","idempotencyKey":""}`, nil))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	code, details := decodeError(t, resp.Body)
	if code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", code)
	}
	if len(details) == 0 {
		t.Errorf("expected field details, got none")
	}
}

func TestUpdateProfileRejectsUnknownFields(t *testing.T) {
	h := newTestHandler()
	user := registerUser(t, h, "alice@example.com", "k1")

	// Email is immutable; sending it must fail instead of being ignored.
	resp, err := h.Handle(context.Background(), request("PUT", "/users/{userId}",
		`{"email":"new@example.com","idempotencyKey":"k2"}`,
		map[string]string{"userId": user.UserID}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestGetProfileRoute(t *testing.T) {
	h := newTestHandler()
	user := registerUser(t, h, "alice@example.com", "k1")

	resp, err := h.Handle(context.Background(), request("GET", "/users/{userId}", "",
		map[string]string{"userId": user.UserID}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("missing content type")
	}
	if resp.Headers["X-Correlation-Id"] != "corr-test" {
		t.Errorf("correlation id not echoed: %v", resp.Headers)
	}
}

func TestGetProfileUnknownUserMapsTo404(t *testing.T) {
	h := newTestHandler()
	resp, err := h.Handle(context.Background(), request("GET", "/users/{userId}", "",
		map[string]string{"userId": "01HXNOPE"}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStatusAndRoleRoutes(t *testing.T) {
	h := newTestHandler()
	ctx := context.Background()
	user := registerUser(t, h, "alice@example.com", "k1")
	params := map[string]string{"userId": user.UserID}

	resp, err := h.Handle(ctx, request("PUT", "/users/{userId}/status", `{"status":"disabled"}`, params))
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("status: err=%v code=%d body=%s", err, resp.StatusCode, resp.Body)
	}

	resp, err = h.Handle(ctx, request("POST", "/users/{userId}/roles", `{"role":"admin"}`, params))
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("assign role: err=%v code=%d body=%s", err, resp.StatusCode, resp.Body)
	}
	var role service.RoleResult
	if err := json.Unmarshal([]byte(resp.Body), &role); err != nil {
		t.Fatalf("decode role result: %v", err)
	}
	if len(role.Roles) != 1 || role.Roles[0] != "admin" {
		t.Errorf("expected [admin], got %v", role.Roles)
	}

	resp, err = h.Handle(ctx, request("DELETE", "/users/{userId}/roles/{role}", "",
		map[string]string{"userId": user.UserID, "role": "admin"}))
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("remove role: err=%v code=%d body=%s", err, resp.StatusCode, resp.Body)
	}

	resp, err = h.Handle(ctx, request("DELETE", "/users/{userId}/roles/{role}", "",
		map[string]string{"userId": user.UserID, "role": "admin"}))
	if err != nil {
		t.Fatalf("remove missing role: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 removing unassigned role, got %d", resp.StatusCode)
	}
}

func TestListUsersRoute(t *testing.T) {
	h := newTestHandler()
	registerUser(t, h, "alice@example.com", "k1")
	registerUser(t, h, "bob@example.com", "k2")

	req := request("GET", "/users", "", nil)
	req.QueryStringParameters = map[string]string{"status": "active", "limit": "10"}
	resp, err := h.Handle(context.Background(), req)
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("list: err=%v code=%d", err, resp.StatusCode)
	}
	var page service.UserPage
	if err := json.Unmarshal([]byte(resp.Body), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Users) != 2 {
		t.Errorf("expected 2 users, got %d", len(page.Users))
	}
}

func TestListUsersBadLimitMapsTo400(t *testing.T) {
	h := newTestHandler()
	req := request("GET", "/users", "", nil)
	req.QueryStringParameters = map[string]string{"limit": "abc"}
	resp, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUnknownRouteMapsTo404(t *testing.T) {
	h := newTestHandler()
	resp, err := h.Handle(context.Background(), request("PATCH", "/users", "", nil))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCorrelationIDGeneratedWhenAbsent(t *testing.T) {
	h := newTestHandler()
	req := request("GET", "/users", "", nil)
	req.Headers = nil
	resp, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if resp.Headers["X-Correlation-Id"] == "" {
		t.Errorf("expected generated correlation id")
	}
}
