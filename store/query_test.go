package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/roster/internal/storetest"
	"github.com/jacentio/roster/store"
)

func TestListByStatus(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	active := mustCreate(t, s, "a@x.com", "A")
	mustCreate(t, s, "b@x.com", "B")
	disabled := mustCreate(t, s, "c@x.com", "C")
	if _, _, err := s.UpdateStatus(ctx, disabled.UserID, store.StatusDisabled); err != nil {
		t.Fatalf("disable: %v", err)
	}

	users, next, err := s.ListByStatus(ctx, store.StatusActive, 50, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 active users, got %d", len(users))
	}
	if next != "" {
		t.Errorf("expected no next cursor, got %q", next)
	}
	for _, u := range users {
		if u.UserID == disabled.UserID {
			t.Error("disabled user leaked into active listing")
		}
	}

	users, _, err = s.ListByStatus(ctx, store.StatusDisabled, 50, "")
	if err != nil {
		t.Fatalf("list disabled: %v", err)
	}
	if len(users) != 1 || users[0].UserID != disabled.UserID {
		t.Errorf("expected only the disabled user, got %v", users)
	}
	_ = active
}

func TestListByStatusPagination(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		u := mustCreate(t, s, fmt.Sprintf("user%d@x.com", i), fmt.Sprintf("User %d", i))
		seen[u.UserID] = false
	}

	cursor := ""
	pages := 0
	for {
		users, next, err := s.ListByStatus(ctx, store.StatusActive, 2, cursor)
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		for _, u := range users {
			if done, ok := seen[u.UserID]; !ok || done {
				t.Errorf("user %q missing or repeated across pages", u.UserID)
			}
			seen[u.UserID] = true
		}
		pages++
		if next == "" {
			break
		}
		cursor = next
	}

	if pages != 3 {
		t.Errorf("expected 3 pages of 2, got %d", pages)
	}
	for id, done := range seen {
		if !done {
			t.Errorf("user %q never listed", id)
		}
	}
}

func TestListByStatusGarbageCursorRestarts(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	mustCreate(t, s, "a@x.com", "A")
	mustCreate(t, s, "b@x.com", "B")

	users, _, err := s.ListByStatus(ctx, store.StatusActive, 50, "!!garbage!!")
	if err != nil {
		t.Fatalf("expected garbage cursor to degrade to no cursor, got %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected full restart listing 2 users, got %d", len(users))
	}
}

func TestListByStatusFiltersRacedDeletes(t *testing.T) {
	// Defense in depth: a record whose materialized status reads deleted is
	// dropped even when found inside a non-deleted partition.
	s, db := newTestStore()
	u := mustCreate(t, s, "a@x.com", "A")

	db.Seed("users", map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: "USER_STATUS#active"},
		"SK":         &types.AttributeValueMemberS{Value: "USER#01RACED"},
		"userId":     &types.AttributeValueMemberS{Value: "01RACED"},
		"email":      &types.AttributeValueMemberS{Value: "raced@x.com"},
		"name":       &types.AttributeValueMemberS{Value: "Raced"},
		"status":     &types.AttributeValueMemberS{Value: "deleted"},
		"roles":      &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		"createdAt":  &types.AttributeValueMemberS{Value: "2024-01-15T10:00:00Z"},
		"entityType": &types.AttributeValueMemberS{Value: "STATUS_INDEX"},
	})

	users, _, err := s.ListByStatus(context.Background(), store.StatusActive, 50, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || users[0].UserID != u.UserID {
		t.Errorf("expected raced deleted record filtered, got %v", users)
	}
}

func seedAuditEvent(db *storetest.DB, userID, ts, eventID, action string) {
	db.Seed("audit", map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: "AUDIT#" + userID},
		"SK":            &types.AttributeValueMemberS{Value: ts + "#" + eventID},
		"eventId":       &types.AttributeValueMemberS{Value: eventID},
		"userId":        &types.AttributeValueMemberS{Value: userID},
		"timestamp":     &types.AttributeValueMemberS{Value: ts},
		"action":        &types.AttributeValueMemberS{Value: action},
		"actor":         &types.AttributeValueMemberS{Value: "system"},
		"correlationId": &types.AttributeValueMemberS{Value: "corr-1"},
		"entityType":    &types.AttributeValueMemberS{Value: "AUDIT_EVENT"},
	})
}

func TestAuditLogNewestFirst(t *testing.T) {
	s, db := newTestStore()

	seedAuditEvent(db, "u1", "2024-01-15T10:00:00Z", "01A", "USER_CREATED")
	seedAuditEvent(db, "u1", "2024-01-16T10:00:00Z", "01B", "USER_UPDATED")
	seedAuditEvent(db, "u1", "2024-01-17T10:00:00Z", "01C", "STATUS_CHANGED")
	seedAuditEvent(db, "u2", "2024-01-18T10:00:00Z", "01D", "USER_CREATED")

	events, next, err := s.AuditLog(context.Background(), "u1", 50, "")
	if err != nil {
		t.Fatalf("audit log: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events for u1, got %d", len(events))
	}
	if next != "" {
		t.Errorf("expected no next cursor, got %q", next)
	}

	expected := []string{"01C", "01B", "01A"}
	for i, ev := range events {
		if ev.EventID != expected[i] {
			t.Errorf("position %d: expected %q, got %q", i, expected[i], ev.EventID)
		}
	}
}

func TestAuditLogPagination(t *testing.T) {
	s, db := newTestStore()

	for i := 0; i < 5; i++ {
		seedAuditEvent(db, "u1",
			fmt.Sprintf("2024-01-%02dT10:00:00Z", 10+i),
			fmt.Sprintf("01EVT%d", i),
			"USER_UPDATED")
	}

	first, next, err := s.AuditLog(context.Background(), "u1", 3, "")
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 3 || next == "" {
		t.Fatalf("expected full first page with cursor, got %d events, cursor %q", len(first), next)
	}

	second, next, err := s.AuditLog(context.Background(), "u1", 3, next)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 2 {
		t.Errorf("expected 2 remaining events, got %d", len(second))
	}
	if next != "" {
		t.Errorf("expected exhausted cursor, got %q", next)
	}
	if first[0].EventID != "01EVT4" || second[len(second)-1].EventID != "01EVT0" {
		t.Error("expected newest-first ordering across pages")
	}
}
