package keys

import "testing"

func TestKeyFormats(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"profile PK", ProfilePK("01ARZ3NDEKTSV4RRFFQ69G5FAV"), "USER#01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		{"email PK", EmailPK("alice@x.com"), "USER_EMAIL#alice@x.com"},
		{"status PK", StatusPK("active"), "USER_STATUS#active"},
		{"status SK", StatusSK("01ARZ3NDEKTSV4RRFFQ69G5FAV"), "USER#01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		{"idempotency PK", IdempotencyPK("k1"), "IDEM#k1"},
		{"audit PK", AuditPK("01ARZ3NDEKTSV4RRFFQ69G5FAV"), "AUDIT#01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		{"audit SK", AuditSK("2024-01-15T10:00:00Z", "01HX4"), "2024-01-15T10:00:00Z#01HX4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.got)
			}
		})
	}
}

func TestUserIDFromStatusSK(t *testing.T) {
	tests := []struct {
		name string
		sk   string
		id   string
		ok   bool
	}{
		{"valid", "USER#abc", "abc", true},
		{"missing prefix", "abc", "", false},
		{"prefix only", "USER#", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := UserIDFromStatusSK(tt.sk)
			if id != tt.id || ok != tt.ok {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.id, tt.ok, id, ok)
			}
		})
	}
}

func TestEmptyComponentPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"profile PK", func() { ProfilePK("") }},
		{"email PK", func() { EmailPK("") }},
		{"status PK", func() { StatusPK("") }},
		{"status SK", func() { StatusSK("") }},
		{"idempotency PK", func() { IdempotencyPK("") }},
		{"audit PK", func() { AuditPK("") }},
		{"audit SK timestamp", func() { AuditSK("", "e1") }},
		{"audit SK event id", func() { AuditSK("2024-01-15T10:00:00Z", "") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic on empty component")
				}
			}()
			tt.fn()
		})
	}
}
