package store

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// --- canonicalHash ---

func TestCanonicalHashStableAcrossTypes(t *testing.T) {
	// The same logical document must hash identically whether it arrives
	// as a struct or a map, and regardless of map iteration order.
	type payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}

	h1, err := canonicalHash(payload{Email: "alice@x.com", Name: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := canonicalHash(map[string]string{"name": "Alice", "email": "alice@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
}

func TestCanonicalHashDistinguishesPayloads(t *testing.T) {
	h1, err := canonicalHash(map[string]string{"email": "alice@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := canonicalHash(map[string]string{"email": "bob@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("expected different payloads to hash differently")
	}
}

// --- isExpired ---

func TestIsExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name     string
		item     map[string]types.AttributeValue
		expected bool
	}{
		{
			name:     "no ttl attribute",
			item:     map[string]types.AttributeValue{},
			expected: false,
		},
		{
			name: "ttl in past",
			item: map[string]types.AttributeValue{
				"ttl": &types.AttributeValueMemberN{Value: "1699999999"},
			},
			expected: true,
		},
		{
			name: "ttl is now",
			item: map[string]types.AttributeValue{
				"ttl": &types.AttributeValueMemberN{Value: "1700000000"},
			},
			expected: true,
		},
		{
			name: "ttl in future",
			item: map[string]types.AttributeValue{
				"ttl": &types.AttributeValueMemberN{Value: "1700086400"},
			},
			expected: false,
		},
		{
			name: "ttl wrong type",
			item: map[string]types.AttributeValue{
				"ttl": &types.AttributeValueMemberS{Value: "soon"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExpired(tt.item, now); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// --- error kinds ---

func TestKindCodes(t *testing.T) {
	tests := []struct {
		kind Kind
		code string
	}{
		{KindValidation, "VALIDATION_ERROR"},
		{KindNotFound, "NOT_FOUND"},
		{KindConflict, "CONFLICT"},
		{KindInternal, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		if got := tt.kind.Code(); got != tt.code {
			t.Errorf("expected %q, got %q", tt.code, got)
		}
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errDummy{}); got != KindInternal {
		t.Errorf("expected unclassified errors to collapse to internal, got %v", got)
	}
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }
