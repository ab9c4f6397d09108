package store

import (
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// cursorKey is the canonical serialization of a query's last evaluated key.
// Every record kind this package paginates over has string PK and SK.
type cursorKey struct {
	PK string `json:"pk"`
	SK string `json:"sk"`
}

// EncodeCursor converts a DynamoDB LastEvaluatedKey into an opaque token.
// Returns "" when the key is absent (no further pages).
func EncodeCursor(lastKey map[string]types.AttributeValue) string {
	if len(lastKey) == 0 {
		return ""
	}
	key := cursorKey{
		PK: stringAttr(lastKey, "PK"),
		SK: stringAttr(lastKey, "SK"),
	}
	if key.PK == "" || key.SK == "" {
		return ""
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeCursor converts a token back into an ExclusiveStartKey. The decode is
// deliberately lenient: a malformed or tampered token yields nil, and the
// query restarts from the beginning. A syntactically valid but fabricated key
// is validated by DynamoDB against the table's key schema; the worst case is a
// restarted or empty page, never corrupted state.
func DecodeCursor(token string) map[string]types.AttributeValue {
	if token == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var key cursorKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil
	}
	if key.PK == "" || key.SK == "" {
		return nil
	}
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: key.PK},
		"SK": &types.AttributeValueMemberS{Value: key.SK},
	}
}

// stringAttr extracts a string attribute, or "" when absent or mistyped.
func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
