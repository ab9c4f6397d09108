// Package storetest provides in-memory fakes of the narrow AWS client
// interfaces the storage layer consumes. Unit tests across packages share
// them instead of talking to real tables.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// DB is an in-memory stand-in for DynamoDB covering the calls the store
// makes: keyed gets/puts, single-partition queries with pagination, and
// all-or-nothing transactions with attribute_not_exists(PK) conditions.
type DB struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	// Injectable failures, applied to every subsequent call of that kind.
	GetErr   error
	PutErr   error
	QueryErr error
	TxErr    error

	// TxCalls counts TransactWriteItems invocations, including failed ones.
	TxCalls int
}

// NewDB creates an empty fake.
func NewDB() *DB {
	return &DB{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func attrString(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return attrString(item, "PK") + "\x00" + attrString(item, "SK")
}

func (d *DB) table(name string) map[string]map[string]types.AttributeValue {
	t, ok := d.tables[name]
	if !ok {
		t = map[string]map[string]types.AttributeValue{}
		d.tables[name] = t
	}
	return t
}

// Seed inserts an item directly, bypassing conditions.
func (d *DB) Seed(table string, item map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table(table)[itemKey(item)] = item
}

// CountByPrefix returns how many items of a table have a PK with the prefix.
func (d *DB) CountByPrefix(table, prefix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, item := range d.table(table) {
		if strings.HasPrefix(attrString(item, "PK"), prefix) {
			n++
		}
	}
	return n
}

func (d *DB) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.GetErr != nil {
		return nil, d.GetErr
	}
	item := d.table(aws.ToString(params.TableName))[itemKey(params.Key)]
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (d *DB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.PutErr != nil {
		return nil, d.PutErr
	}
	d.table(aws.ToString(params.TableName))[itemKey(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (d *DB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.QueryErr != nil {
		return nil, d.QueryErr
	}

	pk := attrString(params.ExpressionAttributeValues, ":pk")
	var matched []map[string]types.AttributeValue
	for _, item := range d.table(aws.ToString(params.TableName)) {
		if attrString(item, "PK") == pk {
			matched = append(matched, item)
		}
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		less := attrString(matched[i], "SK") < attrString(matched[j], "SK")
		if forward {
			return less
		}
		return !less
	})

	if params.ExclusiveStartKey != nil {
		startSK := attrString(params.ExclusiveStartKey, "SK")
		rest := matched[:0:0]
		for _, item := range matched {
			sk := attrString(item, "SK")
			past := sk > startSK
			if !forward {
				past = sk < startSK
			}
			if past {
				rest = append(rest, item)
			}
		}
		matched = rest
	}

	out := &dynamodb.QueryOutput{}
	limit := len(matched)
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
	}
	out.Items = matched[:limit]
	if limit < len(matched) && limit > 0 {
		last := matched[limit-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: attrString(last, "PK")},
			"SK": &types.AttributeValueMemberS{Value: attrString(last, "SK")},
		}
	}
	return out, nil
}

func (d *DB) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.TxCalls++
	if d.TxErr != nil {
		return nil, d.TxErr
	}

	// Evaluate all conditions first so a failed transaction changes nothing.
	var failed bool
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	for i, item := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		if item.Put == nil || item.Put.ConditionExpression == nil {
			continue
		}
		if !strings.Contains(aws.ToString(item.Put.ConditionExpression), "attribute_not_exists(PK)") {
			continue
		}
		table := d.table(aws.ToString(item.Put.TableName))
		if _, exists := table[itemKey(item.Put.Item)]; exists {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, item := range params.TransactItems {
		switch {
		case item.Put != nil:
			d.table(aws.ToString(item.Put.TableName))[itemKey(item.Put.Item)] = item.Put.Item
		case item.Delete != nil:
			delete(d.table(aws.ToString(item.Delete.TableName)), itemKey(item.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// Bus records published EventBridge entries.
type Bus struct {
	mu      sync.Mutex
	Entries []ebtypes.PutEventsRequestEntry
	PutErr  error
}

func (b *Bus) PutEvents(_ context.Context, params *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PutErr != nil {
		return nil, b.PutErr
	}
	b.Entries = append(b.Entries, params.Entries...)
	return &eventbridge.PutEventsOutput{}, nil
}

// Count returns how many entries were published.
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Entries)
}
