package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-order-dashboard/internal/aws"
)

// claimCondition admits a new key, a key whose last attempt failed, and a
// key whose previous owner let its lease run out.
const claimCondition = "attribute_not_exists(idempotency_key) OR #s = :failed OR (#s = :in_progress AND lease_until < :now)"

// Store encapsulates idempotency operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // how long records are kept
	lease     time.Duration // how long a claim is exclusive
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// ttlWindow: how long entries are kept before DynamoDB expires them (e.g., 48*time.Hour)
// lease: how long an IN_PROGRESS claim blocks other consumers
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow, lease time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		lease:     lease,
		nowFunc:   time.Now,
	}
}

// Claim takes ownership of key for the caller.
// Returns (true, nil) if the caller now owns the key and should do the work.
// Returns (false, nil) if the key is DONE or another consumer holds a live claim.
// Returns (false, err) on other errors.
func (s *Store) Claim(ctx context.Context, key, orderID string) (bool, error) {
	now := s.nowFunc().UTC()
	rec := Record{
		Key:        key,
		Status:     StatusInProgress,
		OrderID:    orderID,
		Attempts:   1,
		LeaseUntil: now.Add(s.lease).Unix(),
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(s.ttlWindow).Unix(),
	}

	prev, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if prev != nil {
		rec.Attempts = prev.Attempts + 1
		rec.CreatedAt = prev.CreatedAt
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:                &s.tableName,
		Item:                     item,
		ConditionExpression:      awsString(claimCondition),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed":      &types.AttributeValueMemberS{Value: StatusFailed},
			":in_progress": &types.AttributeValueMemberS{Value: StatusInProgress},
			":now":         &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// Get retrieves an idempotency record by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(key),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// MarkDone records that the work for key finished.
func (s *Store) MarkDone(ctx context.Context, key string) error {
	return s.setStatus(ctx, key, StatusDone, "")
}

// MarkFailed releases the claim so a redelivery can take it again.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	return s.setStatus(ctx, key, StatusFailed, note)
}

func (s *Store) setStatus(ctx context.Context, key, status, note string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      s.key(key),
		UpdateExpression:         awsString("SET #s = :status, note = :n, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("update item (mark %s): %w", status, err)
	}
	return nil
}

func (s *Store) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"idempotency_key": &types.AttributeValueMemberS{Value: key},
	}
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
