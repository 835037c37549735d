package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/imrishuroy/go-order-dashboard/internal/aws"
	"github.com/imrishuroy/go-order-dashboard/internal/events"
)

// Record is one entry of the audit table.
type Record struct {
	EventID    string    `dynamodbav:"event_id"` // PK
	OrderID    string    `dynamodbav:"order_id"`
	Type       string    `dynamodbav:"type"`
	Status     string    `dynamodbav:"status,omitempty"`
	Actor      string    `dynamodbav:"actor,omitempty"`
	OccurredAt time.Time `dynamodbav:"occurred_at"`
	RecordedAt time.Time `dynamodbav:"recorded_at"`
}

// Store writes audit records to DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// Put records ev. Writing the same event twice leaves one record.
func (s *Store) Put(ctx context.Context, ev events.OrderEvent) error {
	rec := Record{
		EventID:    ev.EventID,
		OrderID:    ev.OrderID,
		Type:       string(ev.Type),
		Status:     ev.Status,
		Actor:      ev.Actor,
		OccurredAt: ev.OccurredAt,
		RecordedAt: s.nowFunc().UTC(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put audit record: %w", err)
	}
	return nil
}
