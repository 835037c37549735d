package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imrishuroy/go-order-dashboard/internal/aws"
)

// Message attribute names set on every published event.
const (
	AttrEventType = "event_type"
	AttrOrderID   = "order_id"
)

// Publisher delivers order events.
type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// SQSPublisher sends events as JSON messages to a queue.
type SQSPublisher struct {
	queue *aws.Publisher
}

// NewSQSPublisher wraps an SQS queue publisher.
func NewSQSPublisher(queue *aws.Publisher) *SQSPublisher {
	return &SQSPublisher{queue: queue}
}

func (p *SQSPublisher) Publish(ctx context.Context, ev OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	// events of one order share a group so a FIFO queue keeps them in order
	return p.queue.Send(ctx, aws.Message{
		Body: string(body),
		Attributes: map[string]string{
			AttrEventType: string(ev.Type),
			AttrOrderID:   ev.OrderID,
		},
		GroupID:         ev.OrderID,
		DeduplicationID: ev.EventID,
	})
}

// Nop drops every event. Used when no queue is configured.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
