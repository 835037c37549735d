package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message is one queue message.
type Message struct {
	Body string
	// Attributes are sent as String message attributes. Empty values are skipped.
	Attributes map[string]string
	// GroupID and DeduplicationID only apply to FIFO queues.
	GroupID         string
	DeduplicationID string
}

// Publisher sends messages to one SQS queue.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
	fifo     bool
}

// NewPublisher returns a Publisher bound to a queue URL. A URL ending in
// ".fifo" enables message groups and deduplication ids.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// Send sends msg to the queue.
func (p *Publisher) Send(ctx context.Context, msg Message) error {
	input := &sqs.SendMessageInput{
		QueueUrl:          &p.QueueURL,
		MessageBody:       &msg.Body,
		MessageAttributes: stringAttributes(msg.Attributes),
	}
	if p.fifo {
		if msg.GroupID == "" {
			return fmt.Errorf("send message: fifo queue %s requires a group id", p.QueueURL)
		}
		input.MessageGroupId = awsString(msg.GroupID)
		if msg.DeduplicationID != "" {
			input.MessageDeduplicationId = awsString(msg.DeduplicationID)
		}
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func stringAttributes(attrs map[string]string) map[string]sqstypes.MessageAttributeValue {
	out := map[string]sqstypes.MessageAttributeValue{}
	for k, v := range attrs {
		if v == "" {
			continue
		}
		out[k] = sqstypes.MessageAttributeValue{
			DataType:    awsString("String"),
			StringValue: awsString(v),
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func awsString(s string) *string { return &s }
