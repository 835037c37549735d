package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-dashboard/internal/aws"
	"github.com/imrishuroy/go-order-dashboard/internal/events"
	"github.com/imrishuroy/go-order-dashboard/internal/idempotency"
)

const (
	claimTTL   = 48 * time.Hour
	claimLease = 5 * time.Minute
)

var errInvalidEvent = errors.New("invalid order event")

// Processor consumes order events from SQS and writes each one to the audit
// table exactly once.
type Processor struct {
	claims *idempotency.Store
	audit  *Store
	logger *zap.Logger
}

// NewProcessor creates a new worker processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, idempTable, auditTable string, logger *zap.Logger) *Processor {
	return &Processor{
		claims: idempotency.NewStore(clients.DynamoDB, idempTable, claimTTL, claimLease),
		audit:  NewStore(clients.DynamoDB, auditTable),
		logger: logger,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Lambda retries the batch; records already done are skipped by their claim.
			p.logger.Error("failed to process message", zap.String("message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec lambdaevents.SQSMessage) error {
	var ev events.OrderEvent
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("%w: %v", errInvalidEvent, err)
	}
	if ev.EventID == "" || ev.OrderID == "" {
		return fmt.Errorf("%w: missing event_id or order_id", errInvalidEvent)
	}

	logger := p.logger.With(
		zap.String("event_id", ev.EventID),
		zap.String("order_id", ev.OrderID),
		zap.String("type", string(ev.Type)),
	)

	claimed, err := p.claims.Claim(ctx, ev.EventID, ev.OrderID)
	if err != nil {
		return fmt.Errorf("claim event: %w", err)
	}
	if !claimed {
		logger.Info("duplicate event skipped")
		return nil
	}

	if err := p.audit.Put(ctx, ev); err != nil {
		if markErr := p.claims.MarkFailed(ctx, ev.EventID, err.Error()); markErr != nil {
			logger.Warn("failed to release claim", zap.Error(markErr))
		}
		return fmt.Errorf("write audit record: %w", err)
	}

	if err := p.claims.MarkDone(ctx, ev.EventID); err != nil {
		return fmt.Errorf("mark event done: %w", err)
	}

	logger.Info("order event audited")
	return nil
}
