package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record is the shape persisted in the idempotency DynamoDB table. One
// record exists per processed event id.
type Record struct {
	Key        string    `dynamodbav:"idempotency_key"` // PK, the event id
	Status     string    `dynamodbav:"status"`
	OrderID    string    `dynamodbav:"order_id,omitempty"`
	Attempts   int       `dynamodbav:"attempts"`
	LeaseUntil int64     `dynamodbav:"lease_until"` // epoch seconds; an IN_PROGRESS claim past this may be taken over
	CreatedAt  time.Time `dynamodbav:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
	ExpiresAt  int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note       string    `dynamodbav:"note,omitempty"`
}
