package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-dashboard/internal/aws"
)

// Metric names emitted by the dashboard.
const (
	OrdersFetched      = "OrdersFetched"
	FetchFailed        = "OrdersFetchFailed"
	StatusChanged      = "OrderStatusChanged"
	StatusChangeFailed = "OrderStatusChangeFailed"
	OrderDeleted       = "OrderDeleted"
	DeleteFailed       = "OrderDeleteFailed"
	EventPublishFailed = "OrderEventPublishFailed"
)

const putMetricTimeout = 2 * time.Second

// Recorder counts dashboard outcomes.
type Recorder interface {
	Count(ctx context.Context, name string, value float64)
}

// CloudWatchRecorder puts each count as a single datum. Failures are logged
// and never surface to callers.
type CloudWatchRecorder struct {
	client    aws.CloudWatchAPI
	namespace string
	logger    *zap.Logger
	nowFunc   func() time.Time
}

// NewCloudWatchRecorder returns a recorder writing to namespace.
func NewCloudWatchRecorder(client aws.CloudWatchAPI, namespace string, logger *zap.Logger) *CloudWatchRecorder {
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

func (r *CloudWatchRecorder) Count(ctx context.Context, name string, value float64) {
	// the request may already be finishing; keep its values but not its cancellation
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), putMetricTimeout)
	defer cancel()

	now := r.nowFunc()
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &r.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      &value,
			},
		},
	})
	if err != nil {
		r.logger.Warn("failed to put metric", zap.String("metric", name), zap.Error(err))
	}
}

// Nop discards every count.
type Nop struct{}

func (Nop) Count(context.Context, string, float64) {}
