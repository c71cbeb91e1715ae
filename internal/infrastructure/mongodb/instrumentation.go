package mongodb

import (
	"context"
	"time"

	"github.com/cfs-platform/transaction-service/pkg/logging"
	"github.com/cfs-platform/transaction-service/pkg/metrics"
)

// queryObserver feeds repository operations into the service metrics and the
// structured query log. Either collaborator may be nil.
type queryObserver struct {
	logger  *logging.Logger
	metrics *metrics.Metrics
}

func newQueryObserver(logger *logging.Logger, m *metrics.Metrics) *queryObserver {
	return &queryObserver{logger: logger, metrics: m}
}

func docCount(found bool) int64 {
	if found {
		return 1
	}
	return 0
}

// observe records one collection operation with its outcome and the number
// of documents it touched.
func (o *queryObserver) observe(ctx context.Context, collection, operation string, start time.Time, err error, docs int64) {
	duration := time.Since(start)

	if o.metrics != nil {
		o.metrics.RecordMongoDBOperation(collection, operation, err == nil, duration)
	}
	if o.logger != nil {
		o.logger.DatabaseQuery(ctx, collection, operation, duration, err == nil, docs)
	}
}
