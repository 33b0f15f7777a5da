package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Batch outcomes reported on storefront.write.batches_total
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// WriteMetrics records the results of batch writes
type WriteMetrics struct {
	rowsWritten   *Counter
	rowsFailed    *Counter
	batches       *Counter
	batchDuration *Histogram
}

// BatchResult is what a single batch write reports to WriteMetrics
type BatchResult struct {
	Resource    string
	Mode        string
	Outcome     string
	RowsWritten int
	// FailedCodes holds one error code per failed row
	FailedCodes []string
	Duration    time.Duration
}

// NewWriteMetrics creates the write instruments on meter
func NewWriteMetrics(meter metric.Meter) (*WriteMetrics, error) {
	rowsWritten, err1 := NewCounter(meter,
		"storefront.write.rows_written_total", "Rows written by batch writes", "{row}")
	rowsFailed, err2 := NewCounter(meter,
		"storefront.write.rows_failed_total", "Rows rejected by batch writes", "{row}")
	batches, err3 := NewCounter(meter,
		"storefront.write.batches_total", "Batch write requests by outcome", "{batch}")
	batchDuration, err4 := NewHistogram(meter, HistogramOpts{
		Name:        "storefront.write.batch_duration",
		Description: "Duration of a batch write",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	})
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}

	return &WriteMetrics{
		rowsWritten:   rowsWritten,
		rowsFailed:    rowsFailed,
		batches:       batches,
		batchDuration: batchDuration,
	}, nil
}

// RecordBatch records one finished batch. A nil receiver does nothing.
func (m *WriteMetrics) RecordBatch(ctx context.Context, r BatchResult) {
	if m == nil {
		return
	}

	base := []attribute.KeyValue{
		AttrResource.String(r.Resource),
		AttrMode.String(r.Mode),
	}

	if r.RowsWritten > 0 {
		m.rowsWritten.Add(ctx, int64(r.RowsWritten), base...)
	}

	failed := make(map[string]int64)
	for _, code := range r.FailedCodes {
		failed[code]++
	}
	for code, n := range failed {
		m.rowsFailed.Add(ctx, n, append(base, AttrErrorCode.String(code))...)
	}

	m.batches.Inc(ctx, append(base, AttrOutcome.String(r.Outcome))...)
	m.batchDuration.RecordDuration(ctx, r.Duration, base...)
}
