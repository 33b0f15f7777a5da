package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/write"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BatchWriter runs a batch write of one resource. catalog.ProductWriter
// implements it.
type BatchWriter interface {
	Resource() string
	Write(ctx context.Context, mode write.Mode, batch write.Batch, tctx write.TranslationContext) (*write.WrittenEvent, error)
}

// ProductWriteService exposes the batched product writes to the interfaces layer
type ProductWriteService struct {
	writer         BatchWriter
	eventPublisher shared.EventPublisher
	writeMetrics   *telemetry.WriteMetrics
}

// NewProductWriteService creates a new ProductWriteService
func NewProductWriteService(writer BatchWriter) *ProductWriteService {
	return &ProductWriteService{
		writer: writer,
	}
}

// SetEventPublisher sets the publisher receiving the WrittenEvent of every call
func (s *ProductWriteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetWriteMetrics sets the write metrics collector
func (s *ProductWriteService) SetWriteMetrics(m *telemetry.WriteMetrics) {
	s.writeMetrics = m
}

// Create inserts every product row of the batch
func (s *ProductWriteService) Create(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error) {
	return s.write(ctx, write.ModeCreate, batch, shopUUID)
}

// Update updates every product row of the batch
func (s *ProductWriteService) Update(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error) {
	return s.write(ctx, write.ModeUpdate, batch, shopUUID)
}

// Upsert inserts or updates every product row of the batch
func (s *ProductWriteService) Upsert(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error) {
	return s.write(ctx, write.ModeUpsert, batch, shopUUID)
}

func (s *ProductWriteService) write(ctx context.Context, mode write.Mode, batch write.Batch, shopUUID string) (*write.WrittenEvent, error) {
	tctx := write.NewTranslationContext(shopUUID)
	resource := s.writer.Resource()

	ctx, span := telemetry.StartServiceSpan(ctx, resource+"_write", mode.String(),
		telemetry.WithAttribute(telemetry.SpanAttrResource, resource),
		telemetry.WithAttribute(telemetry.SpanAttrMode, mode.String()),
		telemetry.WithAttribute(telemetry.SpanAttrShopUUID, tctx.ShopUUID),
		telemetry.WithAttribute(telemetry.SpanAttrBatchSize, len(batch)),
	)
	defer span.End()

	log := logger.L(ctx).With(
		zap.String("resource", resource),
		zap.String("mode", mode.String()),
		zap.String("shop_uuid", tctx.ShopUUID),
	)

	start := time.Now()
	result := telemetry.BatchResult{Resource: resource, Mode: mode.String()}

	var (
		event *write.WrittenEvent
		err   error
	)
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelResource: resource,
		telemetry.ProfilingLabelMode:     mode.String(),
	}, func(ctx context.Context) {
		event, err = s.writer.Write(ctx, mode, batch, tctx)
	})
	result.Duration = time.Since(start)
	if err != nil {
		result.Outcome = telemetry.OutcomeFailed
		if errors.Is(err, shared.ErrInvalidInput) {
			result.Outcome = telemetry.OutcomeInvalid
			log.Warn("batch rejected", zap.Error(err))
		} else {
			log.Error("batch write failed", zap.Error(err))
		}
		s.writeMetrics.RecordBatch(ctx, result)
		telemetry.RecordError(span, err)
		return nil, err
	}

	rowErrors := event.Errors()
	result.RowsWritten = len(batch) - len(rowErrors)
	result.Outcome = telemetry.OutcomeSuccess
	if len(rowErrors) > 0 {
		result.Outcome = telemetry.OutcomePartial
	}
	for _, rowErr := range rowErrors {
		result.FailedCodes = append(result.FailedCodes, rowErr.Code)
		telemetry.AddEvent(span, "row_failed",
			"index", rowErr.Index,
			"code", rowErr.Code,
		)
	}
	s.writeMetrics.RecordBatch(ctx, result)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrRowsWritten, result.RowsWritten,
		telemetry.SpanAttrRowsFailed, len(rowErrors),
	)
	telemetry.SetOK(span)

	// Rows are already stored; a failing listener does not fail the call.
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			log.Warn("written event listeners failed",
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}

	log.Info("products written",
		zap.Int("rows", len(batch)),
		zap.Int("written", result.RowsWritten),
		zap.Int("failed", len(rowErrors)),
		zap.Duration("duration", result.Duration),
	)
	return event, nil
}
