package write

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EntityWriter runs batched writes of one resource through a ResourceWriter.
// Rows are written sequentially in input order; a row failure is recorded and
// never stops the remaining rows. There is no batch atomicity.
type EntityWriter struct {
	resource  string
	extender  FieldExtender
	providers []ExtenderProvider
	writer    ResourceWriter
	logger    *zap.Logger
}

// Option configures an EntityWriter
type Option func(*EntityWriter)

// WithExtenderProviders appends providers queried for every call, in order
func WithExtenderProviders(providers ...ExtenderProvider) Option {
	return func(w *EntityWriter) {
		for _, p := range providers {
			if p != nil {
				w.providers = append(w.providers, p)
			}
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *EntityWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewEntityWriter creates a writer for the resource. The default extender is
// shared read-only by all calls and always runs first.
func NewEntityWriter(resource string, extender FieldExtender, writer ResourceWriter, opts ...Option) *EntityWriter {
	w := &EntityWriter{
		resource: resource,
		extender: extender,
		writer:   writer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Resource returns the resource written by this writer
func (w *EntityWriter) Resource() string {
	return w.resource
}

// Create inserts every row of the batch
func (w *EntityWriter) Create(ctx context.Context, batch Batch, tctx TranslationContext) (*WrittenEvent, error) {
	return w.Write(ctx, ModeCreate, batch, tctx)
}

// Update updates every row of the batch
func (w *EntityWriter) Update(ctx context.Context, batch Batch, tctx TranslationContext) (*WrittenEvent, error) {
	return w.Write(ctx, ModeUpdate, batch, tctx)
}

// Upsert inserts or updates every row of the batch
func (w *EntityWriter) Upsert(ctx context.Context, batch Batch, tctx TranslationContext) (*WrittenEvent, error) {
	return w.Write(ctx, ModeUpsert, batch, tctx)
}

// Write runs the batch in the given mode. It returns an error only for a
// malformed batch or an infrastructure fault; row failures are reported in
// the returned event.
func (w *EntityWriter) Write(ctx context.Context, mode Mode, batch Batch, tctx TranslationContext) (*WrittenEvent, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown write mode %q", shared.ErrInvalidInput, mode)
	}
	if err := ValidateBatch(batch); err != nil {
		return nil, err
	}
	if tctx.ShopUUID == "" {
		return nil, fmt.Errorf("%w: shop uuid is required", shared.ErrInvalidInput)
	}

	wctx := w.createWriteContext(tctx.ShopUUID)
	extenders, err := w.buildExtenders(ctx, wctx)
	if err != nil {
		return nil, err
	}

	log := w.logger.With(
		zap.String("resource", w.resource),
		zap.String("mode", mode.String()),
		zap.String("shop_uuid", tctx.ShopUUID),
	)

	written := make([]Record, 0, len(batch))
	var rowErrors []RowWriteError

	for i, item := range batch {
		row, _ := AsRow(item)

		rowCtx := WithRowScope(ctx, RowScope{Resource: w.resource, Mode: mode, Index: i})
		record, err := w.dispatch(rowCtx, mode, row.Clone(), wctx.Clone(), extenders)
		if err != nil {
			rowErr, ok := AsRowWriteError(err)
			if !ok {
				return nil, fmt.Errorf("write %s row %d: %w", w.resource, i, err)
			}
			failed := *rowErr
			failed.Index = i
			if failed.Resource == "" {
				failed.Resource = w.resource
			}
			if failed.Row == nil {
				failed.Row = row
			}
			rowErrors = append(rowErrors, failed)
			log.Warn("row write failed",
				zap.Int("index", i),
				zap.String("code", failed.Code),
				zap.String("error", failed.Message),
			)
			continue
		}

		log.Debug("row written", zap.Int("index", i))
		written = append(written, record)
	}

	log.Info("batch written",
		zap.Int("rows", len(batch)),
		zap.Int("written", len(written)),
		zap.Int("failed", len(rowErrors)),
	)

	return NewWrittenEvent(w.resource, mode, tctx.ShopUUID, Aggregate(written), batch, rowErrors), nil
}

func (w *EntityWriter) dispatch(ctx context.Context, mode Mode, row Row, wctx *WriteContext, extenders *FieldExtenderCollection) (Record, error) {
	switch mode {
	case ModeCreate:
		return w.writer.Insert(ctx, w.resource, row, wctx, extenders)
	case ModeUpdate:
		return w.writer.Update(ctx, w.resource, row, wctx, extenders)
	default:
		return w.writer.Upsert(ctx, w.resource, row, wctx, extenders)
	}
}

func (w *EntityWriter) createWriteContext(shopUUID string) *WriteContext {
	return NewWriteContext(shopUUID)
}

// buildExtenders seeds a new collection with the default extender, lets every
// provider contribute, and freezes the result.
func (w *EntityWriter) buildExtenders(ctx context.Context, wctx *WriteContext) (*FieldExtenderCollection, error) {
	collection := NewFieldExtenderCollection(w.extender)
	for _, p := range w.providers {
		if err := p.ProvideExtenders(ctx, wctx, collection); err != nil {
			return nil, fmt.Errorf("collect %s extenders: %w", w.resource, err)
		}
	}
	collection.Freeze()
	return collection, nil
}
