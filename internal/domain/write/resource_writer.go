package write

import "context"

// ResourceWriter persists single rows of a resource. The extender collection
// is applied by the implementation to its own copy of the row before storage.
//
// A failure caused by the row's content is returned as *RowWriteError. Any
// other error is treated as an infrastructure fault and aborts the batch.
type ResourceWriter interface {
	Insert(ctx context.Context, resource string, row Row, wctx *WriteContext, extenders *FieldExtenderCollection) (Record, error)
	Update(ctx context.Context, resource string, row Row, wctx *WriteContext, extenders *FieldExtenderCollection) (Record, error)
	Upsert(ctx context.Context, resource string, row Row, wctx *WriteContext, extenders *FieldExtenderCollection) (Record, error)
}
