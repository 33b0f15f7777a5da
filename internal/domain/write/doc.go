// Package write implements the generic multi-row write pipeline used to persist
// catalog resources.
//
// An EntityWriter validates the shape of a batch, builds a fresh
// FieldExtenderCollection for the call, and hands every row, in input order,
// to a ResourceWriter together with a per-call WriteContext. A row that fails
// validation or a storage constraint is recorded as a RowWriteError and the
// batch carries on. Successful row results are aggregated into a single Record
// and returned inside a WrittenEvent:
//
//	writer := write.NewEntityWriter("product", write.NewDefaultExtender(registry), storage)
//	event, err := writer.Upsert(ctx, batch, write.NewTranslationContext(shopUUID))
//	if err != nil {
//	    // malformed batch or infrastructure fault
//	}
//	for _, rowErr := range event.Errors() {
//	    // per-row failures, in input order
//	}
package write
