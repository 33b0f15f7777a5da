package write

// Aggregate folds the successful row results of a batch into one record:
//   - no rows yields an empty record
//   - a single row is returned as is
//   - several rows are merged in input order (see Merge)
//
// The single-row unwrap keeps the response shape existing API consumers rely on.
func Aggregate(records []Record) Record {
	switch len(records) {
	case 0:
		return NewRecord()
	case 1:
		return records[0]
	}

	out := records[0].Clone()
	for _, r := range records[1:] {
		out = Merge(out, r)
	}
	return out
}
