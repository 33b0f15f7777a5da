package write

// ValidateBatch checks that every element of the batch is a mapping. All
// malformed indices are reported together in one *InvalidInputError.
func ValidateBatch(batch Batch) error {
	var malformed []int
	for i, item := range batch {
		if _, ok := AsRow(item); !ok {
			malformed = append(malformed, i)
		}
	}
	if len(malformed) == 0 {
		return nil
	}
	return &InvalidInputError{Indices: malformed}
}
