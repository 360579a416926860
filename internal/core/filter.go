package core

// BatchesForCourse returns the batches whose course equals the selection, in
// collection order. An empty selection yields an empty list. The result is
// derived, not cached: callers recompute it whenever the selection or the
// batch collection changes.
func BatchesForCourse(batches []Batch, course string) []Batch {
	out := []Batch{}
	if course == "" {
		return out
	}
	for _, b := range batches {
		if b.Course == course {
			out = append(out, b)
		}
	}
	return out
}
