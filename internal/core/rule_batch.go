package core

import (
	"fmt"
	"time"
)

func batchID(b Batch) string { return b.Name }

// NewBatchFieldsRequiredRule requires name, course, start and end.
func NewBatchFieldsRequiredRule() Rule {
	return createRule[Batch]{
		name:   "batch_fields_required",
		entity: EntityBatch,
		id:     batchID,
		check: func(_ RuleView, b Batch) string {
			b = b.Normalized()
			if b.Name == "" || b.Course == "" || b.Start == "" || b.End == "" {
				return "All fields required"
			}
			return ""
		},
	}
}

// NewBatchTimeOrderRule requires start strictly before end. Times are
// zero-padded 24h strings, so string order is chronological order.
func NewBatchTimeOrderRule() Rule {
	return createRule[Batch]{
		name:   "batch_time_order",
		entity: EntityBatch,
		id:     batchID,
		check: func(_ RuleView, b Batch) string {
			b = b.Normalized()
			if b.Start >= b.End {
				return "Start time must be before end time"
			}
			return ""
		},
	}
}

// NewBatchTimeFormatRule requires both times in "HH:MM" form.
func NewBatchTimeFormatRule() Rule {
	return createRule[Batch]{
		name:   "batch_time_format",
		entity: EntityBatch,
		id:     batchID,
		check: func(_ RuleView, b Batch) string {
			b = b.Normalized()
			for _, v := range []string{b.Start, b.End} {
				if !validClock(v) {
					return fmt.Sprintf("Invalid time %q, expected HH:MM", v)
				}
			}
			return ""
		},
	}
}

func validClock(v string) bool {
	if len(v) != len("15:04") {
		return false
	}
	_, err := time.Parse("15:04", v)
	return err == nil
}

// NewBatchCourseExistsRule requires the batch's course to exist.
func NewBatchCourseExistsRule() Rule {
	return createRule[Batch]{
		name:   "batch_course_exists",
		entity: EntityBatch,
		id:     batchID,
		check: func(view RuleView, b Batch) string {
			b = b.Normalized()
			if _, ok := view.FindCourse(b.Course); !ok {
				return fmt.Sprintf("Unknown course: %s", b.Course)
			}
			return ""
		},
	}
}
