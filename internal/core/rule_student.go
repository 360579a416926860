package core

import "fmt"

func studentID(s Student) string { return s.Name }

// NewStudentFieldsRequiredRule requires name, course and batch.
func NewStudentFieldsRequiredRule() Rule {
	return createRule[Student]{
		name:   "student_fields_required",
		entity: EntityStudent,
		id:     studentID,
		check: func(_ RuleView, s Student) string {
			s = s.Normalized()
			if s.Name == "" || s.Course == "" || s.Batch == "" {
				return "All fields required"
			}
			return ""
		},
	}
}

// NewStudentUniqueRule rejects a student whose name is already taken. Course
// and batch references are not checked here.
func NewStudentUniqueRule() Rule {
	return createRule[Student]{
		name:   "student_unique",
		entity: EntityStudent,
		id:     studentID,
		check: func(view RuleView, s Student) string {
			if _, exists := view.FindStudent(s.Normalized().Name); exists {
				return "Duplicate student not allowed"
			}
			return ""
		},
	}
}

// NewStudentEnrollmentRule requires the course to exist and the batch to be
// one of that course's batches.
func NewStudentEnrollmentRule() Rule {
	return createRule[Student]{
		name:   "student_enrollment",
		entity: EntityStudent,
		id:     studentID,
		check: func(view RuleView, s Student) string {
			s = s.Normalized()
			if _, ok := view.FindCourse(s.Course); !ok {
				return fmt.Sprintf("Unknown course: %s", s.Course)
			}
			for _, b := range BatchesForCourse(view.ListBatches(), s.Course) {
				if b.Name == s.Batch {
					return ""
				}
			}
			return fmt.Sprintf("Batch %s does not belong to course %s", s.Batch, s.Course)
		},
	}
}
