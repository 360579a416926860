package core

import (
	"fmt"
	"strings"
)

const minCourseSubjects = 2

func courseID(c Course) string { return c.Name }

// NewCourseNameRequiredRule rejects courses with a blank name.
func NewCourseNameRequiredRule() Rule {
	return createRule[Course]{
		name:   "course_name_required",
		entity: EntityCourse,
		id:     courseID,
		check: func(_ RuleView, c Course) string {
			if strings.TrimSpace(c.Name) == "" {
				return "Course name required"
			}
			return ""
		},
	}
}

// NewCourseMinSubjectsRule requires at least minSubjects distinct subjects per course.
func NewCourseMinSubjectsRule(minSubjects int) Rule {
	return createRule[Course]{
		name:   "course_min_subjects",
		entity: EntityCourse,
		id:     courseID,
		check: func(_ RuleView, c Course) string {
			if len(c.Normalized().Subjects) < minSubjects {
				return fmt.Sprintf("Select at least %d subjects", minSubjects)
			}
			return ""
		},
	}
}

// NewCourseUniqueRule rejects a course whose name is already taken.
func NewCourseUniqueRule() Rule {
	return createRule[Course]{
		name:   "course_unique",
		entity: EntityCourse,
		id:     courseID,
		check: func(view RuleView, c Course) string {
			if _, exists := view.FindCourse(strings.TrimSpace(c.Name)); exists {
				return "Duplicate course not allowed"
			}
			return ""
		},
	}
}

// NewCourseSubjectsExistRule requires every selected subject to exist.
func NewCourseSubjectsExistRule() Rule {
	return createRule[Course]{
		name:   "course_subjects_exist",
		entity: EntityCourse,
		id:     courseID,
		check: func(view RuleView, c Course) string {
			for _, s := range c.Normalized().Subjects {
				if !view.HasSubject(s) {
					return fmt.Sprintf("Unknown subject: %s", s)
				}
			}
			return ""
		},
	}
}
