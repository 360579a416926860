package core

func subjectID(s Subject) string { return string(s) }

// NewSubjectNameRequiredRule rejects blank subject labels.
func NewSubjectNameRequiredRule() Rule {
	return createRule[Subject]{
		name:   "subject_name_required",
		entity: EntitySubject,
		id:     subjectID,
		check: func(_ RuleView, s Subject) string {
			if s.Normalized() == "" {
				return "Subject name is required"
			}
			return ""
		},
	}
}

// NewSubjectUniqueRule rejects a subject label that already exists (case-sensitive).
func NewSubjectUniqueRule() Rule {
	return createRule[Subject]{
		name:   "subject_unique",
		entity: EntitySubject,
		id:     subjectID,
		check: func(view RuleView, s Subject) string {
			if view.HasSubject(string(s.Normalized())) {
				return "Duplicate subject not allowed"
			}
			return ""
		},
	}
}
