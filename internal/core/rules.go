package core

import "context"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
// Registration order is evaluation order; within each entity type the first
// failing rule decides the rejection message.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewSubjectNameRequiredRule())
	engine.Register(NewSubjectUniqueRule())
	engine.Register(NewCourseNameRequiredRule())
	engine.Register(NewCourseMinSubjectsRule(minCourseSubjects))
	engine.Register(NewCourseUniqueRule())
	engine.Register(NewBatchFieldsRequiredRule())
	engine.Register(NewBatchTimeOrderRule())
	engine.Register(NewStudentFieldsRequiredRule())
	engine.Register(NewStudentUniqueRule())
	return engine
}

// NewStrictRulesEngine extends the default policy with referential checks at
// creation time and warnings when a still-referenced entity is removed.
// Nothing cascades: removals are never blocked and dependents are untouched.
func NewStrictRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewSubjectNameRequiredRule())
	engine.Register(NewSubjectUniqueRule())
	engine.Register(NewCourseNameRequiredRule())
	engine.Register(NewCourseMinSubjectsRule(minCourseSubjects))
	engine.Register(NewCourseUniqueRule())
	engine.Register(NewCourseSubjectsExistRule())
	engine.Register(NewBatchFieldsRequiredRule())
	engine.Register(NewBatchTimeFormatRule())
	engine.Register(NewBatchTimeOrderRule())
	engine.Register(NewBatchCourseExistsRule())
	engine.Register(NewStudentFieldsRequiredRule())
	engine.Register(NewStudentUniqueRule())
	engine.Register(NewStudentEnrollmentRule())
	engine.Register(NewReferencedRemovalRule())
	return engine
}

// createRule checks every staged creation of one entity type. check returns
// the rejection message, or "" to accept.
type createRule[T any] struct {
	name   string
	entity EntityType
	id     func(T) string
	check  func(view RuleView, item T) string
}

func (r createRule[T]) Name() string { return r.name }

func (r createRule[T]) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	res := Result{}
	for _, change := range changes {
		if change.Entity != r.entity || change.Action != ActionCreate {
			continue
		}
		item, ok := change.After.(T)
		if !ok {
			continue
		}
		if msg := r.check(view, item); msg != "" {
			res.Violations = append(res.Violations, Violation{
				Rule:     r.name,
				Severity: SeverityBlock,
				Message:  msg,
				Entity:   r.entity,
				EntityID: r.id(item),
			})
		}
	}
	return res, nil
}
