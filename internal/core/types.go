package core

import "trainingcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Subject            = domain.Subject
	Course             = domain.Course
	Batch              = domain.Batch
	Student            = domain.Student
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	KeyValueStore      = domain.KeyValueStore
)

const (
	EntitySubject = domain.EntitySubject
	EntityCourse  = domain.EntityCourse
	EntityBatch   = domain.EntityBatch
	EntityStudent = domain.EntityStudent
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
