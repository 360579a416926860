// Package domain defines the training entities, value types, and rule
// evaluation primitives used by trainingcore.
package domain

import (
	"strings"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence keys.
const (
	// EntitySubject identifies a subject label.
	EntitySubject EntityType = "subject"
	// EntityCourse identifies a course composed of subjects.
	EntityCourse EntityType = "course"
	// EntityBatch identifies a scheduled batch of a course.
	EntityBatch EntityType = "batch"
	// EntityStudent identifies a student enrolled in a course batch.
	EntityStudent EntityType = "student"
)

// Persistence keys. Each collection is stored as a single value under its key.
const (
	CollectionSubjects = "subjects"
	CollectionCourses  = "courses"
	CollectionBatches  = "batches"
	CollectionStudents = "students"
)

// Collections lists every persistence key in load order.
var Collections = []string{CollectionSubjects, CollectionCourses, CollectionBatches, CollectionStudents}

// Collection returns the persistence key holding entities of this type.
func (e EntityType) Collection() string {
	switch e {
	case EntitySubject:
		return CollectionSubjects
	case EntityCourse:
		return CollectionCourses
	case EntityBatch:
		return CollectionBatches
	case EntityStudent:
		return CollectionStudents
	default:
		return ""
	}
}

// SuccessMessage is the user-facing confirmation shown after an accepted add.
func (e EntityType) SuccessMessage() string {
	switch e {
	case EntitySubject:
		return "Subject added successfully"
	case EntityCourse:
		return "Course added successfully"
	case EntityBatch:
		return "Batch added successfully"
	case EntityStudent:
		return "Student added successfully"
	default:
		return ""
	}
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Subject is a unique text label. Its identity is the exact string value.
type Subject string

// Name returns the subject label.
func (s Subject) Name() string { return string(s) }

// Normalized returns the subject with surrounding whitespace removed.
func (s Subject) Normalized() Subject { return Subject(strings.TrimSpace(string(s))) }

// Course groups at least two subjects under a unique name.
type Course struct {
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
}

// Normalized trims every field and collapses repeated subject selections,
// keeping the first-seen order.
func (c Course) Normalized() Course {
	out := Course{Name: strings.TrimSpace(c.Name), Subjects: make([]string, 0, len(c.Subjects))}
	seen := make(map[string]struct{}, len(c.Subjects))
	for _, s := range c.Subjects {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out.Subjects = append(out.Subjects, s)
	}
	return out
}

// HasSubject reports whether the course references the named subject.
func (c Course) HasSubject(name string) bool {
	for _, s := range c.Subjects {
		if s == name {
			return true
		}
	}
	return false
}

// Batch is a time slot of a course. Start and End are zero-padded 24h "HH:MM"
// strings, so lexical order equals chronological order.
type Batch struct {
	Name   string `json:"name"`
	Course string `json:"course"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// Normalized returns the batch with every field trimmed.
func (b Batch) Normalized() Batch {
	return Batch{
		Name:   strings.TrimSpace(b.Name),
		Course: strings.TrimSpace(b.Course),
		Start:  strings.TrimSpace(b.Start),
		End:    strings.TrimSpace(b.End),
	}
}

// Student is enrolled in one course and one batch of that course.
type Student struct {
	Name   string `json:"name"`
	Course string `json:"course"`
	Batch  string `json:"batch"`
}

// Normalized returns the student with every field trimmed.
func (s Student) Normalized() Student {
	return Student{
		Name:   strings.TrimSpace(s.Name),
		Course: strings.TrimSpace(s.Course),
		Batch:  strings.TrimSpace(s.Batch),
	}
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was appended.
	ActionCreate Action = "create"
	// ActionUpdate marks a replace (remove followed by create) in audit entries.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Message returns the message of the first blocking violation, or an empty
// string when nothing blocked.
func (r Result) Message() string {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return v.Message
		}
	}
	return ""
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	if msg := e.Result.Message(); msg != "" {
		return msg
	}
	return "transaction blocked by rules"
}
