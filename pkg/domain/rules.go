package domain

import "context"

// RuleView provides read-only access to the collections for rule evaluation.
// It reflects the state immediately before the change being evaluated.
type RuleView interface {
	ListSubjects() []Subject
	ListCourses() []Course
	ListBatches() []Batch
	ListStudents() []Student
	HasSubject(name string) bool
	FindCourse(name string) (Course, bool)
	FindStudent(name string) (Student, bool)
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation. Rules run in registration order
// and evaluation stops at the first rule that reports a blocking violation,
// so callers only ever see the earliest failing rule's message.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// RuleNames returns the registered rule names in evaluation order.
func (e *RulesEngine) RuleNames() []string {
	out := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.Name())
	}
	return out
}

// Evaluate executes registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
		if res.HasBlocking() {
			break
		}
	}
	return combined, nil
}
