package core

import (
	"context"
	"fmt"
)

// NewReferencedRemovalRule warns when a removed entity is still referenced by
// value from another collection. It never blocks.
func NewReferencedRemovalRule() Rule {
	return referencedRemovalRule{}
}

type referencedRemovalRule struct{}

func (referencedRemovalRule) Name() string { return "removal_still_referenced" }

func (r referencedRemovalRule) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	res := Result{}
	for _, change := range changes {
		if change.Action != ActionDelete {
			continue
		}
		var (
			id    string
			count int
			what  string
		)
		switch before := change.Before.(type) {
		case Subject:
			id, what = string(before), "course(s)"
			for _, c := range view.ListCourses() {
				if c.HasSubject(id) {
					count++
				}
			}
		case Course:
			id, what = before.Name, "batch(es) or student(s)"
			count = len(BatchesForCourse(view.ListBatches(), id))
			for _, s := range view.ListStudents() {
				if s.Course == id {
					count++
				}
			}
		case Batch:
			id, what = before.Name, "student(s)"
			for _, s := range view.ListStudents() {
				if s.Batch == before.Name && s.Course == before.Course {
					count++
				}
			}
		default:
			continue
		}
		if count == 0 {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Rule:     r.Name(),
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("%s %s is still referenced by %d %s", change.Entity, id, count, what),
			Entity:   change.Entity,
			EntityID: id,
		})
	}
	return res, nil
}
