package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is returned when the confirmation collaborator declines a removal.
var ErrCancelled = errors.New("removal cancelled")

// ErrNotFound is returned when a removal or replacement addresses a value
// that no entity in the collection holds.
type ErrNotFound struct {
	Entity EntityType
	Name   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
}

// Counts summarises collection sizes for the dashboard.
type Counts struct {
	Subjects int `json:"subjects"`
	Courses  int `json:"courses"`
	Batches  int `json:"batches"`
	Students int `json:"students"`
}

// Service is the only mutation path into the store. Every add runs the rules
// engine; every committed change is persisted by the store.
type Service struct {
	store     *MemoryStore
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	audit     AuditRecorder
	clock     Clock
	confirmer Confirmer
}

// NewService constructs a service backed by the supplied store.
func NewService(store *MemoryStore, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:     store,
		logger:    o.logger,
		metrics:   o.metrics,
		tracer:    o.tracer,
		audit:     o.audit,
		clock:     o.clock,
		confirmer: o.confirmer,
	}
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine, falling back to the default policy set when engine is nil.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() *MemoryStore {
	return s.store
}

var operationMetadata = map[string]struct {
	entity EntityType
	action Action
}{
	"add_subject":     {EntitySubject, ActionCreate},
	"remove_subject":  {EntitySubject, ActionDelete},
	"replace_subject": {EntitySubject, ActionUpdate},
	"add_course":      {EntityCourse, ActionCreate},
	"remove_course":   {EntityCourse, ActionDelete},
	"replace_course":  {EntityCourse, ActionUpdate},
	"add_batch":       {EntityBatch, ActionCreate},
	"remove_batch":    {EntityBatch, ActionDelete},
	"replace_batch":   {EntityBatch, ActionUpdate},
	"add_student":     {EntityStudent, ActionCreate},
	"remove_student":  {EntityStudent, ActionDelete},
	"replace_student": {EntityStudent, ActionUpdate},
}

func (s *Service) run(ctx context.Context, op, entityID string, fn func(context.Context) (Result, error)) (Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	res, err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	var rv RuleViolationError
	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "operation committed", "operation", op, "entity_id", entityID, "duration", duration)
		s.recordAuditSuccess(ctx, op, entityID, duration)
	case errors.As(err, &rv):
		s.logger.InfoContext(ctx, "operation rejected", "operation", op, "entity_id", entityID, "reason", rv.Error())
		s.recordAuditError(ctx, op, entityID, err, duration)
	case errors.Is(err, ErrCancelled):
		s.logger.InfoContext(ctx, "operation cancelled", "operation", op, "entity_id", entityID)
		s.recordAuditError(ctx, op, entityID, err, duration)
	default:
		s.logger.ErrorContext(ctx, "operation failed", "operation", op, "entity_id", entityID, "error", err)
		s.recordAuditError(ctx, op, entityID, err, duration)
	}
	for _, w := range res.Warnings() {
		s.logger.WarnContext(ctx, w.Message, "operation", op, "rule", w.Rule)
	}
	return res, err
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, AuditStatusSuccess, "", duration)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, err error, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, AuditStatusError, err.Error(), duration)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, status AuditStatus, errMsg string, duration time.Duration) {
	meta, ok := operationMetadata[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    status,
		Error:     errMsg,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

// AddSubject trims name, validates it, and appends it to the subjects.
func (s *Service) AddSubject(ctx context.Context, name string) (Subject, Result, error) {
	var created Subject
	proposed := Subject(name).Normalized()
	res, err := s.run(ctx, "add_subject", string(proposed), func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			created, err = tx.AppendSubject(proposed)
			return err
		})
	})
	return created, res, err
}

// AddCourse normalizes and validates a course, then appends it.
func (s *Service) AddCourse(ctx context.Context, course Course) (Course, Result, error) {
	var created Course
	proposed := course.Normalized()
	res, err := s.run(ctx, "add_course", proposed.Name, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			created, err = tx.AppendCourse(proposed)
			return err
		})
	})
	return created, res, err
}

// AddBatch normalizes and validates a batch, then appends it.
func (s *Service) AddBatch(ctx context.Context, batch Batch) (Batch, Result, error) {
	var created Batch
	proposed := batch.Normalized()
	res, err := s.run(ctx, "add_batch", proposed.Name, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			created, err = tx.AppendBatch(proposed)
			return err
		})
	})
	return created, res, err
}

// AddStudent normalizes and validates a student, then appends it.
func (s *Service) AddStudent(ctx context.Context, student Student) (Student, Result, error) {
	var created Student
	proposed := student.Normalized()
	res, err := s.run(ctx, "add_student", proposed.Name, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			created, err = tx.AppendStudent(proposed)
			return err
		})
	})
	return created, res, err
}

type removal[T any] struct {
	op     string
	entity EntityType
	// id is the removed value; empty when removing by predicate.
	id     string
	list   func() []T
	match  func(T) bool
	remove func(*Transaction, func(T) bool) ([]T, error)
}

func runRemoval[T any](ctx context.Context, s *Service, r removal[T]) (int, Result, error) {
	var removed int
	res, err := s.run(ctx, r.op, r.id, func(ctx context.Context) (Result, error) {
		matches := 0
		for _, item := range r.list() {
			if r.match(item) {
				matches++
			}
		}
		if matches == 0 {
			if r.id != "" {
				return Result{}, ErrNotFound{Entity: r.entity, Name: r.id}
			}
			return Result{}, nil
		}
		if s.confirmer != nil && !s.confirmer.Confirm(ctx, removalPrompt(r.entity, matches)) {
			return Result{}, ErrCancelled
		}
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			items, err := r.remove(tx, r.match)
			removed = len(items)
			return err
		})
	})
	return removed, res, err
}

func removalPrompt(entity EntityType, n int) string {
	if n == 1 {
		return fmt.Sprintf("Delete this %s?", entity)
	}
	return fmt.Sprintf("Delete %d %s?", n, entity.Collection())
}

// RemoveSubject removes the subject with exactly this label. Courses that
// reference it are left untouched.
func (s *Service) RemoveSubject(ctx context.Context, name string) (int, Result, error) {
	return s.removeSubjects(ctx, name, func(x Subject) bool { return string(x) == name })
}

// RemoveSubjectsWhere removes every subject matching fn.
func (s *Service) RemoveSubjectsWhere(ctx context.Context, fn func(Subject) bool) (int, Result, error) {
	return s.removeSubjects(ctx, "", fn)
}

func (s *Service) removeSubjects(ctx context.Context, id string, fn func(Subject) bool) (int, Result, error) {
	return runRemoval(ctx, s, removal[Subject]{
		op: "remove_subject", entity: EntitySubject, id: id,
		list: s.store.ListSubjects, match: fn, remove: (*Transaction).RemoveSubjects,
	})
}

// RemoveCourse removes the course with this name.
func (s *Service) RemoveCourse(ctx context.Context, name string) (int, Result, error) {
	return s.removeCourses(ctx, name, func(c Course) bool { return c.Name == name })
}

// RemoveCoursesWhere removes every course matching fn.
func (s *Service) RemoveCoursesWhere(ctx context.Context, fn func(Course) bool) (int, Result, error) {
	return s.removeCourses(ctx, "", fn)
}

func (s *Service) removeCourses(ctx context.Context, id string, fn func(Course) bool) (int, Result, error) {
	return runRemoval(ctx, s, removal[Course]{
		op: "remove_course", entity: EntityCourse, id: id,
		list: s.store.ListCourses, match: fn, remove: (*Transaction).RemoveCourses,
	})
}

// RemoveBatch removes every batch with this name. Batch names are not unique,
// so more than one entry may go.
func (s *Service) RemoveBatch(ctx context.Context, name string) (int, Result, error) {
	return s.removeBatches(ctx, name, func(b Batch) bool { return b.Name == name })
}

// RemoveBatchesWhere removes every batch matching fn.
func (s *Service) RemoveBatchesWhere(ctx context.Context, fn func(Batch) bool) (int, Result, error) {
	return s.removeBatches(ctx, "", fn)
}

func (s *Service) removeBatches(ctx context.Context, id string, fn func(Batch) bool) (int, Result, error) {
	return runRemoval(ctx, s, removal[Batch]{
		op: "remove_batch", entity: EntityBatch, id: id,
		list: s.store.ListBatches, match: fn, remove: (*Transaction).RemoveBatches,
	})
}

// RemoveStudent removes the student with this name.
func (s *Service) RemoveStudent(ctx context.Context, name string) (int, Result, error) {
	return s.removeStudents(ctx, name, func(st Student) bool { return st.Name == name })
}

// RemoveStudentsWhere removes every student matching fn.
func (s *Service) RemoveStudentsWhere(ctx context.Context, fn func(Student) bool) (int, Result, error) {
	return s.removeStudents(ctx, "", fn)
}

func (s *Service) removeStudents(ctx context.Context, id string, fn func(Student) bool) (int, Result, error) {
	return runRemoval(ctx, s, removal[Student]{
		op: "remove_student", entity: EntityStudent, id: id,
		list: s.store.ListStudents, match: fn, remove: (*Transaction).RemoveStudents,
	})
}

// ReplaceSubject removes the subject named old and adds next in one
// transaction, through the same validation path as AddSubject. The
// replacement goes to the end of the collection.
func (s *Service) ReplaceSubject(ctx context.Context, old, next string) (Subject, Result, error) {
	var updated Subject
	proposed := Subject(next).Normalized()
	res, err := s.run(ctx, "replace_subject", old, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			removed, err := tx.RemoveSubjects(func(x Subject) bool { return string(x) == old })
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				return ErrNotFound{Entity: EntitySubject, Name: old}
			}
			updated, err = tx.AppendSubject(proposed)
			return err
		})
	})
	return updated, res, err
}

// ReplaceCourse removes the course named name and adds next in one transaction.
func (s *Service) ReplaceCourse(ctx context.Context, name string, next Course) (Course, Result, error) {
	var updated Course
	proposed := next.Normalized()
	res, err := s.run(ctx, "replace_course", name, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			removed, err := tx.RemoveCourses(func(c Course) bool { return c.Name == name })
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				return ErrNotFound{Entity: EntityCourse, Name: name}
			}
			updated, err = tx.AppendCourse(proposed)
			return err
		})
	})
	return updated, res, err
}

// ReplaceBatch removes every batch named name and adds next in one transaction.
func (s *Service) ReplaceBatch(ctx context.Context, name string, next Batch) (Batch, Result, error) {
	var updated Batch
	proposed := next.Normalized()
	res, err := s.run(ctx, "replace_batch", name, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			removed, err := tx.RemoveBatches(func(b Batch) bool { return b.Name == name })
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				return ErrNotFound{Entity: EntityBatch, Name: name}
			}
			updated, err = tx.AppendBatch(proposed)
			return err
		})
	})
	return updated, res, err
}

// ReplaceStudent removes the student named name and adds next in one transaction.
func (s *Service) ReplaceStudent(ctx context.Context, name string, next Student) (Student, Result, error) {
	var updated Student
	proposed := next.Normalized()
	res, err := s.run(ctx, "replace_student", name, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			removed, err := tx.RemoveStudents(func(st Student) bool { return st.Name == name })
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				return ErrNotFound{Entity: EntityStudent, Name: name}
			}
			updated, err = tx.AppendStudent(proposed)
			return err
		})
	})
	return updated, res, err
}

// ListSubjects returns the subjects in insertion order.
func (s *Service) ListSubjects() []Subject { return s.store.ListSubjects() }

// ListCourses returns the courses in insertion order.
func (s *Service) ListCourses() []Course { return s.store.ListCourses() }

// ListBatches returns the batches in insertion order.
func (s *Service) ListBatches() []Batch { return s.store.ListBatches() }

// ListStudents returns the students in insertion order.
func (s *Service) ListStudents() []Student { return s.store.ListStudents() }

// BatchesForCourse recomputes the batch options for a selected course from
// the current batch collection.
func (s *Service) BatchesForCourse(course string) []Batch {
	return BatchesForCourse(s.store.ListBatches(), course)
}

// Counts returns the size of every collection.
func (s *Service) Counts() Counts {
	snap := s.store.ExportState()
	return Counts{
		Subjects: len(snap.Subjects),
		Courses:  len(snap.Courses),
		Batches:  len(snap.Batches),
		Students: len(snap.Students),
	}
}
