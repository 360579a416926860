package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trainingcore/pkg/domain"
)

type memoryState struct {
	subjects []Subject
	courses  []Course
	batches  []Batch
	students []Student
}

func newMemoryState() memoryState {
	return memoryState{
		subjects: []Subject{},
		courses:  []Course{},
		batches:  []Batch{},
		students: []Student{},
	}
}

func (s memoryState) clone() memoryState {
	return memoryState{
		subjects: cloneSlice(s.subjects),
		courses:  cloneCourses(s.courses),
		batches:  cloneSlice(s.batches),
		students: cloneSlice(s.students),
	}
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneCourse(c Course) Course {
	cp := c
	cp.Subjects = cloneSlice(c.Subjects)
	return cp
}

func cloneCourses(in []Course) []Course {
	out := make([]Course, len(in))
	for i, c := range in {
		out[i] = cloneCourse(c)
	}
	return out
}

func (s memoryState) encode(collection string) ([]byte, error) {
	switch collection {
	case domain.CollectionSubjects:
		return encodeCollection(s.subjects)
	case domain.CollectionCourses:
		return encodeCollection(s.courses)
	case domain.CollectionBatches:
		return encodeCollection(s.batches)
	case domain.CollectionStudents:
		return encodeCollection(s.students)
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}

func (s *memoryState) decode(collection string, data []byte) (int, error) {
	var (
		dropped int
		err     error
	)
	switch collection {
	case domain.CollectionSubjects:
		var items []Subject
		if items, dropped, err = decodeCollection(data, coerceSubject); err == nil {
			s.subjects = items
		}
	case domain.CollectionCourses:
		var items []Course
		if items, dropped, err = decodeCollection(data, coerceCourse); err == nil {
			s.courses = items
		}
	case domain.CollectionBatches:
		var items []Batch
		if items, dropped, err = decodeCollection(data, coerceBatch); err == nil {
			s.batches = items
		}
	case domain.CollectionStudents:
		var items []Student
		if items, dropped, err = decodeCollection(data, coerceStudent); err == nil {
			s.students = items
		}
	default:
		err = fmt.Errorf("unknown collection %q", collection)
	}
	return dropped, err
}

func entityForCollection(collection string) EntityType {
	switch collection {
	case domain.CollectionSubjects:
		return EntitySubject
	case domain.CollectionCourses:
		return EntityCourse
	case domain.CollectionBatches:
		return EntityBatch
	default:
		return EntityStudent
	}
}

// Snapshot is the serialisable representation of the in-memory state.
type Snapshot struct {
	Subjects []Subject `json:"subjects"`
	Courses  []Course  `json:"courses"`
	Batches  []Batch   `json:"batches"`
	Students []Student `json:"students"`
}

// MemoryStore owns the four ordered collections. When a KeyValueStore is
// attached, every committed change rewrites the touched collections in full.
type MemoryStore struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	kv     KeyValueStore
}

// NewMemoryStore constructs an in-memory store backed by the provided rules engine.
func NewMemoryStore(engine *RulesEngine) *MemoryStore {
	if engine == nil {
		engine = NewRulesEngine()
	}
	return &MemoryStore{
		state:  newMemoryState(),
		engine: engine,
	}
}

// NewPersistentStore constructs a store mirrored to kv and hydrates it from
// whatever kv already holds. Load problems never fail construction; they are
// reported as warnings in the returned Result.
func NewPersistentStore(ctx context.Context, kv KeyValueStore, engine *RulesEngine) (*MemoryStore, Result) {
	s := NewMemoryStore(engine)
	s.kv = kv
	return s, s.Load(ctx)
}

// Engine returns the rules engine consulted on every mutation.
func (s *MemoryStore) Engine() *RulesEngine {
	return s.engine
}

// Load replaces the in-memory state with the collections held by the
// key-value medium. Missing keys load as empty collections, and so do
// unreadable or unparsable ones, each reported as a warning.
func (s *MemoryStore) Load(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	if s.kv == nil {
		return res
	}
	next := newMemoryState()
	for _, collection := range domain.Collections {
		data, ok, err := s.kv.Get(ctx, collection)
		if err != nil {
			res.Violations = append(res.Violations, loadWarning(collection, fmt.Sprintf("read failed, starting empty: %v", err)))
			continue
		}
		if !ok {
			continue
		}
		dropped, err := next.decode(collection, data)
		if err != nil {
			res.Violations = append(res.Violations, loadWarning(collection, fmt.Sprintf("unreadable, starting empty: %v", err)))
			continue
		}
		if dropped > 0 {
			res.Violations = append(res.Violations, loadWarning(collection, fmt.Sprintf("dropped %d malformed entries", dropped)))
		}
	}
	s.state = next
	return res
}

func loadWarning(collection, msg string) Violation {
	return Violation{
		Rule:     "load",
		Severity: SeverityWarn,
		Message:  fmt.Sprintf("%s %s", collection, msg),
		Entity:   entityForCollection(collection),
	}
}

func persistenceWarning(collection string, err error) Violation {
	return Violation{
		Rule:     "persistence",
		Severity: SeverityWarn,
		Message:  fmt.Sprintf("%s kept in memory but not saved: %v", collection, err),
		Entity:   entityForCollection(collection),
	}
}

// replace writes the full committed collection to the key-value medium.
// Callers must hold s.mu.
func (s *MemoryStore) replace(ctx context.Context, collection string) error {
	if s.kv == nil {
		return nil
	}
	payload, err := s.state.encode(collection)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := s.kv.Set(ctx, collection, payload); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	return nil
}

// Persist rewrites every collection to the key-value medium.
func (s *MemoryStore) Persist(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var errs []error
	for _, collection := range domain.Collections {
		if err := s.replace(ctx, collection); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Transaction represents a mutation set applied to a copy of the store state.
type Transaction struct {
	ctx     context.Context
	store   *MemoryStore
	state   memoryState
	changes []Change
	result  Result
}

// TransactionView exposes a read-only snapshot of the transactional state to rules.
type TransactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return TransactionView{state: state}
}

// ListSubjects returns all subjects in insertion order.
func (v TransactionView) ListSubjects() []Subject { return cloneSlice(v.state.subjects) }

// ListCourses returns all courses in insertion order.
func (v TransactionView) ListCourses() []Course { return cloneCourses(v.state.courses) }

// ListBatches returns all batches in insertion order.
func (v TransactionView) ListBatches() []Batch { return cloneSlice(v.state.batches) }

// ListStudents returns all students in insertion order.
func (v TransactionView) ListStudents() []Student { return cloneSlice(v.state.students) }

// HasSubject reports whether a subject with exactly this label exists.
func (v TransactionView) HasSubject(name string) bool {
	for _, s := range v.state.subjects {
		if string(s) == name {
			return true
		}
	}
	return false
}

// FindCourse retrieves the course with the given name.
func (v TransactionView) FindCourse(name string) (Course, bool) {
	for _, c := range v.state.courses {
		if c.Name == name {
			return cloneCourse(c), true
		}
	}
	return Course{}, false
}

// FindStudent retrieves the student with the given name.
func (v TransactionView) FindStudent(name string) (Student, bool) {
	for _, st := range v.state.students {
		if st.Name == name {
			return st, true
		}
	}
	return Student{}, false
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules are evaluated as each change is staged; a blocking violation aborts
// the transaction and leaves the store untouched. After commit the touched
// collections are persisted, and write failures come back as warnings.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		ctx:   ctx,
		store: s,
		state: s.state.clone(),
	}
	if err := fn(tx); err != nil {
		return tx.result, err
	}

	s.state = tx.state
	result := tx.result
	for _, collection := range touchedCollections(tx.changes) {
		if err := s.replace(ctx, collection); err != nil {
			result.Violations = append(result.Violations, persistenceWarning(collection, err))
		}
	}
	return result, nil
}

func touchedCollections(changes []Change) []string {
	touched := make(map[string]bool, len(domain.Collections))
	for _, c := range changes {
		touched[c.Entity.Collection()] = true
	}
	out := make([]string, 0, len(touched))
	for _, collection := range domain.Collections {
		if touched[collection] {
			out = append(out, collection)
		}
	}
	return out
}

// View executes fn against a read-only snapshot of the store state.
func (s *MemoryStore) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

// Snapshot returns a read-only view of the staged state.
func (tx *Transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// Changes returns the changes staged so far.
func (tx *Transaction) Changes() []Change {
	return append([]Change(nil), tx.changes...)
}

func (tx *Transaction) evaluate(change Change) error {
	res, err := tx.store.engine.Evaluate(tx.ctx, newTransactionView(&tx.state), []Change{change})
	if err != nil {
		return err
	}
	tx.result.Merge(res)
	if res.HasBlocking() {
		return RuleViolationError{Result: res}
	}
	return nil
}

func appendEntity[T any](tx *Transaction, entity EntityType, list *[]T, item T) error {
	change := Change{Entity: entity, Action: ActionCreate, After: item}
	if err := tx.evaluate(change); err != nil {
		return err
	}
	*list = append(*list, item)
	tx.changes = append(tx.changes, change)
	return nil
}

func removeEntities[T any](tx *Transaction, entity EntityType, list *[]T, match func(T) bool) ([]T, error) {
	kept := make([]T, 0, len(*list))
	var removed []T
	for _, item := range *list {
		if match(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	for _, item := range removed {
		change := Change{Entity: entity, Action: ActionDelete, Before: item}
		if err := tx.evaluate(change); err != nil {
			return nil, err
		}
		tx.changes = append(tx.changes, change)
	}
	*list = kept
	return removed, nil
}

// AppendSubject stages a subject at the end of the collection.
func (tx *Transaction) AppendSubject(s Subject) (Subject, error) {
	if err := appendEntity(tx, EntitySubject, &tx.state.subjects, s); err != nil {
		return "", err
	}
	return s, nil
}

// AppendCourse stages a course at the end of the collection.
func (tx *Transaction) AppendCourse(c Course) (Course, error) {
	c = cloneCourse(c)
	if err := appendEntity(tx, EntityCourse, &tx.state.courses, c); err != nil {
		return Course{}, err
	}
	return cloneCourse(c), nil
}

// AppendBatch stages a batch at the end of the collection.
func (tx *Transaction) AppendBatch(b Batch) (Batch, error) {
	if err := appendEntity(tx, EntityBatch, &tx.state.batches, b); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// AppendStudent stages a student at the end of the collection.
func (tx *Transaction) AppendStudent(st Student) (Student, error) {
	if err := appendEntity(tx, EntityStudent, &tx.state.students, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

// RemoveSubjects removes every subject matching fn.
func (tx *Transaction) RemoveSubjects(fn func(Subject) bool) ([]Subject, error) {
	return removeEntities(tx, EntitySubject, &tx.state.subjects, fn)
}

// RemoveCourses removes every course matching fn.
func (tx *Transaction) RemoveCourses(fn func(Course) bool) ([]Course, error) {
	return removeEntities(tx, EntityCourse, &tx.state.courses, fn)
}

// RemoveBatches removes every batch matching fn.
func (tx *Transaction) RemoveBatches(fn func(Batch) bool) ([]Batch, error) {
	return removeEntities(tx, EntityBatch, &tx.state.batches, fn)
}

// RemoveStudents removes every student matching fn.
func (tx *Transaction) RemoveStudents(fn func(Student) bool) ([]Student, error) {
	return removeEntities(tx, EntityStudent, &tx.state.students, fn)
}

// Read helpers ---------------------------------------------------------------

// ListSubjects returns all subjects from committed state.
func (s *MemoryStore) ListSubjects() []Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.state.subjects)
}

// ListCourses returns all courses from committed state.
func (s *MemoryStore) ListCourses() []Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCourses(s.state.courses)
}

// ListBatches returns all batches from committed state.
func (s *MemoryStore) ListBatches() []Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.state.batches)
}

// ListStudents returns all students from committed state.
func (s *MemoryStore) ListStudents() []Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.state.students)
}

// ExportState returns a deep copy of the committed state.
func (s *MemoryStore) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state.clone()
	return Snapshot{Subjects: st.subjects, Courses: st.courses, Batches: st.batches, Students: st.students}
}
