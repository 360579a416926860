package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestAddSubjectTrimsAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)

	created, res, err := svc.AddSubject(ctx, "  Math ")
	if err != nil {
		t.Fatalf("add subject: %v", err)
	}
	if created != "Math" || len(res.Violations) != 0 {
		t.Fatalf("unexpected subject %q result %+v", created, res)
	}
	_, res, err = svc.AddSubject(ctx, "Math")
	expectRejected(t, err, "Duplicate subject not allowed")
	if !res.HasBlocking() || res.Message() != "Duplicate subject not allowed" {
		t.Fatalf("expected blocking result, got %+v", res)
	}
	if got := svc.ListSubjects(); len(got) != 1 {
		t.Fatalf("expected one subject, got %v", got)
	}
	_, _, err = svc.AddSubject(ctx, "   ")
	expectRejected(t, err, "Subject name is required")
	if _, _, err := svc.AddSubject(ctx, "math"); err != nil {
		t.Fatalf("subject identity is case-sensitive: %v", err)
	}
	if got := svc.ListSubjects(); !reflect.DeepEqual(got, []Subject{"Math", "math"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestAddCourseRules(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	mustAddSubjects(t, svc, "Math", "Physics")

	_, _, err := svc.AddCourse(ctx, Course{Name: " ", Subjects: []string{"Math", "Physics"}})
	expectRejected(t, err, "Course name required")

	_, _, err = svc.AddCourse(ctx, Course{Name: "Core", Subjects: []string{"Math"}})
	expectRejected(t, err, "Select at least 2 subjects")

	_, _, err = svc.AddCourse(ctx, Course{Name: "Core", Subjects: []string{"Math", " Math "}})
	expectRejected(t, err, "Select at least 2 subjects")

	course, _, err := svc.AddCourse(ctx, Course{Name: " Core ", Subjects: []string{"Math", "Physics"}})
	if err != nil {
		t.Fatalf("add course: %v", err)
	}
	if course.Name != "Core" || !reflect.DeepEqual(course.Subjects, []string{"Math", "Physics"}) {
		t.Fatalf("unexpected normalized course %+v", course)
	}
	_, _, err = svc.AddCourse(ctx, Course{Name: "Core", Subjects: []string{"Math", "Physics"}})
	expectRejected(t, err, "Duplicate course not allowed")

	// Missing subjects are not checked by the default rules.
	if _, _, err := svc.AddCourse(ctx, Course{Name: "Arts", Subjects: []string{"Music", "Drawing"}}); err != nil {
		t.Fatalf("default rules accept unknown subjects: %v", err)
	}
	if got := len(svc.ListCourses()); got != 2 {
		t.Fatalf("expected 2 courses, got %d", got)
	}
}

func TestAddCourseRuleOrder(t *testing.T) {
	svc := NewInMemoryService(nil)
	_, _, err := svc.AddCourse(context.Background(), Course{Name: "", Subjects: nil})
	expectRejected(t, err, "Course name required")
}

func TestAddBatchRules(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)

	_, _, err := svc.AddBatch(ctx, Batch{Name: "B1", Course: "Core", Start: "", End: "09:00"})
	expectRejected(t, err, "All fields required")

	_, _, err = svc.AddBatch(ctx, Batch{Name: "B1", Course: "Core", Start: "10:00", End: "09:00"})
	expectRejected(t, err, "Start time must be before end time")

	_, _, err = svc.AddBatch(ctx, Batch{Name: "B1", Course: "Core", Start: "10:00", End: "10:00"})
	expectRejected(t, err, "Start time must be before end time")

	b, _, err := svc.AddBatch(ctx, Batch{Name: " B1", Course: "Core ", Start: "09:00", End: "10:00"})
	if err != nil {
		t.Fatalf("add batch: %v", err)
	}
	if b != (Batch{Name: "B1", Course: "Core", Start: "09:00", End: "10:00"}) {
		t.Fatalf("unexpected normalized batch %+v", b)
	}
	if _, _, err := svc.AddBatch(ctx, b); err != nil {
		t.Fatalf("batch names are not unique: %v", err)
	}
	if got := len(svc.ListBatches()); got != 2 {
		t.Fatalf("expected 2 batches, got %d", got)
	}
}

func TestAddStudentRules(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)

	_, _, err := svc.AddStudent(ctx, Student{Name: "Alice", Course: "Core"})
	expectRejected(t, err, "All fields required")

	alice := Student{Name: "Alice", Course: "Core", Batch: "B1"}
	if _, _, err := svc.AddStudent(ctx, alice); err != nil {
		t.Fatalf("default rules do not check references: %v", err)
	}
	_, _, err = svc.AddStudent(ctx, Student{Name: " Alice ", Course: "Other", Batch: "B2"})
	expectRejected(t, err, "Duplicate student not allowed")
	if got := svc.ListStudents(); !reflect.DeepEqual(got, []Student{alice}) {
		t.Fatalf("unexpected students %v", got)
	}
}

func TestRemoveSubjectByValue(t *testing.T) {
	ctx := context.Background()
	var prompts []string
	svc := NewInMemoryService(nil, WithConfirmer(ConfirmFunc(func(_ context.Context, prompt string) bool {
		prompts = append(prompts, prompt)
		return true
	})))
	seedCatalog(t, svc)

	n, _, err := svc.RemoveSubject(ctx, "Math")
	if err != nil || n != 1 {
		t.Fatalf("remove subject: n=%d err=%v", n, err)
	}
	if !reflect.DeepEqual(prompts, []string{"Delete this subject?"}) {
		t.Fatalf("unexpected prompts %v", prompts)
	}
	if got := svc.ListSubjects(); !reflect.DeepEqual(got, []Subject{"Physics", "Chemistry"}) {
		t.Fatalf("unexpected subjects %v", got)
	}
	// Nothing cascades: the course still references Math.
	if c := svc.ListCourses()[0]; !c.HasSubject("Math") {
		t.Fatalf("course lost its subject reference: %+v", c)
	}

	_, _, err = svc.RemoveSubject(ctx, "Math")
	var nf ErrNotFound
	if !errors.As(err, &nf) || nf.Entity != EntitySubject || nf.Name != "Math" {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(prompts) != 1 {
		t.Fatalf("no prompt expected when nothing matches, got %v", prompts)
	}
}

func TestRemoveCancelledLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store, _ := NewPersistentStore(ctx, kv, NewDefaultRulesEngine())
	svc := NewService(store, WithConfirmer(ConfirmFunc(func(context.Context, string) bool { return false })))
	seedCatalog(t, svc)
	writes := len(kv.writes)

	n, _, err := svc.RemoveCourse(ctx, "Science")
	if !errors.Is(err, ErrCancelled) || n != 0 {
		t.Fatalf("expected cancellation, n=%d err=%v", n, err)
	}
	if len(svc.ListCourses()) != 1 {
		t.Fatalf("course removed despite cancellation")
	}
	if len(kv.writes) != writes {
		t.Fatalf("cancelled removal must not write, got %v", kv.writes[writes:])
	}
}

func TestRemoveBatchRemovesEveryMatch(t *testing.T) {
	ctx := context.Background()
	var prompts []string
	svc := NewInMemoryService(nil, WithConfirmer(ConfirmFunc(func(_ context.Context, p string) bool {
		prompts = append(prompts, p)
		return true
	})))
	for _, b := range []Batch{
		{Name: "B1", Course: "Core", Start: "09:00", End: "10:00"},
		{Name: "B2", Course: "Core", Start: "11:00", End: "12:00"},
		{Name: "B1", Course: "Arts", Start: "13:00", End: "14:00"},
	} {
		if _, _, err := svc.AddBatch(ctx, b); err != nil {
			t.Fatalf("add batch: %v", err)
		}
	}
	n, _, err := svc.RemoveBatch(ctx, "B1")
	if err != nil || n != 2 {
		t.Fatalf("remove batch: n=%d err=%v", n, err)
	}
	if !reflect.DeepEqual(prompts, []string{"Delete 2 batches?"}) {
		t.Fatalf("unexpected prompts %v", prompts)
	}
	if got := svc.ListBatches(); len(got) != 1 || got[0].Name != "B2" {
		t.Fatalf("unexpected batches %v", got)
	}
}

func TestRemoveWherePredicate(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	for _, st := range []Student{
		{Name: "Alice", Course: "Core", Batch: "B1"},
		{Name: "Bob", Course: "Arts", Batch: "B2"},
		{Name: "Cara", Course: "Core", Batch: "B1"},
	} {
		if _, _, err := svc.AddStudent(ctx, st); err != nil {
			t.Fatalf("add student: %v", err)
		}
	}
	n, _, err := svc.RemoveStudentsWhere(ctx, func(s Student) bool { return s.Course == "Core" })
	if err != nil || n != 2 {
		t.Fatalf("remove where: n=%d err=%v", n, err)
	}
	n, _, err = svc.RemoveStudentsWhere(ctx, func(s Student) bool { return s.Course == "Core" })
	if err != nil || n != 0 {
		t.Fatalf("empty predicate match is a no-op: n=%d err=%v", n, err)
	}
	if n, _, err := svc.RemoveStudent(ctx, "Bob"); err != nil || n != 1 {
		t.Fatalf("remove student: n=%d err=%v", n, err)
	}
	mustAddSubjects(t, svc, "A", "B", "C")
	if n, _, err := svc.RemoveSubjectsWhere(ctx, func(s Subject) bool { return s != "B" }); err != nil || n != 2 {
		t.Fatalf("remove subjects where: n=%d err=%v", n, err)
	}
	if _, _, err := svc.AddCourse(ctx, Course{Name: "X", Subjects: []string{"A", "B"}}); err != nil {
		t.Fatalf("add course: %v", err)
	}
	if n, _, err := svc.RemoveCoursesWhere(ctx, func(Course) bool { return true }); err != nil || n != 1 {
		t.Fatalf("remove courses where: n=%d err=%v", n, err)
	}
	if _, _, err := svc.AddBatch(ctx, Batch{Name: "B", Course: "X", Start: "08:00", End: "09:00"}); err != nil {
		t.Fatalf("add batch: %v", err)
	}
	if n, _, err := svc.RemoveBatchesWhere(ctx, func(Batch) bool { return true }); err != nil || n != 1 {
		t.Fatalf("remove batches where: n=%d err=%v", n, err)
	}
	if svc.Counts() != (Counts{Subjects: 1}) {
		t.Fatalf("unexpected counts %+v", svc.Counts())
	}
}

func TestReplaceUsesAddValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	seedCatalog(t, svc)

	updated, _, err := svc.ReplaceSubject(ctx, "Chemistry", " Biology ")
	if err != nil || updated != "Biology" {
		t.Fatalf("replace subject: %q %v", updated, err)
	}
	if got := svc.ListSubjects(); !reflect.DeepEqual(got, []Subject{"Math", "Physics", "Biology"}) {
		t.Fatalf("unexpected subjects %v", got)
	}
	// Replacing with the same name passes because the old entry is gone first.
	if _, _, err := svc.ReplaceSubject(ctx, "Math", "Math"); err != nil {
		t.Fatalf("replace with same name: %v", err)
	}
	_, _, err = svc.ReplaceSubject(ctx, "Physics", "Math")
	expectRejected(t, err, "Duplicate subject not allowed")
	if got := svc.ListSubjects(); !reflect.DeepEqual(got, []Subject{"Physics", "Biology", "Math"}) {
		t.Fatalf("rejected replace must roll back, got %v", got)
	}

	_, _, err = svc.ReplaceCourse(ctx, "Science", Course{Name: "Science", Subjects: []string{"Math"}})
	expectRejected(t, err, "Select at least 2 subjects")
	if c, _, err := svc.ReplaceCourse(ctx, "Science", Course{Name: "Sci", Subjects: []string{"Math", "Biology"}}); err != nil || c.Name != "Sci" {
		t.Fatalf("replace course: %+v %v", c, err)
	}

	_, _, err = svc.ReplaceBatch(ctx, "Morning", Batch{Name: "Morning", Course: "Sci", Start: "12:00", End: "11:00"})
	expectRejected(t, err, "Start time must be before end time")
	if _, _, err := svc.ReplaceBatch(ctx, "Morning", Batch{Name: "Morning", Course: "Sci", Start: "08:00", End: "11:00"}); err != nil {
		t.Fatalf("replace batch: %v", err)
	}

	if _, _, err := svc.AddStudent(ctx, Student{Name: "Alice", Course: "Sci", Batch: "Morning"}); err != nil {
		t.Fatalf("add student: %v", err)
	}
	if st, _, err := svc.ReplaceStudent(ctx, "Alice", Student{Name: "Alice", Course: "Sci", Batch: "Evening"}); err != nil || st.Batch != "Evening" {
		t.Fatalf("replace student: %+v %v", st, err)
	}

	var nf ErrNotFound
	if _, _, err := svc.ReplaceStudent(ctx, "Nobody", Student{Name: "X", Course: "Y", Batch: "Z"}); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if nf.Error() != `student "Nobody" not found` {
		t.Fatalf("unexpected error text %q", nf.Error())
	}
}

func TestBatchesForCourseFollowsMutations(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	seedCatalog(t, svc)

	if got := svc.BatchesForCourse(""); len(got) != 0 {
		t.Fatalf("empty selection must yield no batches, got %v", got)
	}
	first := svc.BatchesForCourse("Science")
	if len(first) != 2 || first[0].Name != "Morning" || first[1].Name != "Evening" {
		t.Fatalf("unexpected filtered batches %v", first)
	}
	if _, _, err := svc.AddBatch(ctx, Batch{Name: "Late", Course: "Science", Start: "21:00", End: "22:00"}); err != nil {
		t.Fatalf("add batch: %v", err)
	}
	if got := svc.BatchesForCourse("Science"); len(got) != 3 || got[2].Name != "Late" {
		t.Fatalf("filter must be recomputed after add, got %v", got)
	}
	if _, _, err := svc.RemoveBatch(ctx, "Morning"); err != nil {
		t.Fatalf("remove batch: %v", err)
	}
	if got := svc.BatchesForCourse("Science"); len(got) != 2 || got[0].Name != "Evening" {
		t.Fatalf("filter must be recomputed after remove, got %v", got)
	}
	if got := svc.BatchesForCourse("Arts"); len(got) != 0 {
		t.Fatalf("unknown course yields no batches, got %v", got)
	}
}

func TestCounts(t *testing.T) {
	svc := NewInMemoryService(nil)
	seedCatalog(t, svc)
	if _, _, err := svc.AddStudent(context.Background(), Student{Name: "Alice", Course: "Science", Batch: "Morning"}); err != nil {
		t.Fatalf("add student: %v", err)
	}
	want := Counts{Subjects: 3, Courses: 1, Batches: 2, Students: 1}
	if got := svc.Counts(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestNewInMemoryServiceDefaultsToDefaultRules(t *testing.T) {
	svc := NewInMemoryService(nil)
	names := svc.Store().Engine().RuleNames()
	if !reflect.DeepEqual(names, NewDefaultRulesEngine().RuleNames()) {
		t.Fatalf("unexpected rule set %v", names)
	}
	if svc.Store().Driver() != "memory" {
		t.Fatalf("expected memory driver, got %s", svc.Store().Driver())
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStrictRulesEnforceReferences(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(NewStrictRulesEngine())
	mustAddSubjects(t, svc, "Math", "Physics")

	_, _, err := svc.AddCourse(ctx, Course{Name: "Core", Subjects: []string{"Math", "Music"}})
	expectRejected(t, err, "Unknown subject: Music")
	if _, _, err := svc.AddCourse(ctx, Course{Name: "Core", Subjects: []string{"Math", "Physics"}}); err != nil {
		t.Fatalf("add course: %v", err)
	}

	_, _, err = svc.AddBatch(ctx, Batch{Name: "B1", Course: "Arts", Start: "09:00", End: "10:00"})
	expectRejected(t, err, "Unknown course: Arts")
	_, _, err = svc.AddBatch(ctx, Batch{Name: "B1", Course: "Core", Start: "9:00", End: "10:00"})
	expectRejected(t, err, `Invalid time "9:00", expected HH:MM`)
	if _, _, err := svc.AddBatch(ctx, Batch{Name: "B1", Course: "Core", Start: "09:00", End: "10:00"}); err != nil {
		t.Fatalf("add batch: %v", err)
	}

	_, _, err = svc.AddStudent(ctx, Student{Name: "Alice", Course: "Core", Batch: "B9"})
	expectRejected(t, err, "Batch B9 does not belong to course Core")
	if _, _, err := svc.AddStudent(ctx, Student{Name: "Alice", Course: "Core", Batch: "B1"}); err != nil {
		t.Fatalf("add student: %v", err)
	}

	_, res, err := svc.RemoveSubject(ctx, "Math")
	if err != nil {
		t.Fatalf("removal is never blocked: %v", err)
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "removal_still_referenced" {
		t.Fatalf("expected reference warning, got %+v", res)
	}
	if warnings[0].Message != "subject Math is still referenced by 1 course(s)" {
		t.Fatalf("unexpected warning %q", warnings[0].Message)
	}
}
