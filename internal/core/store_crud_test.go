package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"trainingcore/pkg/domain"
)

func TestPersistentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store, res := NewPersistentStore(ctx, kv, NewDefaultRulesEngine())
	if len(res.Violations) != 0 {
		t.Fatalf("empty medium must load cleanly, got %+v", res)
	}
	svc := NewService(store)
	seedCatalog(t, svc)
	for _, st := range []Student{
		{Name: "Alice", Course: "Science", Batch: "Morning"},
		{Name: "Bob", Course: "Science", Batch: "Evening"},
	} {
		if _, _, err := svc.AddStudent(ctx, st); err != nil {
			t.Fatalf("add student: %v", err)
		}
	}
	want := store.ExportState()

	reloaded, res := NewPersistentStore(ctx, kv, NewDefaultRulesEngine())
	if len(res.Violations) != 0 {
		t.Fatalf("reload reported %+v", res)
	}
	if got := reloaded.ExportState(); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
	if !strings.HasPrefix(kv.raw(domain.CollectionStudents), `{"version":1,"items":[`) {
		t.Fatalf("expected versioned envelope, got %s", kv.raw(domain.CollectionStudents))
	}
}

func TestCommitRewritesOnlyTouchedCollections(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store, _ := NewPersistentStore(ctx, kv, NewDefaultRulesEngine())
	svc := NewService(store)
	mustAddSubjects(t, svc, "Math")
	if !reflect.DeepEqual(kv.writes, []string{domain.CollectionSubjects}) {
		t.Fatalf("unexpected writes %v", kv.writes)
	}
	kv.writes = nil
	if _, _, err := svc.AddSubject(ctx, "Math"); err == nil {
		t.Fatalf("expected duplicate rejection")
	}
	if len(kv.writes) != 0 {
		t.Fatalf("rejected add must not write, got %v", kv.writes)
	}
}

func TestPersistenceFailureIsAWarning(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.failSet[domain.CollectionSubjects] = errDiskFull
	store, _ := NewPersistentStore(ctx, kv, NewDefaultRulesEngine())
	svc := NewService(store)

	created, res, err := svc.AddSubject(ctx, "Math")
	if err != nil {
		t.Fatalf("write failure must not fail the add: %v", err)
	}
	if created != "Math" || len(store.ListSubjects()) != 1 {
		t.Fatalf("in-memory state must keep the subject")
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "persistence" || warnings[0].Severity != SeverityWarn {
		t.Fatalf("expected persistence warning, got %+v", res)
	}
	if !strings.Contains(warnings[0].Message, "disk full") {
		t.Fatalf("warning should carry the cause, got %q", warnings[0].Message)
	}

	delete(kv.failSet, domain.CollectionSubjects)
	if err := store.Persist(ctx); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if !strings.Contains(kv.raw(domain.CollectionSubjects), `"Math"`) {
		t.Fatalf("persist must flush the retained state, got %s", kv.raw(domain.CollectionSubjects))
	}
	kv.failSet[domain.CollectionBatches] = errDiskFull
	if err := store.Persist(ctx); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected joined persist error, got %v", err)
	}
}

func TestLoadToleratesMissingAndMalformedCollections(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.values[domain.CollectionSubjects] = []byte(`["Math", "", 42, "  Physics "]`)
	kv.values[domain.CollectionCourses] = []byte(`{not json`)
	kv.values[domain.CollectionBatches] = []byte(`{"version":9,"items":[]}`)
	kv.failGet[domain.CollectionStudents] = errors.New("io error")

	store, res := NewPersistentStore(ctx, kv, nil)
	if got := store.ListSubjects(); !reflect.DeepEqual(got, []Subject{"Math", "Physics"}) {
		t.Fatalf("unexpected subjects %v", got)
	}
	if len(store.ListCourses()) != 0 || len(store.ListBatches()) != 0 || len(store.ListStudents()) != 0 {
		t.Fatalf("bad collections must load empty: %+v", store.ExportState())
	}
	if len(res.Violations) != 4 {
		t.Fatalf("expected one warning per problem, got %+v", res.Violations)
	}
	for _, v := range res.Violations {
		if v.Rule != "load" || v.Severity != SeverityWarn {
			t.Fatalf("unexpected violation %+v", v)
		}
	}
	if !strings.Contains(res.Violations[0].Message, "dropped 2 malformed entries") {
		t.Fatalf("unexpected subject warning %q", res.Violations[0].Message)
	}
}

func TestLoadWithoutMediumIsNoop(t *testing.T) {
	store := NewMemoryStore(nil)
	if res := store.Load(context.Background()); len(res.Violations) != 0 {
		t.Fatalf("unexpected violations %+v", res)
	}
	if err := store.Persist(context.Background()); err != nil {
		t.Fatalf("persist without medium: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close without medium: %v", err)
	}
}

func TestTransactionStagesChangesAtomically(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewDefaultRulesEngine())
	_, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		if _, err := tx.AppendSubject("Math"); err != nil {
			return err
		}
		if !tx.Snapshot().HasSubject("Math") {
			return errors.New("staged subject not visible in snapshot")
		}
		if _, err := tx.AppendSubject("Math"); err != nil {
			return err
		}
		return nil
	})
	expectRejected(t, err, "Duplicate subject not allowed")
	if len(store.ListSubjects()) != 0 {
		t.Fatalf("aborted transaction must leave the store untouched")
	}

	res, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		if _, err := tx.AppendSubject("Math"); err != nil {
			return err
		}
		if _, err := tx.AppendSubject("Physics"); err != nil {
			return err
		}
		if len(tx.Changes()) != 2 {
			return errors.New("expected two staged changes")
		}
		removed, err := tx.RemoveSubjects(func(s Subject) bool { return s == "Math" })
		if err != nil {
			return err
		}
		if len(removed) != 1 {
			return errors.New("expected one removal")
		}
		return nil
	})
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("transaction: %v %+v", err, res)
	}
	if got := store.ListSubjects(); !reflect.DeepEqual(got, []Subject{"Physics"}) {
		t.Fatalf("unexpected subjects %v", got)
	}
}

func TestViewAndListsReturnCopies(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	seedCatalog(t, svc)
	store := svc.Store()

	courses := store.ListCourses()
	courses[0].Subjects[0] = "Mutated"
	if store.ListCourses()[0].Subjects[0] != "Math" {
		t.Fatalf("ListCourses must deep copy")
	}
	err := store.View(ctx, func(v TransactionView) error {
		c, ok := v.FindCourse("Science")
		if !ok {
			return errors.New("course missing")
		}
		c.Subjects[1] = "Mutated"
		if _, ok := v.FindStudent("Nobody"); ok {
			return errors.New("unexpected student")
		}
		if len(v.ListSubjects()) != 3 || len(v.ListBatches()) != 2 || len(v.ListStudents()) != 0 {
			return errors.New("unexpected view sizes")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if store.ListCourses()[0].Subjects[1] != "Physics" {
		t.Fatalf("view must not leak mutable state")
	}
}

func TestStoreCloseReleasesMedium(t *testing.T) {
	kv := newFakeKV()
	kv.closeErr = errors.New("close failed")
	store, _ := NewPersistentStore(context.Background(), kv, nil)
	if store.Driver() != domain.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if err := store.Close(); err == nil || !kv.closed {
		t.Fatalf("expected close error from medium, err=%v closed=%v", err, kv.closed)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}
}
