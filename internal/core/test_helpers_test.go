package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trainingcore/pkg/domain"
)

// fakeKV is an in-package key-value medium with failure injection.
type fakeKV struct {
	mu       sync.Mutex
	values   map[string][]byte
	writes   []string
	failGet  map[string]error
	failSet  map[string]error
	closed   bool
	closeErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string][]byte{}, failGet: map[string]error{}, failSet: map[string]error{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failGet[key]; err != nil {
		return nil, false, err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSet[key]; err != nil {
		return err
	}
	f.values[key] = append([]byte(nil), value...)
	f.writes = append(f.writes, key)
	return nil
}

func (f *fakeKV) Driver() domain.Driver { return domain.DriverMemory }

func (f *fakeKV) Close() error {
	f.closed = true
	return f.closeErr
}

func (f *fakeKV) raw(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.values[key])
}

var errDiskFull = errors.New("disk full")

func mustAddSubjects(t *testing.T, svc *Service, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, _, err := svc.AddSubject(context.Background(), name); err != nil {
			t.Fatalf("add subject %s: %v", name, err)
		}
	}
}

// seedCatalog adds subjects Math/Physics/Chemistry, course "Science"
// (Math, Physics), and batches Morning and Evening of Science.
func seedCatalog(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	mustAddSubjects(t, svc, "Math", "Physics", "Chemistry")
	if _, _, err := svc.AddCourse(ctx, Course{Name: "Science", Subjects: []string{"Math", "Physics"}}); err != nil {
		t.Fatalf("add course: %v", err)
	}
	for _, b := range []Batch{
		{Name: "Morning", Course: "Science", Start: "09:00", End: "11:00"},
		{Name: "Evening", Course: "Science", Start: "18:00", End: "20:00"},
	} {
		if _, _, err := svc.AddBatch(ctx, b); err != nil {
			t.Fatalf("add batch %s: %v", b.Name, err)
		}
	}
}

func expectRejected(t *testing.T, err error, message string) {
	t.Helper()
	var violation RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation %q, got %v", message, err)
	}
	if violation.Error() != message {
		t.Fatalf("expected message %q, got %q", message, violation.Error())
	}
}
