package roster

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"trainingcore/internal/core"
)

func seeded(t *testing.T) *core.Service {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(nil)
	for _, name := range []string{"Math", "Physics", "Chemistry"} {
		if _, _, err := svc.AddSubject(ctx, name); err != nil {
			t.Fatalf("add subject: %v", err)
		}
	}
	if _, _, err := svc.AddCourse(ctx, core.Course{Name: "Science", Subjects: []string{"Math", "Physics", "Chemistry"}}); err != nil {
		t.Fatalf("add course: %v", err)
	}
	if _, _, err := svc.AddBatch(ctx, core.Batch{Name: "Morning", Course: "Science", Start: "09:00", End: "11:00"}); err != nil {
		t.Fatalf("add batch: %v", err)
	}
	if _, _, err := svc.AddStudent(ctx, core.Student{Name: "Asha", Course: "Science", Batch: "Morning"}); err != nil {
		t.Fatalf("add student: %v", err)
	}
	return svc
}

func TestExportImportRoundTrip(t *testing.T) {
	src := seeded(t)
	var buf bytes.Buffer
	if err := Export(&buf, src); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := core.NewInMemoryService(nil)
	report, err := Import(context.Background(), bytes.NewReader(buf.Bytes()), dst)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Rejections) != 0 {
		t.Fatalf("unexpected rejections: %v", report.Rejections)
	}
	want := map[string]int{SheetSubjects: 3, SheetCourses: 1, SheetBatches: 1, SheetStudents: 1}
	if !reflect.DeepEqual(report.Added, want) {
		t.Fatalf("expected %v added, got %v", want, report.Added)
	}
	if !reflect.DeepEqual(dst.ListSubjects(), src.ListSubjects()) ||
		!reflect.DeepEqual(dst.ListCourses(), src.ListCourses()) ||
		!reflect.DeepEqual(dst.ListBatches(), src.ListBatches()) ||
		!reflect.DeepEqual(dst.ListStudents(), src.ListStudents()) {
		t.Fatalf("round trip mismatch")
	}
}

func TestExportWritesHeaders(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, core.NewInMemoryService(nil)); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()
	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetSubjects, SheetCourses, SheetBatches, SheetStudents}) {
		t.Fatalf("unexpected sheets %v", got)
	}
	rows, err := f.GetRows(SheetBatches)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], []string{"Name", "Course", "Start", "End"}) {
		t.Fatalf("unexpected batch sheet %v", rows)
	}
}

func TestImportCollectsRejections(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetSubjects); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := f.NewSheet(SheetCourses); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	mustRow := func(sheet, cell string, values ...any) {
		t.Helper()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	mustRow(SheetSubjects, "A1", "Name")
	mustRow(SheetSubjects, "A2", "Math")
	mustRow(SheetSubjects, "A3", " Math ")
	mustRow(SheetSubjects, "A5", "Physics")
	mustRow(SheetCourses, "A1", "Name", "Subjects")
	mustRow(SheetCourses, "A2", "Solo", "Math")
	mustRow(SheetCourses, "A3", "Science", "Math", "Physics")
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()

	svc := core.NewInMemoryService(nil)
	report, err := Import(context.Background(), &buf, svc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	want := []Rejection{
		{Sheet: SheetSubjects, Row: 3, Message: "Duplicate subject not allowed"},
		{Sheet: SheetCourses, Row: 2, Message: "Select at least 2 subjects"},
	}
	if !reflect.DeepEqual(report.Rejections, want) {
		t.Fatalf("expected %v, got %v", want, report.Rejections)
	}
	if report.Added[SheetSubjects] != 2 || report.Added[SheetCourses] != 1 {
		t.Fatalf("unexpected counts %v", report.Added)
	}
	if want[0].String() != "Subjects row 3: Duplicate subject not allowed" {
		t.Fatalf("unexpected rejection text %q", want[0].String())
	}
}

func TestImportRejectsNonWorkbook(t *testing.T) {
	if _, err := Import(context.Background(), bytes.NewReader([]byte("not a workbook")), core.NewInMemoryService(nil)); err == nil {
		t.Fatalf("expected open error")
	}
}
