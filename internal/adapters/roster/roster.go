// Package roster exports the training collections to an XLSX workbook and
// imports such a workbook back through the service's validation path.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"trainingcore/internal/core"
)

// Sheet names, one per collection.
const (
	SheetSubjects = "Subjects"
	SheetCourses  = "Courses"
	SheetBatches  = "Batches"
	SheetStudents = "Students"
)

var headers = map[string][]any{
	SheetSubjects: {"Name"},
	SheetCourses:  {"Name", "Subjects"},
	SheetBatches:  {"Name", "Course", "Start", "End"},
	SheetStudents: {"Name", "Course", "Batch"},
}

// Reader lists the collections to export.
type Reader interface {
	ListSubjects() []core.Subject
	ListCourses() []core.Course
	ListBatches() []core.Batch
	ListStudents() []core.Student
}

// Writer accepts imported rows.
type Writer interface {
	AddSubject(ctx context.Context, name string) (core.Subject, core.Result, error)
	AddCourse(ctx context.Context, course core.Course) (core.Course, core.Result, error)
	AddBatch(ctx context.Context, batch core.Batch) (core.Batch, core.Result, error)
	AddStudent(ctx context.Context, student core.Student) (core.Student, core.Result, error)
}

// Export writes one sheet per collection. Course subjects occupy consecutive
// cells after the course name.
func Export(w io.Writer, src Reader) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSubjects, subjectRows(src.ListSubjects())},
		{SheetCourses, courseRows(src.ListCourses())},
		{SheetBatches, batchRows(src.ListBatches())},
		{SheetStudents, studentRows(src.ListStudents())},
	}
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.name, err)
		}
		if err := writeRow(f, sheet.name, 1, headers[sheet.name]); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet.name, 1, 1, bold); err != nil {
			return fmt.Errorf("style %s header: %w", sheet.name, err)
		}
		for j, row := range sheet.rows {
			if err := writeRow(f, sheet.name, j+2, row); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func subjectRows(subjects []core.Subject) [][]any {
	rows := make([][]any, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []any{s.Name()})
	}
	return rows
}

func courseRows(courses []core.Course) [][]any {
	rows := make([][]any, 0, len(courses))
	for _, c := range courses {
		row := []any{c.Name}
		for _, s := range c.Subjects {
			row = append(row, s)
		}
		rows = append(rows, row)
	}
	return rows
}

func batchRows(batches []core.Batch) [][]any {
	rows := make([][]any, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []any{b.Name, b.Course, b.Start, b.End})
	}
	return rows
}

func studentRows(students []core.Student) [][]any {
	rows := make([][]any, 0, len(students))
	for _, s := range students {
		rows = append(rows, []any{s.Name, s.Course, s.Batch})
	}
	return rows
}

// Rejection is a row the service refused.
type Rejection struct {
	Sheet   string
	Row     int // 1-based, as shown by spreadsheet applications
	Message string
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s row %d: %s", r.Sheet, r.Row, r.Message)
}

// Report summarizes an import.
type Report struct {
	Added      map[string]int
	Rejections []Rejection
	Warnings   []core.Violation
}

// Import replays every data row of a workbook through dst in dependency order
// (subjects, courses, batches, students). Missing sheets and blank rows are
// skipped. Rule rejections are collected per row; any other error aborts.
func Import(ctx context.Context, r io.Reader, dst Writer) (Report, error) {
	report := Report{Added: map[string]int{}}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return report, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() { _ = f.Close() }()

	steps := []struct {
		sheet string
		add   func(row []string) (core.Result, error)
	}{
		{SheetSubjects, func(row []string) (core.Result, error) {
			_, res, err := dst.AddSubject(ctx, cell(row, 0))
			return res, err
		}},
		{SheetCourses, func(row []string) (core.Result, error) {
			var subjects []string
			if len(row) > 1 {
				subjects = row[1:]
			}
			_, res, err := dst.AddCourse(ctx, core.Course{Name: cell(row, 0), Subjects: subjects})
			return res, err
		}},
		{SheetBatches, func(row []string) (core.Result, error) {
			_, res, err := dst.AddBatch(ctx, core.Batch{Name: cell(row, 0), Course: cell(row, 1), Start: cell(row, 2), End: cell(row, 3)})
			return res, err
		}},
		{SheetStudents, func(row []string) (core.Result, error) {
			_, res, err := dst.AddStudent(ctx, core.Student{Name: cell(row, 0), Course: cell(row, 1), Batch: cell(row, 2)})
			return res, err
		}},
	}
	for _, step := range steps {
		if idx, err := f.GetSheetIndex(step.sheet); err != nil || idx < 0 {
			continue
		}
		rows, err := f.GetRows(step.sheet)
		if err != nil {
			return report, fmt.Errorf("failed to get rows from sheet %s: %w", step.sheet, err)
		}
		for i, row := range rows {
			if i == 0 || blank(row) {
				continue
			}
			res, err := step.add(row)
			var violation core.RuleViolationError
			switch {
			case errors.As(err, &violation):
				report.Rejections = append(report.Rejections, Rejection{Sheet: step.sheet, Row: i + 1, Message: violation.Error()})
				continue
			case err != nil:
				return report, fmt.Errorf("import %s row %d: %w", step.sheet, i+1, err)
			}
			report.Added[step.sheet]++
			report.Warnings = append(report.Warnings, res.Warnings()...)
		}
	}
	return report, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
