package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"trainingcore/internal/core"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func added(a *app, entity core.EntityType, res core.Result) {
	fmt.Fprintln(a.out, entity.SuccessMessage())
	a.report(res)
}

func newSubjectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "subject", Short: "Manage subjects"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME",
			Short: "Add a subject",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, res, err := a.svc.AddSubject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				added(a, core.EntitySubject, res)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List subjects in insertion order",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				for _, s := range a.svc.ListSubjects() {
					fmt.Fprintln(a.out, s.Name())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a subject; courses keep their reference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, res, err := a.svc.RemoveSubject(cmd.Context(), args[0])
				return a.removed(core.EntitySubject, n, res, err)
			},
		},
	)
	return cmd
}

func newCourseCommand(a *app) *cobra.Command {
	var subjects []string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a course of at least two subjects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := a.svc.AddCourse(cmd.Context(), core.Course{Name: args[0], Subjects: subjects})
			if err != nil {
				return err
			}
			added(a, core.EntityCourse, res)
			return nil
		},
	}
	add.Flags().StringArrayVarP(&subjects, "subjects", "s", nil, "subject taught in the course; repeat for each")

	cmd := &cobra.Command{Use: "course", Short: "Manage courses"}
	cmd.AddCommand(
		add,
		&cobra.Command{
			Use:   "list",
			Short: "List courses with their subjects",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				for _, c := range a.svc.ListCourses() {
					fmt.Fprintf(a.out, "%s: %s\n", c.Name, strings.Join(c.Subjects, ", "))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a course; batches and students keep their reference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, res, err := a.svc.RemoveCourse(cmd.Context(), args[0])
				return a.removed(core.EntityCourse, n, res, err)
			},
		},
	)
	return cmd
}

func printBatches(w io.Writer, batches []core.Batch) {
	for _, b := range batches {
		fmt.Fprintf(w, "%s (%s) %s-%s\n", b.Name, b.Course, b.Start, b.End)
	}
}

func newBatchCommand(a *app) *cobra.Command {
	var batch core.Batch
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a batch of a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch.Name = args[0]
			_, res, err := a.svc.AddBatch(cmd.Context(), batch)
			if err != nil {
				return err
			}
			added(a, core.EntityBatch, res)
			return nil
		},
	}
	add.Flags().StringVarP(&batch.Course, "course", "c", "", "course the batch belongs to")
	add.Flags().StringVar(&batch.Start, "start", "", "start time, HH:MM")
	add.Flags().StringVar(&batch.End, "end", "", "end time, HH:MM")

	cmd := &cobra.Command{Use: "batch", Short: "Manage batches"}
	cmd.AddCommand(
		add,
		&cobra.Command{
			Use:   "list",
			Short: "List batches",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				printBatches(a.out, a.svc.ListBatches())
				return nil
			},
		},
		&cobra.Command{
			Use:   "for-course COURSE",
			Short: "List the batches of one course",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				printBatches(a.out, a.svc.BatchesForCourse(args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete every batch with this name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, res, err := a.svc.RemoveBatch(cmd.Context(), args[0])
				return a.removed(core.EntityBatch, n, res, err)
			},
		},
	)
	return cmd
}

func newStudentCommand(a *app) *cobra.Command {
	var student core.Student
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Enroll a student in a course batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			student.Name = args[0]
			_, res, err := a.svc.AddStudent(cmd.Context(), student)
			if err != nil {
				return err
			}
			added(a, core.EntityStudent, res)
			return nil
		},
	}
	add.Flags().StringVarP(&student.Course, "course", "c", "", "course")
	add.Flags().StringVarP(&student.Batch, "batch", "b", "", "batch of the course")

	cmd := &cobra.Command{Use: "student", Short: "Manage students"}
	cmd.AddCommand(
		add,
		&cobra.Command{
			Use:   "list",
			Short: "List students",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				for _, s := range a.svc.ListStudents() {
					fmt.Fprintf(a.out, "%s (%s, %s)\n", s.Name, s.Course, s.Batch)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a student",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, res, err := a.svc.RemoveStudent(cmd.Context(), args[0])
				return a.removed(core.EntityStudent, n, res, err)
			},
		},
	)
	return cmd
}
