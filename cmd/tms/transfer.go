package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trainingcore/internal/adapters/roster"
)

func newExportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE.xlsx",
		Short: "Write every collection to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) (err error) {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			if err := roster.Export(f, a.svc); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Exported to", args[0])
			return nil
		},
	}
}

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE.xlsx",
		Short: "Add every row of a workbook through the usual validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			report, err := roster.Import(cmd.Context(), f, a.svc)
			if err != nil {
				return err
			}
			for _, sheet := range []string{roster.SheetSubjects, roster.SheetCourses, roster.SheetBatches, roster.SheetStudents} {
				fmt.Fprintf(a.out, "%s: %d added\n", sheet, report.Added[sheet])
			}
			for _, r := range report.Rejections {
				fmt.Fprintln(a.errOut, "rejected:", r)
			}
			for _, w := range report.Warnings {
				fmt.Fprintln(a.errOut, "warning:", w.Message)
			}
			return nil
		},
	}
}
