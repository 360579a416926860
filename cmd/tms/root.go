package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"trainingcore/internal/config"
	"trainingcore/internal/core"
	"trainingcore/internal/logger"
)

// app carries what every subcommand needs once the root pre-run has opened
// storage.
type app struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	cfgPath  string
	yes      bool
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	svc      *core.Service
	sinks    []io.Closer
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(errOut, "Error:", err)
		return 1
	}
	return 0
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tms",
		Short:         "Training management: subjects, courses, batches, and students",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default $"+config.FileEnv+")")
	root.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "skip delete confirmations")

	root.AddCommand(
		newDashboardCommand(a),
		newSubjectCommand(a),
		newCourseCommand(a),
		newBatchCommand(a),
		newStudentCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newServeMetricsCommand(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.New(logger.Options{Env: cfg.Env, Level: cfg.Log.Level, Writer: a.errOut})

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts := []core.Option{core.WithLogger(a.logger)}
	switch cfg.Metrics.Exporter {
	case "expvar":
		opts = append(opts, core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")))
	default:
		metrics, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithMetricsRecorder(metrics))
	}
	if cfg.Trace.JSONL != "" {
		f, err := a.openSink(cfg.Trace.JSONL)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	} else {
		opts = append(opts, core.WithTracer(core.NewOTelTracer(nil)))
	}
	if cfg.Audit.JSONL != "" {
		f, err := a.openSink(cfg.Audit.JSONL)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithAuditRecorder(core.NewJSONAuditRecorder(f)))
	}

	engine := core.NewDefaultRulesEngine()
	if cfg.Rules.Strict {
		engine = core.NewStrictRulesEngine()
	}
	if !a.yes {
		opts = append(opts, core.WithConfirmer(newPromptConfirmer(a.in, a.out)))
	}
	svc, _, err := core.OpenService(ctx, cfg.KV(), engine, opts...)
	if err != nil {
		return err
	}
	a.svc = svc
	return nil
}

// openSink opens path for appending and closes it with the app.
func (a *app) openSink(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	a.sinks = append(a.sinks, f)
	return f, nil
}

func (a *app) close() error {
	var errs []error
	if a.svc != nil {
		errs = append(errs, a.svc.Close())
		a.svc = nil
	}
	for _, c := range a.sinks {
		errs = append(errs, c.Close())
	}
	a.sinks = nil
	return errors.Join(errs...)
}

// report prints warnings carried by an accepted mutation.
func (a *app) report(res core.Result) {
	for _, w := range res.Warnings() {
		fmt.Fprintln(a.errOut, "warning:", w.Message)
	}
}

// removed prints the outcome of a delete. A declined confirmation is not an
// error.
func (a *app) removed(entity core.EntityType, n int, res core.Result, err error) error {
	if errors.Is(err, core.ErrCancelled) {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err != nil {
		return err
	}
	a.report(res)
	noun := string(entity)
	if n != 1 {
		noun = entity.Collection()
	}
	fmt.Fprintf(a.out, "Deleted %d %s\n", n, noun)
	return nil
}

func newDashboardCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show how many entities each collection holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			counts := a.svc.Counts()
			if asJSON {
				return writeJSON(a.out, counts)
			}
			fmt.Fprintf(a.out, "Subjects: %d\nCourses:  %d\nBatches:  %d\nStudents: %d\n",
				counts.Subjects, counts.Courses, counts.Batches, counts.Students)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print counts as JSON")
	return cmd
}
