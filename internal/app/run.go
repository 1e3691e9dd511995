package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vk/medusa/internal/ctxlog"
	"github.com/vk/medusa/internal/robot"
	"github.com/vk/medusa/internal/schedule"
	"github.com/vk/medusa/internal/stats"
)

// Run executes the suites: collect, schedule, report. The returned error is
// non-nil whenever the process should exit non-zero — any rejected suite,
// failed run, or user interrupt.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	runs, rejected := a.collect(ctx)
	a.printRejected(rejected)
	if len(runs) == 0 {
		return fmt.Errorf("no runs to execute")
	}

	if _, err := os.Stat(a.cfg.OutputDir); err == nil {
		return fmt.Errorf("output directory '%s' already exists", a.cfg.OutputDir)
	}
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logFile, err := os.Create(filepath.Join(a.cfg.OutputDir, "medusa.log"))
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()
	a.logger = a.withFileLogger(logFile)
	ctx = ctxlog.WithLogger(ctx, a.logger)

	// The first interrupt stops admissions and escalates in-flight runs;
	// the supervisors then fall through their kill windows on their own.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &robot.Runner{
		OutputDir:      a.cfg.OutputDir,
		RobotArgs:      a.cfg.RobotArgs,
		DefaultTimeout: a.timeout,
	}
	sched := schedule.New(runner, schedule.Options{
		Workers:    int64(a.cfg.Workers),
		OnProgress: a.progressPrinter(),
	})

	report := sched.Run(ctx, schedule.Stages(runs))
	a.printSummary(report)

	switch {
	case report.Interrupted:
		return fmt.Errorf("execution interrupted")
	case !report.OK() || len(rejected) > 0:
		return fmt.Errorf("some suites failed or were rejected")
	default:
		return nil
	}
}

// Stats prints the selected statistics without executing anything.
func (a *App) Stats(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	runs, rejected := a.collect(ctx)
	a.printRejected(rejected)

	sel := a.cfg.Select
	if sel == "" {
		sel = "all"
	}
	if err := stats.Print(a.outW, stats.Collect(runs), sel); err != nil {
		return err
	}
	if len(rejected) > 0 {
		return fmt.Errorf("some suites were rejected")
	}
	return nil
}

func (a *App) printRejected(rejected []error) {
	if len(rejected) == 0 {
		return
	}
	fmt.Fprintln(a.errW, "Medusa Errors:")
	for _, err := range rejected {
		fmt.Fprintln(a.errW, " ", err)
	}
}

func (a *App) printSummary(report *schedule.Report) {
	for _, res := range report.Results {
		if !res.Res.OK() {
			fmt.Fprintf(a.outW, "FAIL %s (%s, exit %d)\n", res.Run.Name, res.Res.Outcome, res.Res.ExitCode)
		}
	}
	for _, r := range report.Blocked {
		fmt.Fprintf(a.outW, "BLOCKED %s (dependencies can never be satisfied)\n", r.Name)
	}
	for _, r := range report.Cancelled {
		fmt.Fprintf(a.outW, "CANCELLED %s\n", r.Name)
	}
	fmt.Fprintf(a.outW, "Results: %s\n", a.cfg.OutputDir)
}
