// Package cli defines the medusa command line: the run and stats
// subcommands, their flags, and the merge of config-file defaults with
// explicit flags.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/medusa/internal/app"
	"github.com/vk/medusa/internal/config"
)

// Version is stamped by the release build.
var Version = "dev"

// ExitError carries a specific process exit code up to main.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

type options struct {
	configPath string
	logLevel   string
	logFormat  string

	outputDir string
	filters   []string
	timeout   string
	workers   int
	sel       string
}

// Execute parses args and runs the selected subcommand. Output meant for
// the user goes to outW, logs and errors to errW.
func Execute(ctx context.Context, outW, errW io.Writer, args []string) error {
	opts := &options{}

	root := &cobra.Command{
		Use:           "medusa",
		Short:         "Run Robot Framework suites with dependency-aware parallelization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetArgs(args)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to a medusa.hcl config file.")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: 'debug', 'info', 'warn' or 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: 'text' or 'json'.")

	runCmd := &cobra.Command{
		Use:   "run [flags] SUITES... [-- ROBOT_OPTIONS...]",
		Short: "Run the given robot suites",
		Long: "Run the given robot suites. Suites in the same stage execute in\n" +
			"parallel as long as their declared dependencies do not collide.\n" +
			"Arguments after '--' are forwarded to every robot child process.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, args, outW, errW)
			if err != nil {
				return err
			}
			if err := a.Run(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			return nil
		},
	}
	runCmd.Flags().StringVarP(&opts.outputDir, "outputdir", "d", "",
		"Store results in this directory, which must not already exist.")
	runCmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil,
		"Only process suites matching the filter, e.g. 'stage=first' or 'deps~one,!two'. Repeatable.")
	runCmd.Flags().StringVarP(&opts.timeout, "timeout", "t", "",
		"Default timeout per suite as T_SOFT[,T_HARD[,T_KILL]] in seconds.")
	runCmd.Flags().IntVar(&opts.workers, "workers", 0,
		"Maximum number of concurrently running suites. 0 is unlimited.")

	statsCmd := &cobra.Command{
		Use:   "stats [flags] SUITES...",
		Short: "Display information about the given robot suites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, args, outW, errW)
			if err != nil {
				return err
			}
			if err := a.Stats(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			return nil
		},
	}
	statsCmd.Flags().StringVarP(&opts.sel, "select", "s", "all",
		"Comma-separated selection of stats: all, deps, dynamic, static, stages, suites, tags, totals.")
	statsCmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil,
		"Only process suites matching the filter. Repeatable.")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show the medusa version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
			return nil
		},
	}

	root.AddCommand(runCmd, statsCmd, versionCmd)
	return root.ExecuteContext(ctx)
}

// newApp merges config-file defaults with the parsed flags and builds the
// App. Explicit flags win over file values.
func newApp(cmd *cobra.Command, opts *options, args []string, outW, errW io.Writer) (*app.App, error) {
	file, err := config.LoadIfPresent(opts.configPath)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := app.Config{
		OutputDir: opts.outputDir,
		Filters:   opts.filters,
		Timeout:   opts.timeout,
		Workers:   opts.workers,
		Select:    opts.sel,
		LogLevel:  opts.logLevel,
		LogFormat: opts.logFormat,
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = file.OutputDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir()
	}
	if cfg.Timeout == "" {
		cfg.Timeout = file.Timeout
	}
	if cfg.Workers == 0 {
		cfg.Workers = file.Workers
	}
	if len(cfg.Filters) == 0 {
		cfg.Filters = file.Filters
	}
	if file.Log != nil {
		if cfg.LogLevel == "" {
			cfg.LogLevel = file.Log.Level
		}
		if cfg.LogFormat == "" {
			cfg.LogFormat = file.Log.Format
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn' or 'error'"}
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	// Arguments after '--' belong to robot, everything before names suites.
	cfg.SuitePaths = args
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		cfg.SuitePaths = args[:at]
		cfg.RobotArgs = args[at:]
	}
	if len(cfg.SuitePaths) == 0 {
		return nil, &ExitError{Code: 2, Message: "no suite paths given before '--'"}
	}

	a, err := app.New(outW, errW, cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return a, nil
}

func defaultOutputDir() string {
	return fmt.Sprintf("results/%s", time.Now().Format("2006-01-02_150405"))
}
