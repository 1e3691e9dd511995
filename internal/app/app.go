// Package app wires the pipeline together: suite discovery and parsing,
// metadata expansion, filtering, scheduling and reporting.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/medusa/internal/filter"
	"github.com/vk/medusa/internal/suite"
)

// Config holds everything an App instance needs, merged from the config
// file and the command line.
type Config struct {
	// OutputDir receives the per-run result directories and the log file.
	// It must not exist yet.
	OutputDir string
	// Filters restrict which runs execute; see the filter package.
	Filters []string
	// Timeout is the default T_SOFT[,T_HARD[,T_KILL]] for runs without
	// their own medusa:timeout. Empty leaves them unbounded.
	Timeout string
	// Workers caps concurrently executing runs; zero means no cap.
	Workers int
	// Select chooses the stats sections to print.
	Select string

	LogLevel  string
	LogFormat string

	// SuitePaths are the files and directories to search for suites.
	SuitePaths []string
	// RobotArgs are passed through to every robot child process.
	RobotArgs []string
}

// App is one configured medusa instance with its own logger.
type App struct {
	outW    io.Writer
	errW    io.Writer
	logger  *slog.Logger
	verbose bool
	cfg     Config
	filters *filter.Filters
	timeout *suite.Timeout
}

// New validates the configuration and builds the App.
func New(outW, errW io.Writer, cfg Config) (*App, error) {
	filters, err := filter.New(cfg.Filters)
	if err != nil {
		return nil, err
	}

	var timeout *suite.Timeout
	if cfg.Timeout != "" {
		timeout, err = suite.ParseTimeout(cfg.Timeout)
		if err != nil {
			return nil, err
		}
	}

	if len(cfg.SuitePaths) == 0 {
		return nil, fmt.Errorf("no suite files or directories given")
	}

	return &App{
		outW:    outW,
		errW:    errW,
		logger:  newLogger(cfg.LogLevel, cfg.LogFormat, errW),
		verbose: cfg.LogLevel == "debug",
		cfg:     cfg,
		filters: filters,
		timeout: timeout,
	}, nil
}
