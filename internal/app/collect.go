package app

import (
	"context"

	"github.com/vk/medusa/internal/ctxlog"
	"github.com/vk/medusa/internal/errdefs"
	"github.com/vk/medusa/internal/meta"
	"github.com/vk/medusa/internal/robot"
	"github.com/vk/medusa/internal/suite"
)

// collect discovers, parses and expands all suites into runs, applying the
// configured filters. A broken suite is rejected with an error but does not
// stop collection of the others.
func (a *App) collect(ctx context.Context) ([]*suite.Run, []error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := robot.Discover(a.cfg.SuitePaths)
	if err != nil {
		return nil, []error{err}
	}
	logger.Debug("discovered suite files", "count", len(paths))

	var runs []*suite.Run
	var rejected []error

	for _, path := range paths {
		expanded, err := expandSuite(path)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		for _, r := range expanded {
			if a.filters.MatchAndNarrow(r) {
				runs = append(runs, r)
			} else {
				logger.Debug("run excluded by filter", "run", r.Name)
			}
		}
	}

	logger.Debug("suite collection finished", "runs", len(runs), "rejected", len(rejected))
	return runs, rejected
}

func expandSuite(path string) ([]*suite.Run, error) {
	file, err := robot.ParseFile(path)
	if err != nil {
		return nil, err
	}

	set, err := meta.Read(file.Metadata)
	if err != nil {
		return nil, &errdefs.SuiteError{Suite: path, Err: err}
	}

	var tags []string
	for _, t := range file.Tests {
		tags = append(tags, t.Tags...)
	}

	runs, err := suite.Expand(&suite.Source{
		Path:     file.Path,
		Name:     file.Name,
		Vars:     file.Vars,
		Meta:     set,
		NumTests: len(file.Tests),
		Tags:     tags,
	})
	if err != nil {
		return nil, &errdefs.SuiteError{Suite: path, Err: err}
	}
	return runs, nil
}
