package schedule

import (
	"context"
	"slices"
	"time"

	"github.com/vk/medusa/internal/ctxlog"
	"github.com/vk/medusa/internal/proc"
	"github.com/vk/medusa/internal/suite"
	"golang.org/x/sync/semaphore"
)

// Dispatcher launches the child process for an admitted run. The returned
// channel delivers exactly one result when the child has terminated.
type Dispatcher interface {
	Dispatch(ctx context.Context, r *suite.Run) <-chan proc.Result
}

// Progress is a snapshot of one stage's counters, emitted on every change.
type Progress struct {
	Stage    string
	Pending  int
	Running  int
	Finished int
}

// Options configure a Scheduler.
type Options struct {
	// Workers caps the number of concurrently executing runs on top of
	// dependency admission. Zero means no cap.
	Workers int64
	// OnProgress, when set, receives stage counters after every admission
	// and termination. It is called from the coordinator goroutine.
	OnProgress func(Progress)
}

// Scheduler executes stages one at a time, admitting runs greedily in queue
// order whenever their effective dependencies are disjoint from the
// currently held set.
type Scheduler struct {
	dispatcher Dispatcher
	opts       Options
	workers    *semaphore.Weighted
}

// New builds a Scheduler around the given dispatcher.
func New(d Dispatcher, opts Options) *Scheduler {
	s := &Scheduler{dispatcher: d, opts: opts}
	if opts.Workers > 0 {
		s.workers = semaphore.NewWeighted(opts.Workers)
	}
	return s
}

// Run executes all stages in order. A cancelled context stops further
// admissions; in-flight runs are escalated by their supervisors and awaited
// before Run returns.
func (s *Scheduler) Run(ctx context.Context, stages []*Stage) *Report {
	logger := ctxlog.FromContext(ctx)
	report := &Report{}

	for _, stage := range stages {
		if ctx.Err() != nil {
			report.Interrupted = true
			report.Cancelled = append(report.Cancelled, stage.Runs...)
			continue
		}
		start := time.Now()
		logger.Info("starting stage", "stage", stage.Name, "runs", len(stage.Runs))
		s.runStage(ctx, stage, report)
		logger.Info("finished stage", "stage", stage.Name, "duration", time.Since(start).Round(time.Second))
	}

	if ctx.Err() != nil {
		report.Interrupted = true
	}
	return report
}

type termination struct {
	run *suite.Run
	res proc.Result
}

// runStage drains one stage. The coordinator suspends in exactly one place:
// waiting for any in-flight run to terminate. All admission logic between
// terminations runs without suspending.
func (s *Scheduler) runStage(ctx context.Context, stage *Stage, report *Report) {
	logger := ctxlog.FromContext(ctx)

	held := make(map[string]struct{})
	queue := slices.Clone(stage.Runs)
	results := make(chan termination)
	inFlight := 0
	finished := 0

	progress := func() {
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(Progress{
				Stage:    stage.Name,
				Pending:  len(queue),
				Running:  inFlight,
				Finished: finished,
			})
		}
	}
	progress()

	for len(queue) > 0 || inFlight > 0 {
		// Admit head-most admissible runs until the stage blocks.
		for ctx.Err() == nil && len(queue) > 0 {
			if s.workers != nil && !s.workers.TryAcquire(1) {
				break
			}
			idx, chosen := findAdmissible(queue, held)
			if idx < 0 {
				if s.workers != nil {
					s.workers.Release(1)
				}
				break
			}

			run := queue[idx]
			queue = slices.Delete(queue, idx, idx+1)
			run.BindDynamic(chosen)
			for _, dep := range run.EffectiveDeps() {
				held[dep] = struct{}{}
			}
			run.Status = suite.Dispatched
			logger.Info("starting run", "run", run.Name, "deps", run.EffectiveDeps())

			ch := s.dispatcher.Dispatch(ctx, run)
			inFlight++
			go func(r *suite.Run, ch <-chan proc.Result) {
				results <- termination{run: r, res: <-ch}
			}(run, ch)
			progress()
		}

		if inFlight == 0 {
			// Nothing is running and nothing can be admitted: the
			// remaining queue can never be satisfied (or admission was
			// cancelled). Handled below.
			break
		}

		t := <-results
		inFlight--
		finished++
		if s.workers != nil {
			s.workers.Release(1)
		}
		t.run.Status = suite.Terminated
		for _, dep := range t.run.EffectiveDeps() {
			delete(held, dep)
		}
		logger.Info("finished run", "run", t.run.Name,
			"outcome", t.res.Outcome.String(), "duration", t.res.Duration.Round(time.Second))
		report.Results = append(report.Results, RunResult{Run: t.run, Res: t.res})
		progress()
	}

	for _, r := range queue {
		if ctx.Err() != nil {
			report.Cancelled = append(report.Cancelled, r)
		} else {
			logger.Error("run can never be admitted, its dynamic options conflict with its own deps", "run", r.Name)
			report.Blocked = append(report.Blocked, r)
		}
	}
}

// findAdmissible scans the queue in order and returns the index of the
// first admissible run together with its chosen dynamic values. A run is
// admissible when its static deps are disjoint from held and every dynamic
// choice still has a free option; choices are bound greedily to the first
// free option in declared order, earlier choices of the same run counting
// as taken.
func findAdmissible(queue []*suite.Run, held map[string]struct{}) (int, []string) {
	for i, run := range queue {
		if chosen, ok := tryBind(run, held); ok {
			return i, chosen
		}
	}
	return -1, nil
}

func tryBind(run *suite.Run, held map[string]struct{}) ([]string, bool) {
	for _, dep := range run.Deps.Static {
		if _, taken := held[dep]; taken {
			return nil, false
		}
	}

	work := make(map[string]struct{}, len(held)+len(run.Deps.Static))
	for dep := range held {
		work[dep] = struct{}{}
	}
	for _, dep := range run.Deps.Static {
		work[dep] = struct{}{}
	}

	chosen := make([]string, 0, len(run.Deps.Dynamic))
	for _, choice := range run.Deps.Dynamic {
		picked := ""
		for _, opt := range choice.Options {
			if _, taken := work[opt]; !taken {
				picked = opt
				break
			}
		}
		if picked == "" {
			return nil, false
		}
		work[picked] = struct{}{}
		chosen = append(chosen, picked)
	}
	return chosen, true
}
