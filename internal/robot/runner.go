package robot

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/medusa/internal/ctxlog"
	"github.com/vk/medusa/internal/proc"
	"github.com/vk/medusa/internal/suite"
)

// never disables a timer stage for runs without any timeout.
const never = time.Duration(math.MaxInt64)

// Runner launches one robot child process per admitted run and supervises
// it. It satisfies the scheduler's Dispatcher contract.
type Runner struct {
	// OutputDir is the root results directory; each run writes into
	// <OutputDir>/<stage>/<run name>/.
	OutputDir string
	// RobotArgs are the user's pass-through arguments for the robot tool.
	RobotArgs []string
	// DefaultTimeout applies to runs without their own medusa:timeout. Nil
	// leaves such runs unbounded.
	DefaultTimeout *suite.Timeout
}

// Dispatch launches the run and returns a channel delivering its result.
func (rn *Runner) Dispatch(ctx context.Context, r *suite.Run) <-chan proc.Result {
	ch := make(chan proc.Result, 1)
	go func() {
		ch <- rn.execute(ctx, r)
	}()
	return ch
}

func (rn *Runner) execute(ctx context.Context, r *suite.Run) proc.Result {
	logger := ctxlog.FromContext(ctx).With("run", r.Name)

	resultDir := filepath.Join(rn.OutputDir, r.Stage, r.Name)
	if err := os.MkdirAll(resultDir, 0o755); err != nil {
		return proc.Result{Err: err}
	}

	stdout, err := os.Create(filepath.Join(resultDir, "stdout.txt"))
	if err != nil {
		return proc.Result{Err: err}
	}
	defer stdout.Close()
	stderr, err := os.Create(filepath.Join(resultDir, "stderr.txt"))
	if err != nil {
		return proc.Result{Err: err}
	}
	defer stderr.Close()

	argv := Command(r, resultDir, rn.RobotArgs)
	logger.Debug("launching child", "argv", argv)

	child, err := proc.StartChild(argv, stdout, stderr)
	if err != nil {
		return proc.Result{Err: err}
	}

	soft, hard, kill := never, never, never
	if t := rn.timeoutFor(r); t != nil {
		soft, hard, kill = t.Soft, t.Hard, t.Kill
	}
	return proc.Supervise(ctx, child, soft, hard, kill)
}

func (rn *Runner) timeoutFor(r *suite.Run) *suite.Timeout {
	if r.Timeout != nil {
		return r.Timeout
	}
	return rn.DefaultTimeout
}
