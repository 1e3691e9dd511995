package proc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcess simulates a child that exits on its own after a delay, or
// once it has received a given number of interrupts.
type fakeProcess struct {
	mu              sync.Mutex
	interrupts      int
	killed          bool
	exitOnInterrupt int // 0 means interrupts are ignored
	waitErr         error

	exitOnce sync.Once
	done     chan struct{}
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan struct{})}
}

func (p *fakeProcess) exitAfter(d time.Duration) *fakeProcess {
	go func() {
		time.Sleep(d)
		p.exit()
	}()
	return p
}

func (p *fakeProcess) exit() {
	p.exitOnce.Do(func() { close(p.done) })
}

func (p *fakeProcess) Interrupt() error {
	p.mu.Lock()
	p.interrupts++
	n := p.interrupts
	target := p.exitOnInterrupt
	p.mu.Unlock()
	if target > 0 && n >= target {
		p.exit()
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit()
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.done
	return p.waitErr
}

func (p *fakeProcess) interruptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interrupts
}

const tick = 25 * time.Millisecond

func TestSupervise_CleanExit(t *testing.T) {
	p := newFakeProcess().exitAfter(tick)

	res := Supervise(context.Background(), p, 10*tick, 20*tick, 10*tick)

	assert.Equal(t, ExitedClean, res.Outcome)
	assert.Equal(t, 0, res.ExitCode)
	assert.NoError(t, res.Err)
	assert.Zero(t, p.interruptCount())
	assert.True(t, res.OK())
}

func TestSupervise_ExitAfterSoft(t *testing.T) {
	// The child honors the first interrupt and tears down.
	p := newFakeProcess()
	p.exitOnInterrupt = 1

	res := Supervise(context.Background(), p, tick, 20*tick, 10*tick)

	assert.Equal(t, ExitedAfterSoft, res.Outcome)
	assert.Equal(t, 1, p.interruptCount())
	assert.GreaterOrEqual(t, res.Duration, tick)
	assert.False(t, res.OK())
}

func TestSupervise_KilledAtHard(t *testing.T) {
	// The child ignores the soft interrupt but yields to the second one.
	p := newFakeProcess()
	p.exitOnInterrupt = 2

	res := Supervise(context.Background(), p, tick, 2*tick, 20*tick)

	assert.Equal(t, KilledAtHard, res.Outcome)
	assert.Equal(t, 2, p.interruptCount())
	assert.False(t, p.killed)
}

func TestSupervise_KilledAtKill(t *testing.T) {
	// The child ignores interrupts entirely; only SIGKILL ends it.
	p := newFakeProcess()

	res := Supervise(context.Background(), p, tick, 2*tick, 2*tick)

	assert.Equal(t, KilledAtKill, res.Outcome)
	assert.Equal(t, 2, p.interruptCount())
	assert.True(t, p.killed)
	assert.GreaterOrEqual(t, res.Duration, 4*tick)
}

func TestSupervise_SoftEqualsHardCollapses(t *testing.T) {
	// With soft = hard the child receives both interrupts at the soft mark
	// and the exit counts as a hard termination.
	p := newFakeProcess()
	p.exitOnInterrupt = 2

	res := Supervise(context.Background(), p, tick, tick, 20*tick)

	assert.Equal(t, KilledAtHard, res.Outcome)
	assert.Equal(t, 2, p.interruptCount())
	assert.Less(t, res.Duration, 10*tick)
}

func TestSupervise_CancelTriggersHardPath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newFakeProcess()
	p.exitOnInterrupt = 2

	go func() {
		time.Sleep(tick)
		cancel()
	}()
	res := Supervise(ctx, p, 100*tick, 200*tick, 10*tick)

	assert.Equal(t, KilledAtHard, res.Outcome)
	assert.Equal(t, 2, p.interruptCount())
	assert.Less(t, res.Duration, 50*tick)
}

func TestSupervise_CancelFallsThroughToKill(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newFakeProcess()

	res := Supervise(ctx, p, 100*tick, 200*tick, tick)

	assert.Equal(t, KilledAtKill, res.Outcome)
	assert.True(t, p.killed)
}

func TestSupervise_NonExitWaitError(t *testing.T) {
	p := newFakeProcess()
	p.waitErr = errors.New("wait failed")
	p.exitAfter(tick)

	res := Supervise(context.Background(), p, 10*tick, 20*tick, 10*tick)

	require.Error(t, res.Err)
	assert.Equal(t, -1, res.ExitCode)
	assert.False(t, res.OK())
}
