package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowforge/internal/workflow"
)

type fakeRunner struct {
	mu       sync.Mutex
	sink     EventSink
	executes int
	stops    []Handle
	startErr error
	stopErr  error
}

func (f *fakeRunner) Execute(ctx context.Context, g *workflow.Graph, sink EventSink) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executes++
	if f.startErr != nil {
		return "", f.startErr
	}
	f.sink = sink
	return "run-1", nil
}

func (f *fakeRunner) Stop(ctx context.Context, handle Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, handle)
	return f.stopErr
}

func testGraph(t *testing.T) *workflow.Graph {
	t.Helper()
	g := workflow.NewGraph()
	p := g.AddNode(workflow.Node{
		ID:   workflow.CatalogNodeID(workflow.KindProblem, workflow.CatalogRef{Owner: "alice", Name: "tsp"}),
		Kind: workflow.KindProblem,
	})
	o := g.AddNode(workflow.Node{
		ID:   workflow.CatalogNodeID(workflow.KindOptimizer, workflow.CatalogRef{Owner: "alice", Name: "annealer"}),
		Kind: workflow.KindOptimizer,
	})
	_, err := g.AddEdge(p.ID, o.ID)
	require.NoError(t, err)
	return g
}

func TestExecuteTransitionsToRunning(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	assert.Equal(t, StatusIdle, c.State().Status)

	handle, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)
	assert.Equal(t, Handle("run-1"), handle)

	st := c.State()
	assert.Equal(t, StatusRunning, st.Status)
	assert.Equal(t, 0, st.Progress)
	assert.Empty(t, st.Logs)
	// Two node loads plus one execution.
	assert.Equal(t, 3, st.Metrics.TotalSteps)
}

func TestExecuteWhileRunningIsNoOp(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	before := c.State()
	_, err = c.Execute(context.Background(), testGraph(t))
	require.ErrorIs(t, err, ErrRunInProgress)

	assert.Equal(t, 1, runner.executes, "no duplicate run started")
	assert.Equal(t, before.Status, c.State().Status)
}

func TestExecuteResetsPriorRunState(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Log(LogEvent{Level: LevelInfo, Message: "old run", Source: "remote"})
	runner.sink.Finished(nil)
	require.Equal(t, StatusCompleted, c.State().Status)

	_, err = c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	st := c.State()
	assert.Equal(t, StatusRunning, st.Status)
	assert.Equal(t, 0, st.Progress)
	assert.Empty(t, st.Logs, "logs reset on a new run")
	assert.Empty(t, st.Error)
}

func TestLogEventsAppendInOrder(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Log(LogEvent{Level: LevelInfo, Message: "first", Source: "remote"})
	runner.sink.Log(LogEvent{Level: LevelDebug, Message: "second", Source: "remote", Step: "load"})

	st := c.State()
	require.Len(t, st.Logs, 2)
	assert.Equal(t, "first", st.Logs[0].Message)
	assert.Equal(t, "second", st.Logs[1].Message)
	assert.NotEmpty(t, st.Logs[0].ID)
	assert.NotEqual(t, st.Logs[0].ID, st.Logs[1].ID)
	assert.False(t, st.Logs[0].Timestamp.IsZero())
}

func TestMalformedLogEventBecomesWarning(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Log(LogEvent{Level: "shout", Message: "??"})
	runner.sink.Log(LogEvent{Level: LevelInfo, Message: ""})

	st := c.State()
	require.Len(t, st.Logs, 2)
	for _, entry := range st.Logs {
		assert.Equal(t, LevelWarning, entry.Level)
		assert.Contains(t, entry.Message, "malformed")
	}
	assert.Equal(t, StatusRunning, st.Status, "malformed events never crash the run")
}

func TestProgressIsMonotonic(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Progress(ProgressEvent{Percent: 40, Step: "load-problem"})
	runner.sink.Progress(ProgressEvent{Percent: 25, Step: "load-problem"})

	st := c.State()
	assert.Equal(t, 40, st.Progress, "regressing percentages are ignored")
	assert.Equal(t, "load-problem", st.CurrentStep)
}

func TestProgressOutOfRangeBecomesWarning(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Progress(ProgressEvent{Percent: 140, Step: "load"})

	st := c.State()
	assert.Equal(t, 0, st.Progress)
	require.Len(t, st.Logs, 1)
	assert.Equal(t, LevelWarning, st.Logs[0].Level)
}

func TestStepChangeAdvancesCompletedSteps(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Progress(ProgressEvent{Percent: 10, Step: "load-problem"})
	runner.sink.Progress(ProgressEvent{Percent: 50, Step: "load-optimizer"})
	runner.sink.Progress(ProgressEvent{Percent: 80, Step: "execute"})

	st := c.State()
	assert.Equal(t, 2, st.Metrics.CompletedSteps)
	assert.Equal(t, "execute", st.CurrentStep)
}

func TestFinishedSuccess(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Finished(nil)

	st := c.State()
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, st.Metrics.TotalSteps, st.Metrics.CompletedSteps)

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed after terminal state")
	}
}

func TestFinishedErrorIsCaptured(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Finished(errors.New("solver exploded"))

	st := c.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "solver exploded", st.Error)
	require.NotEmpty(t, st.Logs)
	final := st.Logs[len(st.Logs)-1]
	assert.Equal(t, LevelError, final.Level)
	assert.Equal(t, "solver exploded", final.Message)
}

func TestTerminalStateIsFrozen(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Finished(nil)
	before := c.State()

	// Late events from the remote side must not thaw the state.
	runner.sink.Log(LogEvent{Level: LevelInfo, Message: "late", Source: "remote"})
	runner.sink.Progress(ProgressEvent{Percent: 50})
	runner.sink.Finished(errors.New("late failure"))

	after := c.State()
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Error, after.Error)
	assert.Len(t, after.Logs, len(before.Logs))
}

func TestStopCancelsRunningRun(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	require.NoError(t, c.Stop(context.Background()))

	st := c.State()
	assert.Equal(t, StatusCancelled, st.Status)
	assert.Equal(t, []Handle{"run-1"}, runner.stops)
}

func TestStopAfterCompletedKeepsCompleted(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)
	runner.sink.Finished(nil)

	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, StatusCompleted, c.State().Status)
	assert.Empty(t, runner.stops, "stop is a no-op once the run is terminal")
}

func TestStopWhileIdleIsNoOp(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, StatusIdle, c.State().Status)
	assert.Empty(t, runner.stops)
}

func TestStopErrorStillCancelsLocally(t *testing.T) {
	runner := &fakeRunner{stopErr: errors.New("unreachable")}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	err = c.Stop(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusCancelled, c.State().Status)
}

func TestExecuteStartFailure(t *testing.T) {
	runner := &fakeRunner{startErr: errors.New("connection refused")}
	c := New(runner)

	_, err := c.Execute(context.Background(), testGraph(t))
	require.Error(t, err)

	st := c.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Contains(t, st.Error, "connection refused")

	// The coordinator is free for another attempt.
	runner.startErr = nil
	_, err = c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, c.State().Status)
}

func TestNotifyMirrorsEntries(t *testing.T) {
	runner := &fakeRunner{}
	var mu sync.Mutex
	var seen []string
	c := New(runner, WithNotify(func(e LogEntry) {
		mu.Lock()
		seen = append(seen, e.Message)
		mu.Unlock()
	}))
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	runner.sink.Log(LogEvent{Level: LevelInfo, Message: "hello", Source: "remote"})
	runner.sink.Finished(nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"hello", "run completed"}, seen)
}

func TestConcurrentEventDelivery(t *testing.T) {
	runner := &fakeRunner{}
	c := New(runner)
	_, err := c.Execute(context.Background(), testGraph(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			runner.sink.Log(LogEvent{Level: LevelInfo, Message: "tick", Source: "remote"})
		}()
		go func() {
			defer wg.Done()
			runner.sink.Progress(ProgressEvent{Percent: 50, Step: "execute"})
		}()
	}
	wg.Wait()
	runner.sink.Finished(nil)

	st := c.State()
	assert.Equal(t, StatusCompleted, st.Status)
	// 20 ticks plus the completion entry.
	assert.Len(t, st.Logs, 21)
}
