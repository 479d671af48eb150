// Package coordinator tracks a single remote optimization run: it wraps the
// external execute/stop contract behind a small state machine and multiplexes
// the asynchronous log and progress events into an ordered, append-only
// execution state.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/flowforge/internal/ctxlog"
	"github.com/vk/flowforge/internal/workflow"
)

// ErrRunInProgress is returned by Execute while a run is already active; the
// call is a no-op in that case.
var ErrRunInProgress = errors.New("a run is already in progress")

// Handle identifies a run on the external execution service.
type Handle string

// EventSink receives the asynchronous events the external service delivers
// for an active run. The coordinator implements it; all methods tolerate
// interleaved concurrent delivery and never panic out.
type EventSink interface {
	Log(LogEvent)
	Progress(ProgressEvent)
	Finished(err error)
}

// Runner is the external execute/stop contract. Execute must not block for
// the duration of the run: it starts the run remotely and returns a handle,
// then feeds events to the sink from its own goroutines. Stop is cooperative
// and best-effort.
type Runner interface {
	Execute(ctx context.Context, g *workflow.Graph, sink EventSink) (Handle, error)
	Stop(ctx context.Context, handle Handle) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNotify registers a callback invoked for every appended log entry, used
// by the CLI to mirror run logs to the console. The callback runs outside the
// coordinator's lock.
func WithNotify(fn func(LogEntry)) Option {
	return func(c *Coordinator) { c.notify = fn }
}

// Coordinator is the stateful owner of one run at a time. The state machine
// is idle -> running -> {completed | error | cancelled}; terminal transitions
// are idempotent and first-wins, and the state is immutable once terminal.
type Coordinator struct {
	runner Runner
	notify func(LogEntry)

	mu        sync.Mutex
	state     State
	handle    Handle
	startedAt time.Time
	done      chan struct{}
}

// New creates a coordinator in the idle state.
func New(runner Runner, opts ...Option) *Coordinator {
	done := make(chan struct{})
	close(done)
	c := &Coordinator{
		runner: runner,
		state:  State{Status: StatusIdle},
		done:   done,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute starts a run over a snapshot of the given graph. It is rejected
// while a run is active, resets all run state otherwise, and returns the
// external handle without waiting for the run to make progress.
func (c *Coordinator) Execute(ctx context.Context, g *workflow.Graph) (Handle, error) {
	logger := ctxlog.FromContext(ctx)

	c.mu.Lock()
	if c.state.Status == StatusRunning {
		c.mu.Unlock()
		logger.Warn("Execute rejected: a run is already in progress.")
		return "", ErrRunInProgress
	}

	snapshot := g.Clone()
	c.state = State{
		Status:  StatusRunning,
		Metrics: Metrics{TotalSteps: plannedSteps(snapshot)},
	}
	c.startedAt = time.Now()
	c.done = make(chan struct{})
	c.mu.Unlock()

	logger.Info("Starting remote run.", "total_steps", plannedSteps(snapshot))

	handle, err := c.runner.Execute(ctx, snapshot, c)
	if err != nil {
		c.Finished(fmt.Errorf("failed to start run: %w", err))
		return "", err
	}

	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()
	logger.Debug("Remote run started.", "handle", string(handle))
	return handle, nil
}

// Stop requests cancellation of the active run. The local state transitions
// to cancelled only if the run is still running when the stop is processed;
// a terminal state reached concurrently wins. Calling Stop with no active
// run is a no-op.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Status != StatusRunning {
		c.mu.Unlock()
		return nil
	}
	handle := c.handle
	c.mu.Unlock()

	err := c.runner.Stop(ctx, handle)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Stop request failed; cancelling locally.", "error", err)
	}

	c.mu.Lock()
	var entry *LogEntry
	if c.state.Status == StatusRunning {
		entry = c.terminateLocked(StatusCancelled, "")
	}
	c.mu.Unlock()
	c.emit(entry)
	return err
}

// Done returns a channel closed when the current run reaches a terminal
// state. Before any run has started the channel is already closed.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Handle returns the external handle of the current or most recent run.
func (c *Coordinator) Handle() Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Log appends a log event to the run. Malformed events (empty message or
// unknown level) are downgraded to a warning entry instead of crashing the
// run; events arriving after a terminal state are discarded.
func (c *Coordinator) Log(ev LogEvent) {
	c.mu.Lock()
	if c.state.Status != StatusRunning {
		c.mu.Unlock()
		return
	}
	var entry LogEntry
	if ev.Message == "" || !validLevel(ev.Level) {
		entry = c.appendLocked(LogEvent{
			Timestamp: ev.Timestamp,
			Level:     LevelWarning,
			Message:   fmt.Sprintf("discarded malformed log event (level %q)", ev.Level),
			Source:    "coordinator",
		})
	} else {
		entry = c.appendLocked(ev)
	}
	c.mu.Unlock()
	c.emit(&entry)
}

// Progress updates the progress slot. Progress is monotonic: a percentage
// lower than the current one is ignored, and out-of-range values are
// downgraded to a warning entry. A step-name change marks the previous step
// completed.
func (c *Coordinator) Progress(ev ProgressEvent) {
	c.mu.Lock()
	if c.state.Status != StatusRunning {
		c.mu.Unlock()
		return
	}
	if ev.Percent < 0 || ev.Percent > 100 {
		entry := c.appendLocked(LogEvent{
			Level:   LevelWarning,
			Message: fmt.Sprintf("discarded out-of-range progress event (%d%%)", ev.Percent),
			Source:  "coordinator",
		})
		c.mu.Unlock()
		c.emit(&entry)
		return
	}
	if ev.Percent > c.state.Progress {
		c.state.Progress = ev.Percent
	}
	if ev.Step != "" && ev.Step != c.state.CurrentStep {
		if c.state.CurrentStep != "" {
			c.state.Metrics.CompletedSteps++
		}
		c.state.CurrentStep = ev.Step
	}
	c.mu.Unlock()
}

// Finished moves the run to its terminal state: completed on a nil error,
// error otherwise. The first terminal transition wins; later calls are
// no-ops.
func (c *Coordinator) Finished(err error) {
	c.mu.Lock()
	var entry *LogEntry
	if c.state.Status == StatusRunning {
		if err == nil {
			c.state.Progress = 100
			c.state.Metrics.CompletedSteps = c.state.Metrics.TotalSteps
			entry = c.terminateLocked(StatusCompleted, "")
		} else {
			entry = c.terminateLocked(StatusError, err.Error())
		}
	}
	c.mu.Unlock()
	c.emit(entry)
}

// State returns a copy of the current execution state; the logs slice is
// cloned so callers can hold it across further updates.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.state
	out.Logs = append([]LogEntry(nil), c.state.Logs...)
	return out
}

// terminateLocked applies a terminal transition. Caller holds the lock and
// has verified the run is still running.
func (c *Coordinator) terminateLocked(status Status, errMsg string) *LogEntry {
	c.state.Status = status
	c.state.Error = errMsg
	c.state.Metrics.ExecutionTimeMs = time.Since(c.startedAt).Milliseconds()

	var entry LogEntry
	switch status {
	case StatusError:
		entry = c.appendLocked(LogEvent{Level: LevelError, Message: errMsg, Source: "coordinator"})
	case StatusCancelled:
		entry = c.appendLocked(LogEvent{Level: LevelInfo, Message: "run cancelled", Source: "coordinator"})
	case StatusCompleted:
		entry = c.appendLocked(LogEvent{Level: LevelInfo, Message: "run completed", Source: "coordinator"})
	}
	close(c.done)
	return &entry
}

// appendLocked appends a log entry, filling in the id and a timestamp when
// the event carries none. Caller holds the lock.
func (c *Coordinator) appendLocked(ev LogEvent) LogEntry {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := LogEntry{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Level:     ev.Level,
		Message:   ev.Message,
		Source:    ev.Source,
		Step:      ev.Step,
	}
	c.state.Logs = append(c.state.Logs, entry)
	return entry
}

func (c *Coordinator) emit(entry *LogEntry) {
	if entry != nil && c.notify != nil {
		c.notify(*entry)
	}
}

// plannedSteps counts the work items of a run: every node load plus one
// execution per problem->optimizer edge.
func plannedSteps(g *workflow.Graph) int {
	steps := len(g.Nodes())
	for _, e := range g.Edges() {
		src, ok := g.Node(e.Source)
		if !ok || src.Kind != workflow.KindProblem {
			continue
		}
		if dst, ok := g.Node(e.Target); ok && dst.Kind == workflow.KindOptimizer {
			steps++
		}
	}
	return steps
}
