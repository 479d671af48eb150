package coordinator

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final for a run.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	}
	return false
}

// Log levels accepted from the external service.
const (
	LevelDebug   = "debug"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

func validLevel(level string) bool {
	switch level {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
		return true
	}
	return false
}

// LogEvent is a single log line delivered by the external execution service.
type LogEvent struct {
	Timestamp time.Time
	Level     string
	Message   string
	Source    string
	Step      string
}

// ProgressEvent reports run progress as a percentage and the current step.
type ProgressEvent struct {
	Percent int
	Step    string
}

// LogEntry is a stored log line: a LogEvent with a stable id assigned on
// append.
type LogEntry struct {
	ID        string
	Timestamp time.Time
	Level     string
	Message   string
	Source    string
	Step      string
}

// Metrics summarizes a run's progress accounting.
type Metrics struct {
	TotalSteps      int
	CompletedSteps  int
	ExecutionTimeMs int64
}

// State is the observable execution state of a run. Logs are append-only and
// never reordered; once Status is terminal the state no longer changes.
type State struct {
	Status      Status
	Progress    int
	CurrentStep string
	Logs        []LogEntry
	Error       string
	Metrics     Metrics
}
