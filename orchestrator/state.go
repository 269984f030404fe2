package orchestrator

import (
	"fmt"
	"sync"
	"time"
)

// State is the phase the runner is currently in.
type State string

const (
	StateIdle          State = "idle"
	StateIngesting     State = "ingesting"
	StateDeduplicating State = "deduplicating"
	StatePublishing    State = "publishing"
	StateArchiving     State = "archiving"
	StateError         State = "error"
)

const maxLogEntries = 50

// LogEntry is one line of the runner's recent activity.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Status is a point-in-time snapshot of the runner.
type Status struct {
	State     State      `json:"state"`
	Since     time.Time  `json:"since"`
	LastRunID string     `json:"last_run_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	Logs      []LogEntry `json:"logs"`
}

// tracker records phase transitions and keeps the last maxLogEntries messages.
type tracker struct {
	mu      sync.RWMutex
	state   State
	since   time.Time
	lastRun string
	lastErr error
	logs    []LogEntry
	now     func() time.Time
}

func newTracker() *tracker {
	return &tracker{state: StateIdle, since: time.Now(), now: time.Now}
}

func (t *tracker) set(state State, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.since = t.now()
	if state != StateError {
		t.lastErr = nil
	}
	if message != "" {
		t.appendLocked(message)
	}
}

func (t *tracker) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateError
	t.since = t.now()
	t.lastErr = err
	t.appendLocked(fmt.Sprintf("Error: %v", err))
}

func (t *tracker) finish(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateIdle
	t.since = t.now()
	t.lastRun = runID
	t.appendLocked("pass " + runID + " complete")
}

// appendLocked must be called with mu held.
func (t *tracker) appendLocked(message string) {
	t.logs = append(t.logs, LogEntry{Timestamp: t.now(), Message: message})
	if len(t.logs) > maxLogEntries {
		t.logs = t.logs[len(t.logs)-maxLogEntries:]
	}
}

func (t *tracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Status{
		State:     t.state,
		Since:     t.since,
		LastRunID: t.lastRun,
		Logs:      append([]LogEntry{}, t.logs...),
	}
	if t.lastErr != nil {
		s.Error = t.lastErr.Error()
	}
	return s
}
