package usecase

import (
	"sync"
	"time"
)

// PipelineState is the lifecycle state of the batch pipeline.
type PipelineState string

const (
	PipelineIdle    PipelineState = "idle"
	PipelineRunning PipelineState = "running"
	PipelineDone    PipelineState = "done"
	PipelineError   PipelineState = "error"
)

// PipelineStatus is a point-in-time snapshot of the coordinator.
type PipelineStatus struct {
	State        PipelineState `json:"state"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	PapersStored int           `json:"papers_stored"`
	UsersServed  int           `json:"users_served"`
	LastError    string        `json:"last_error,omitempty"`
}

// StatusCoordinator owns the pipeline's run state. A concurrent start
// while a run is in flight is rejected so invocations coalesce instead of
// double-running.
type StatusCoordinator struct {
	mu     sync.Mutex
	status PipelineStatus
}

func NewStatusCoordinator() *StatusCoordinator {
	return &StatusCoordinator{status: PipelineStatus{State: PipelineIdle}}
}

// TryStart transitions to running. Returns false when a run is already in
// flight.
func (c *StatusCoordinator) TryStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.State == PipelineRunning {
		return false
	}
	now := time.Now().UTC()
	c.status = PipelineStatus{State: PipelineRunning, StartedAt: &now}
	return true
}

// Finish records the outcome of the run that TryStart admitted.
func (c *StatusCoordinator) Finish(papersStored, usersServed int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	c.status.FinishedAt = &now
	c.status.PapersStored = papersStored
	c.status.UsersServed = usersServed
	if err != nil {
		c.status.State = PipelineError
		c.status.LastError = err.Error()
	} else {
		c.status.State = PipelineDone
		c.status.LastError = ""
	}
}

// Snapshot returns a copy of the current status.
func (c *StatusCoordinator) Snapshot() PipelineStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
