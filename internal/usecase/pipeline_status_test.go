package usecase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"paperpulse/internal/usecase"
)

func TestStatusCoordinator_Lifecycle(t *testing.T) {
	c := usecase.NewStatusCoordinator()

	assert.Equal(t, usecase.PipelineIdle, c.Snapshot().State)

	assert.True(t, c.TryStart())
	snap := c.Snapshot()
	assert.Equal(t, usecase.PipelineRunning, snap.State)
	assert.NotNil(t, snap.StartedAt)

	c.Finish(12, 3, nil)
	snap = c.Snapshot()
	assert.Equal(t, usecase.PipelineDone, snap.State)
	assert.Equal(t, 12, snap.PapersStored)
	assert.Equal(t, 3, snap.UsersServed)
	assert.Empty(t, snap.LastError)
	assert.NotNil(t, snap.FinishedAt)
}

func TestStatusCoordinator_RejectsConcurrentStart(t *testing.T) {
	c := usecase.NewStatusCoordinator()

	assert.True(t, c.TryStart())
	assert.False(t, c.TryStart())

	c.Finish(0, 0, nil)
	assert.True(t, c.TryStart())
}

func TestStatusCoordinator_RecordsError(t *testing.T) {
	c := usecase.NewStatusCoordinator()

	c.TryStart()
	c.Finish(0, 0, errors.New("enrichment failed"))

	snap := c.Snapshot()
	assert.Equal(t, usecase.PipelineError, snap.State)
	assert.Equal(t, "enrichment failed", snap.LastError)
}
