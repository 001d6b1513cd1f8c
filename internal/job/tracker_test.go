package job

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/model"
)

func newTestTracker(cfg config.JobsConfig) *Tracker {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewTracker(cfg, log)
}

func TestCreateAndSnapshot(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 8})

	id, ctx, err := tr.Create(context.Background(), 3)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, ctx.Err())

	snap, err := tr.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, snap.Status)
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, 3, snap.TotalItems)
	assert.Equal(t, "queued", snap.Message)
}

func TestSnapshotUnknownJob(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 8})
	_, err := tr.Snapshot("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgressNeverDecreases(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 8})
	id, _, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, tr.Update(id, func(j *model.Job) {
		j.Status = model.JobRunning
		j.Progress = 60
	}))
	require.NoError(t, tr.Update(id, func(j *model.Job) {
		j.Progress = 40
	}))

	snap, err := tr.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, 60, snap.Progress, "a stale lower value must not rewind progress")

	require.NoError(t, tr.Update(id, func(j *model.Job) {
		j.Progress = 250
	}))
	snap, err = tr.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Progress)
}

func TestSnapshotIsIsolatedFromUpdates(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 8})
	id, _, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, tr.Update(id, func(j *model.Job) {
		j.Items = []model.ItemOutcome{{ItemUID: "m1", Status: "succeeded"}}
	}))

	snap, err := tr.Snapshot(id)
	require.NoError(t, err)

	require.NoError(t, tr.Update(id, func(j *model.Job) {
		j.Items[0].Status = "failed"
	}))

	assert.Equal(t, "succeeded", snap.Items[0].Status)
}

func TestCancelStopsWorkerContext(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 8})
	id, ctx, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)

	require.True(t, tr.Cancel(id))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	assert.False(t, tr.Cancel(id+"-missing"))
}

func TestCancelTerminalJobIsNoop(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 8})
	id, _, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, tr.Update(id, func(j *model.Job) {
		j.Status = model.JobCompleted
		j.Progress = 100
	}))
	assert.False(t, tr.Cancel(id))
}

func TestTerminalTransitionReleasesContext(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 8})
	id, ctx, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, tr.Update(id, func(j *model.Job) {
		j.Status = model.JobCompleted
	}))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestTTLEviction(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 8})

	base := time.Now()
	tr.now = func() time.Time { return base }

	id, _, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, tr.Update(id, func(j *model.Job) {
		j.Status = model.JobCompleted
	}))

	// Still pollable inside the TTL window.
	tr.now = func() time.Time { return base.Add(30 * time.Minute) }
	_, _, err = tr.Create(context.Background(), 1)
	require.NoError(t, err)
	_, err = tr.Snapshot(id)
	require.NoError(t, err)

	// Gone after the window passes and eviction runs.
	tr.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, _, err = tr.Create(context.Background(), 1)
	require.NoError(t, err)
	_, err = tr.Snapshot(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCapacityEvictsOldestFinished(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 2})

	base := time.Now()
	tr.now = func() time.Time { return base }
	first, _, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, tr.Update(first, func(j *model.Job) { j.Status = model.JobCompleted }))

	tr.now = func() time.Time { return base.Add(time.Minute) }
	second, _, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, tr.Update(second, func(j *model.Job) { j.Status = model.JobFailed }))

	// Full of terminal jobs: the oldest one makes room.
	third, _, err := tr.Create(context.Background(), 1)
	require.NoError(t, err)

	_, err = tr.Snapshot(first)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tr.Snapshot(second)
	assert.NoError(t, err)
	_, err = tr.Snapshot(third)
	assert.NoError(t, err)
}

func TestCapacityFullOfActiveJobs(t *testing.T) {
	tr := newTestTracker(config.JobsConfig{TTL: time.Hour, Capacity: 2})

	for i := 0; i < 2; i++ {
		_, _, err := tr.Create(context.Background(), 1)
		require.NoError(t, err)
	}
	_, _, err := tr.Create(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, 2, tr.Len())
}
