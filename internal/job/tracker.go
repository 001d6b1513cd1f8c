package job

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/model"
)

var (
	// ErrNotFound means the job id is unknown or already evicted.
	ErrNotFound = errors.New("job not found")

	// ErrCapacity means the tracker is full of jobs that are still
	// running and cannot accept a new submission.
	ErrCapacity = errors.New("job capacity reached")
)

type entry struct {
	job    *model.Job
	cancel context.CancelFunc
	doneAt time.Time
}

// Tracker owns the lifecycle state of all submitted jobs.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*entry
	cfg  config.JobsConfig
	log  *logrus.Logger

	// now is swappable for eviction tests.
	now func() time.Time
}

// NewTracker creates an empty tracker with the given retention policy.
func NewTracker(cfg config.JobsConfig, log *logrus.Logger) *Tracker {
	return &Tracker{
		jobs: make(map[string]*entry),
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

// Create registers a new pending job and returns its id together with a
// context the worker should run under. Cancelling the job cancels that
// context.
func (t *Tracker) Create(parent context.Context, totalItems int) (string, context.Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.evictLocked()
	if len(t.jobs) >= t.cfg.Capacity {
		return "", nil, ErrCapacity
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(parent)
	now := t.now()
	t.jobs[id] = &entry{
		job: &model.Job{
			ID:         id,
			Status:     model.JobPending,
			Message:    "queued",
			CreatedAt:  now,
			UpdatedAt:  now,
			TotalItems: totalItems,
		},
		cancel: cancel,
	}
	return id, ctx, nil
}

// Update applies fn to the job under the tracker lock. It is the only
// mutation path: progress is clamped so it never decreases and never
// exceeds 100, the update timestamp is refreshed, and a transition into
// a terminal status starts the retention clock.
func (t *Tracker) Update(id string, fn func(*model.Job)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[id]
	if !ok {
		return ErrNotFound
	}

	prevProgress := e.job.Progress
	wasTerminal := e.job.Status.Terminal()

	fn(e.job)

	if e.job.Progress < prevProgress {
		e.job.Progress = prevProgress
	}
	if e.job.Progress > 100 {
		e.job.Progress = 100
	}
	e.job.UpdatedAt = t.now()

	if !wasTerminal && e.job.Status.Terminal() {
		e.doneAt = t.now()
		e.cancel()
	}
	return nil
}

// Snapshot returns a deep copy of the job safe for concurrent readers.
func (t *Tracker) Snapshot(id string) (model.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[id]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return e.job.Clone(), nil
}

// Cancel requests cancellation of a running or pending job. Cancelling
// a terminal or unknown job is a no-op and reports false.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[id]
	if !ok || e.job.Status.Terminal() {
		return false
	}
	e.cancel()
	return true
}

// Len reports how many jobs are currently retained.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// evictLocked drops terminal jobs past their TTL, then the oldest
// terminal jobs while over capacity. Active jobs are never evicted.
func (t *Tracker) evictLocked() {
	now := t.now()
	for id, e := range t.jobs {
		if !e.doneAt.IsZero() && now.Sub(e.doneAt) > t.cfg.TTL {
			delete(t.jobs, id)
		}
	}
	if len(t.jobs) < t.cfg.Capacity {
		return
	}

	type done struct {
		id string
		at time.Time
	}
	var finished []done
	for id, e := range t.jobs {
		if !e.doneAt.IsZero() {
			finished = append(finished, done{id, e.doneAt})
		}
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].at.Before(finished[j].at) })

	for _, d := range finished {
		if len(t.jobs) < t.cfg.Capacity {
			return
		}
		t.log.WithField("job", d.id).Debug("evicting finished job to make room")
		delete(t.jobs, d.id)
	}
}
