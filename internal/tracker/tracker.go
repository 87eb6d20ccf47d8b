package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"video-dubber/internal/config"
	"video-dubber/internal/logger"
	"video-dubber/models"
)

// InterruptedMessage is recorded on jobs that were running when the process stopped.
const InterruptedMessage = "interrupted by server restart"

// errUnchanged aborts a store update when the job refused the mutation.
var errUnchanged = errors.New("job unchanged")

// Tracker records job lifecycle and progress. All reads return copies.
type Tracker struct {
	store     JobStore
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now (tests use a fixed clock).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithRetention sets how long a job is kept after it started.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

func New(store JobStore, opts ...Option) *Tracker {
	t := &Tracker{
		store:     store,
		retention: config.DefaultRetention,
		now:       time.Now,
		log:       logger.WithComponent("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create stores a new processing job for the given request.
func (t *Tracker) Create(ctx context.Context, id, sourcePath, lang, provider, voice string) (*models.Job, error) {
	job := models.NewJob(id, sourcePath, lang, provider, voice, t.now())
	if err := t.store.Put(ctx, job); err != nil {
		return nil, err
	}
	return job.Clone(), nil
}

// Get returns a snapshot of the job, or models.ErrJobNotFound.
func (t *Tracker) Get(ctx context.Context, id string) (*models.Job, error) {
	return t.store.Get(ctx, id)
}

// List returns snapshots of every tracked job.
func (t *Tracker) List(ctx context.Context) ([]*models.Job, error) {
	return t.store.List(ctx)
}

// apply runs mutate under the store's per-record atomicity. It reports whether
// the job accepted the change; terminal jobs refuse every change.
func (t *Tracker) apply(ctx context.Context, id string, mutate func(*models.Job) bool) (bool, error) {
	_, err := t.store.Update(ctx, id, func(j *models.Job) error {
		if !mutate(j) {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateProgress records the current step. Progress never decreases.
func (t *Tracker) UpdateProgress(ctx context.Context, id string, step, progress int, message string) error {
	_, err := t.apply(ctx, id, func(j *models.Job) bool {
		return j.SetProgress(step, progress, message)
	})
	return err
}

// SetChunks marks the job as chunked and records the chunk in progress.
func (t *Tracker) SetChunks(ctx context.Context, id string, current, total int) error {
	_, err := t.apply(ctx, id, func(j *models.Job) bool {
		return j.SetChunks(current, total)
	})
	return err
}

// Complete marks the job completed. It returns false when the job had
// already reached a terminal state, in which case the result is discarded.
func (t *Tracker) Complete(ctx context.Context, id, resultPath, originalText, translatedText string) (bool, error) {
	now := t.now()
	ok, err := t.apply(ctx, id, func(j *models.Job) bool {
		return j.Complete(resultPath, originalText, translatedText, now)
	})
	if err == nil && !ok {
		log := logger.WithContext(ctx, t.log)
		log.Warn().Str(logger.FieldJobID, id).Msg("discarding result for finished job")
	}
	return ok, err
}

// Fail marks the job failed. Returns false if it was already terminal.
func (t *Tracker) Fail(ctx context.Context, id, message string) (bool, error) {
	return t.apply(ctx, id, func(j *models.Job) bool {
		return j.Fail(message)
	})
}

// FailInterrupted fails every job still processing in the store. It runs at
// startup, before any job is submitted, so nothing is working on those jobs
// and their progress would otherwise stay frozen. It returns the failed IDs.
func (t *Tracker) FailInterrupted(ctx context.Context) ([]string, error) {
	jobs, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var failed []string
	for _, j := range jobs {
		if j.IsTerminal() {
			continue
		}
		ok, err := t.Fail(ctx, j.ID, InterruptedMessage)
		if err != nil {
			return failed, err
		}
		if ok {
			t.log.Warn().Str(logger.FieldJobID, j.ID).Int("progress", j.Progress).Msg("job interrupted by restart")
			failed = append(failed, j.ID)
		}
	}
	return failed, nil
}

// Delete forgets a job.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	return t.store.Delete(ctx, id)
}

// SweepExpired removes every job whose start time is older than the retention
// window, regardless of status, so abandoned jobs cannot accumulate. It returns
// the removed jobs.
func (t *Tracker) SweepExpired(ctx context.Context, now time.Time) ([]*models.Job, error) {
	jobs, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var removed []*models.Job
	for _, j := range jobs {
		if now.Sub(j.StartTime) <= t.retention {
			continue
		}
		if err := t.store.Delete(ctx, j.ID); err != nil {
			return removed, err
		}
		t.log.Info().Str(logger.FieldJobID, j.ID).Str("status", string(j.Status)).Msg("job expired and removed")
		removed = append(removed, j)
	}
	return removed, nil
}
