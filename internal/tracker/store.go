// Package tracker keeps the state of dubbing jobs behind a pluggable JobStore.
package tracker

import (
	"context"

	"video-dubber/models"
)

// JobStore persists job records. Implementations return models.ErrJobNotFound
// for unknown ids and never hand out pointers to their internal state.
type JobStore interface {
	Put(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)

	// Update applies fn to the current record atomically and stores the result.
	// If fn returns an error nothing is written and the error is returned.
	Update(ctx context.Context, id string, fn func(*models.Job) error) (*models.Job, error)

	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Job, error)
	Close() error
}
