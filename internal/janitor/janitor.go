// Package janitor deletes pipeline artifacts. Deletions are idempotent and never fail the caller.
package janitor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"video-dubber/internal/logger"
	"video-dubber/internal/metrics"
)

type Janitor struct {
	log zerolog.Logger
}

func New() *Janitor {
	return &Janitor{log: logger.WithComponent("janitor")}
}

// NewWithLogger is used by tests that capture log output.
func NewWithLogger(l zerolog.Logger) *Janitor {
	return &Janitor{log: l}
}

// DeleteIfExists removes a single file. A missing file is not an error.
// Returns true when a file was actually removed.
func (j *Janitor) DeleteIfExists(ctx context.Context, path string) bool {
	if path == "" {
		return false
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		log := logger.WithContext(ctx, j.log)
		log.Debug().Str(logger.FieldPath, path).Str(logger.FieldEvent, "artifact.deleted").Msg("deleted artifact")
		return true
	case errors.Is(err, fs.ErrNotExist):
		return false
	default:
		metrics.IncJanitorError()
		log := logger.WithContext(ctx, j.log)
		log.Warn().Err(err).Str(logger.FieldPath, path).Str(logger.FieldEvent, "artifact.delete_failed").Msg("failed to delete artifact")
		return false
	}
}

// DeleteAll removes every path, ignoring missing ones.
func (j *Janitor) DeleteAll(ctx context.Context, paths ...string) int {
	n := 0
	for _, p := range paths {
		if j.DeleteIfExists(ctx, p) {
			n++
		}
	}
	return n
}

// RemoveDir removes a work directory and everything below it.
func (j *Janitor) RemoveDir(ctx context.Context, dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		metrics.IncJanitorError()
		log := logger.WithContext(ctx, j.log)
		log.Warn().Err(err).Str(logger.FieldPath, dir).Str(logger.FieldEvent, "workdir.delete_failed").Msg("failed to remove work directory")
	}
}

// Sweep removes direct children of root last modified before now-olderThan.
// It catches work directories orphaned by a crash.
func (j *Janitor) Sweep(ctx context.Context, root string, olderThan time.Duration, now time.Time) int {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			j.log.Warn().Err(err).Str(logger.FieldPath, root).Msg("sweep: cannot read directory")
		}
		return 0
	}

	cutoff := now.Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			metrics.IncJanitorError()
			j.log.Warn().Err(err).Str(logger.FieldPath, path).Msg("sweep: remove failed")
			continue
		}
		removed++
	}
	if removed > 0 {
		j.log.Info().Int("removed", removed).Str(logger.FieldPath, root).Str(logger.FieldEvent, "workdir.swept").Msg("removed stale work directories")
	}
	return removed
}
