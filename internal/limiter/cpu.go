// Package limiter provides global resource limiters for CPU-intensive operations.
package limiter

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"video-dubber/internal/config"
)

// CPU bounds the number of concurrent ffmpeg processes. With chunk concurrency
// raised and several jobs in flight, each chunk would otherwise spawn its own
// extract/mux/cut process at once.
type CPU struct {
	sem  *semaphore.Weighted
	size int64
}

// NewCPU creates a limiter with n slots (minimum 1).
func NewCPU(n int) *CPU {
	if n < 1 {
		n = 1
	}
	return &CPU{sem: semaphore.NewWeighted(int64(n)), size: int64(n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (c *CPU) Acquire(ctx context.Context) error {
	return c.sem.Acquire(ctx, 1)
}

// Release returns a slot. Call it with defer after a successful Acquire.
func (c *CPU) Release() {
	c.sem.Release(1)
}

// Size returns the number of slots.
func (c *CPU) Size() int {
	return int(c.size)
}

var (
	defaultOnce sync.Once
	defaultCPU  *CPU
)

// Default returns the process-wide limiter sized by config.MaxConcurrentCPUOperations.
func Default() *CPU {
	defaultOnce.Do(func() {
		defaultCPU = NewCPU(config.MaxConcurrentCPUOperations)
	})
	return defaultCPU
}
