package tracker

import (
	"context"
	"sync"

	"video-dubber/models"
)

type memoryEntry struct {
	mu  sync.Mutex
	job *models.Job
}

// MemoryStore keeps jobs in process memory. Each record has its own lock so
// updates to different jobs never contend.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) entry(id string) (*memoryEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[id]
	return e, ok
}

func (m *MemoryStore) Put(_ context.Context, job *models.Job) error {
	m.mu.Lock()
	m.jobs[job.ID] = &memoryEntry{job: job.Clone()}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Job, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, models.ErrJobNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*models.Job) error) (*models.Job, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, models.ErrJobNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.job.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	e.job = next
	return next.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.jobs, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*models.Job, error) {
	m.mu.RLock()
	entries := make([]*memoryEntry, 0, len(m.jobs))
	for _, e := range m.jobs {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]*models.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.job.Clone())
		e.mu.Unlock()
	}
	return out, nil
}
