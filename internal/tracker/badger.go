package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"video-dubber/models"
)

const (
	badgerKeyPrefix    = "job:"
	badgerMaxTxRetries = 100
)

// BadgerStore is an embedded key-value job store.
// Key = "job:<id>", value = JSON.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the database in dir. An empty dir keeps everything in memory.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func badgerKey(id string) []byte { return []byte(badgerKeyPrefix + id) }

func readBadgerJob(item *badger.Item) (*models.Job, error) {
	var job models.Job
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &job)
	})
	if err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func (s *BadgerStore) Put(_ context.Context, job *models.Job) error {
	buf, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(job.ID), buf)
	})
}

func (s *BadgerStore) Get(_ context.Context, id string) (*models.Job, error) {
	var out *models.Job
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		out, err = readBadgerJob(item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, models.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update retries on transaction conflicts from concurrent writers.
func (s *BadgerStore) Update(ctx context.Context, id string, fn func(*models.Job) error) (*models.Job, error) {
	key := badgerKey(id)
	for i := 0; i < badgerMaxTxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var out *models.Job
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if err != nil {
				return err
			}
			job, err := readBadgerJob(item)
			if err != nil {
				return err
			}
			if err := fn(job); err != nil {
				return err
			}
			buf, err := json.Marshal(job)
			if err != nil {
				return err
			}
			out = job
			return txn.Set(key, buf)
		})
		switch {
		case errors.Is(err, badger.ErrConflict):
			continue
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil, models.ErrJobNotFound
		case err != nil:
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("badger update of %s: too much contention", id)
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(id))
	})
}

func (s *BadgerStore) List(_ context.Context) ([]*models.Job, error) {
	var out []*models.Job
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			job, err := readBadgerJob(it.Item())
			if err != nil {
				return err
			}
			out = append(out, job)
		}
		return nil
	})
	return out, err
}
