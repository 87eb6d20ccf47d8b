package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"video-dubber/models"
)

const (
	redisKeyPrefix    = "dubber:job:"
	redisMaxTxRetries = 100
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// RedisStore shares job state between several dubber instances.
type RedisStore struct {
	client *redis.Client
}

// OpenRedisStore connects and pings the server.
func OpenRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func redisKey(id string) string { return redisKeyPrefix + id }

func decodeRedisJob(data []byte) (*models.Job, error) {
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Put(ctx context.Context, job *models.Job) error {
	buf, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(job.ID), buf, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Job, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRedisJob(data)
}

// Update uses WATCH/MULTI so concurrent writers never lose updates.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*models.Job) error) (*models.Job, error) {
	key := redisKey(id)
	var out *models.Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return models.ErrJobNotFound
		}
		if err != nil {
			return err
		}
		job, err := decodeRedisJob(data)
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
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, buf, 0)
			return nil
		})
		if err == nil {
			out = job
		}
		return err
	}

	for i := 0; i < redisMaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("redis update of %s: too much contention", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKey(id)).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]*models.Job, error) {
	var out []*models.Job
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // deleted between SCAN and GET
		}
		if err != nil {
			return nil, err
		}
		job, err := decodeRedisJob(data)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, iter.Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
