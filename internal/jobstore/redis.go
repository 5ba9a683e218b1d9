package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"textract/internal/cache"
)

const jobKeyPrefix = "ocr:job:"

// RedisStore keeps job records in Redis with a retention TTL refreshed on
// every write, so a job stays visible for the retention window after its
// last state change.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func jobKey(id string) string { return jobKeyPrefix + id }

func (s *RedisStore) Create(ctx context.Context, id string) error {
	record := Record{
		ID:        id,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	}
	return s.write(ctx, &record)
}

func (s *RedisStore) SetProgress(ctx context.Context, id string, p Progress) error {
	return s.update(ctx, id, func(r *Record) {
		r.State = StateProgress
		r.Progress = &p
	})
}

func (s *RedisStore) Succeed(ctx context.Context, id string, result *cache.Result) error {
	return s.update(ctx, id, func(r *Record) {
		r.State = StateSuccess
		r.Result = result
		r.ErrorKind = ""
		r.Error = ""
	})
}

func (s *RedisStore) Fail(ctx context.Context, id, kind, message string) error {
	return s.update(ctx, id, func(r *Record) {
		r.State = StateFailure
		r.ErrorKind = kind
		r.Error = message
		r.Result = nil
	})
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("job get: %w", err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("job decode: %w", err)
	}
	return &record, nil
}

// update performs a read-modify-write preserving CreatedAt. Jobs belong to a
// single worker at a time, so last-write-wins is safe here.
func (s *RedisStore) update(ctx context.Context, id string, mutate func(*Record)) error {
	record, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		// The record expired or the terminal write raced creation; rebuild
		// so a late state change is not silently dropped.
		record = &Record{ID: id, CreatedAt: time.Now().UTC()}
	} else if err != nil {
		return err
	}

	mutate(record)
	return s.write(ctx, record)
}

func (s *RedisStore) write(ctx context.Context, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("job encode: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(record.ID), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("job set: %w", err)
	}
	return nil
}
