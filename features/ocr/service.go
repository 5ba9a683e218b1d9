package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"textract/features/storage"
	"textract/internal/cache"
	"textract/internal/document"
	"textract/internal/jobstore"
	"textract/internal/middleware"
	"textract/internal/worker"
)

type Publisher interface {
	Publish(topic string, body []byte) error
}

type ProfileChecker interface {
	Exists(name string) bool
}

// Submission is the handle returned for an accepted extraction request.
type Submission struct {
	TaskID   string
	CacheHit bool
}

// Service validates submissions, short-circuits cache hits and enqueues the
// rest as worker tasks.
type Service struct {
	strategies worker.StrategyResolver
	cache      cache.Store
	jobs       jobstore.Store
	profiles   ProfileChecker
	producer   Publisher
	topic      string
}

func NewService(strategies worker.StrategyResolver, cacheStore cache.Store, jobs jobstore.Store, profiles ProfileChecker, producer Publisher, topic string) *Service {
	return &Service{
		strategies: strategies,
		cache:      cacheStore,
		jobs:       jobs,
		profiles:   profiles,
		producer:   producer,
		topic:      topic,
	}
}

// Submit rejects invalid requests synchronously; anything that passes
// validation either resolves from cache or becomes a queued task.
func (s *Service) Submit(ctx context.Context, req Request, doc *document.Document) (*Submission, error) {
	strat, err := s.strategies.Resolve(req.Strategy)
	if err != nil {
		return nil, err
	}
	if !strat.Accepts(doc.MIME) {
		return nil, document.UnsupportedFormatError(doc.MIME)
	}
	if req.StorageFilename != "" && !s.profiles.Exists(req.StorageProfile) {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownProfile, req.StorageProfile)
	}

	key := cache.Key(doc.Hash, req.Strategy, req.Model, req.Prompt, req.Language)
	if req.CacheEnabled {
		cached, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "cache lookup failed, computing anyway", "error", err)
		} else if hit {
			id := uuid.NewString()
			if err := s.jobs.Succeed(ctx, id, cached); err != nil {
				return nil, fmt.Errorf("store cached result: %w", err)
			}
			slog.InfoContext(ctx, "cache hit", "task_id", id, "strategy", req.Strategy)
			return &Submission{TaskID: id, CacheHit: true}, nil
		}
	}

	id := uuid.NewString()
	if err := s.jobs.Create(ctx, id); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	payload := worker.TaskPayload{
		TaskID:          id,
		Document:        doc.Bytes,
		Filename:        doc.Filename,
		MIME:            doc.MIME,
		DocumentHash:    doc.Hash,
		Strategy:        req.Strategy,
		Model:           req.Model,
		Prompt:          req.Prompt,
		Language:        req.Language,
		CacheEnabled:    req.CacheEnabled,
		StorageProfile:  req.StorageProfile,
		StorageFilename: req.StorageFilename,
		CorrelationID:   middleware.GetCorrelationID(ctx),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}

	if err := s.producer.Publish(s.topic, body); err != nil {
		if failErr := s.jobs.Fail(ctx, id, "EnqueueError", err.Error()); failErr != nil {
			slog.ErrorContext(ctx, "job failure store failed", "error", failErr, "task_id", id)
		}
		return nil, fmt.Errorf("enqueue task: %w", err)
	}

	slog.InfoContext(ctx, "task enqueued", "task_id", id, "strategy", req.Strategy, "mime", doc.MIME)
	return &Submission{TaskID: id}, nil
}

// Result returns the current job record. An unknown id reports PENDING: the
// job store cannot distinguish a not-yet-written record from an expired one,
// and pollers treat both the same way.
func (s *Service) Result(ctx context.Context, taskID string) (*jobstore.Record, error) {
	record, err := s.jobs.Get(ctx, taskID)
	if errors.Is(err, jobstore.ErrNotFound) {
		return &jobstore.Record{ID: taskID, State: jobstore.StatePending}, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.FlushAll(ctx)
}

// elapsedSince recomputes elapsed time at query time so pollers see it
// advance between progress writes.
func elapsedSince(start time.Time) float64 {
	if start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}
