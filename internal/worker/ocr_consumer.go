package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"textract/internal/cache"
	"textract/internal/document"
	"textract/internal/jobstore"
	"textract/internal/middleware"
	"textract/internal/strategy"
)

// OCRConsumer executes extraction tasks. Infrastructure failures (cache or
// job store writes) return an error so NSQ redelivers; task-level failures
// (bad strategy, unsupported format, backend rejection) are terminal and
// recorded on the job instead.
type OCRConsumer struct {
	strategies  StrategyResolver
	jobs        jobstore.Store
	cache       cache.Store
	files       FileSaver
	archive     FailedJobArchiver
	taskTimeout time.Duration
}

func NewOCRConsumer(resolver StrategyResolver, jobs jobstore.Store, cacheStore cache.Store, files FileSaver, archive FailedJobArchiver, taskTimeout time.Duration) *OCRConsumer {
	return &OCRConsumer{
		strategies:  resolver,
		jobs:        jobs,
		cache:       cacheStore,
		files:       files,
		archive:     archive,
		taskTimeout: taskTimeout,
	}
}

func (h *OCRConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload TaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}
	if h.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.taskTimeout)
		defer cancel()
	}

	strat, err := h.strategies.Resolve(payload.Strategy)
	if err != nil {
		return h.failTask(ctx, m.Body, &payload, "UnknownStrategy", err)
	}

	doc := document.New(payload.Document, payload.Filename, payload.MIME)
	sink := &jobProgressSink{ctx: ctx, jobs: h.jobs, taskID: payload.TaskID}
	opts := strategy.Options{
		Model:    payload.Model,
		Prompt:   payload.Prompt,
		Language: payload.Language,
	}

	result, err := strat.ExtractText(ctx, doc, opts, sink)
	if err != nil {
		return h.failTask(ctx, m.Body, &payload, classifyError(err), err)
	}

	cached := cache.Result{
		Text:        result.Text,
		Strategy:    payload.Strategy,
		Model:       payload.Model,
		Pages:       result.Pages,
		ExtractedAt: time.Now().UTC(),
	}

	if payload.CacheEnabled {
		key := cache.Key(payload.DocumentHash, payload.Strategy, payload.Model, payload.Prompt, payload.Language)
		if err := h.cache.Set(ctx, key, &cached); err != nil {
			slog.ErrorContext(ctx, "cache store failed", "error", err, "task_id", payload.TaskID)
			return err // Retry
		}
	}

	if payload.StorageFilename != "" && h.files != nil {
		if err := h.files.Save(payload.StorageProfile, payload.StorageFilename, []byte(result.Text)); err != nil {
			// The extraction itself succeeded; a storage profile problem
			// should not force a rerun of the whole OCR pass.
			slog.WarnContext(ctx, "storage save failed", "error", err, "task_id", payload.TaskID, "profile", payload.StorageProfile)
		}
	}

	if err := h.jobs.Succeed(ctx, payload.TaskID, &cached); err != nil {
		slog.ErrorContext(ctx, "job result store failed", "error", err, "task_id", payload.TaskID)
		return err // Retry
	}

	slog.InfoContext(ctx, "extraction completed", "task_id", payload.TaskID, "strategy", payload.Strategy, "pages", result.Pages)
	return nil
}

// failTask marks the job failed and archives it. Always terminal: returning
// nil acknowledges the message so NSQ does not redeliver a task that will
// fail the same way again.
func (h *OCRConsumer) failTask(ctx context.Context, body []byte, payload *TaskPayload, kind string, cause error) error {
	slog.ErrorContext(ctx, "extraction failed", "error", cause, "task_id", payload.TaskID, "strategy", payload.Strategy, "kind", kind)

	if err := h.jobs.Fail(ctx, payload.TaskID, kind, cause.Error()); err != nil {
		slog.ErrorContext(ctx, "job failure store failed", "error", err, "task_id", payload.TaskID)
	}
	if h.archive != nil {
		if err := h.archive.Archive(ctx, payload.TaskID, "ocr.task", body, kind, cause.Error()); err != nil {
			slog.ErrorContext(ctx, "failed job archive failed", "error", err, "task_id", payload.TaskID)
		}
	}
	return nil
}

func classifyError(err error) string {
	var backendErr *strategy.BackendError
	switch {
	case errors.Is(err, document.ErrUnsupportedFormat):
		return "UnsupportedFormat"
	case errors.As(err, &backendErr):
		return "BackendError"
	default:
		return "ExtractionError"
	}
}

// jobProgressSink forwards streamed strategy progress into the job store.
// Store errors are logged and swallowed so progress reporting can never fail
// an extraction.
type jobProgressSink struct {
	ctx    context.Context
	jobs   jobstore.Store
	taskID string
}

func (s *jobProgressSink) Update(p strategy.Progress) {
	err := s.jobs.SetProgress(s.ctx, s.taskID, jobstore.Progress{
		Percent:   p.Percent,
		Status:    p.Status,
		StartTime: p.StartTime,
		Elapsed:   p.Elapsed.Seconds(),
	})
	if err != nil {
		slog.WarnContext(s.ctx, "progress update failed", "error", err, "task_id", s.taskID)
	}
}
