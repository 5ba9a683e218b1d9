package job

import (
	"context"
	"encoding/json"

	"textract/internal/config"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

// Retry requeues the archived payload and removes the archive row once the
// publish is acknowledged.
func (s *Service) Retry(ctx context.Context, id string) error {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.pub.Publish(config.TopicOCRTask, job.Payload); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Archive satisfies the worker's archiver dependency. The kind is the
// worker's failure classification, stored separately from the message so the
// archive can be filtered without parsing error text.
func (s *Service) Archive(ctx context.Context, taskID, handler string, payload []byte, kind, reason string) error {
	return s.repo.Save(ctx, &Job{
		TaskID:    taskID,
		Handler:   handler,
		Payload:   json.RawMessage(payload),
		ErrorKind: kind,
		Error:     reason,
	})
}
