package worker

import (
	"context"

	"textract/internal/strategy"
)

type StrategyResolver interface {
	Resolve(name string) (strategy.Strategy, error)
}

type FileSaver interface {
	Save(profile, filename string, data []byte) error
}

// FailedJobArchiver records terminally failed tasks for later inspection and
// manual retry. Optional; a nil archiver disables archiving.
type FailedJobArchiver interface {
	Archive(ctx context.Context, taskID, handler string, payload []byte, kind, reason string) error
}
