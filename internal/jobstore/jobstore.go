package jobstore

import (
	"context"
	"errors"
	"time"

	"textract/internal/cache"
)

// State is the lifecycle phase of a submitted extraction job.
type State string

const (
	StatePending  State = "PENDING"
	StateProgress State = "PROGRESS"
	StateSuccess  State = "SUCCESS"
	StateFailure  State = "FAILURE"
)

// Progress is the last streamed progress snapshot for a running job.
type Progress struct {
	Percent   int       `json:"percent"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	Elapsed   float64   `json:"elapsed_time"`
}

// Record is the persisted view of a job that pollers read.
type Record struct {
	ID        string        `json:"id"`
	State     State         `json:"state"`
	Progress  *Progress     `json:"progress,omitempty"`
	Result    *cache.Result `json:"result,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

var ErrNotFound = errors.New("job not found")

// Store tracks job records through their lifecycle. Records expire after a
// configured retention window; an expired record is indistinguishable from
// one that never existed.
type Store interface {
	Create(ctx context.Context, id string) error
	SetProgress(ctx context.Context, id string, p Progress) error
	Succeed(ctx context.Context, id string, result *cache.Result) error
	Fail(ctx context.Context, id, kind, message string) error
	Get(ctx context.Context, id string) (*Record, error)
}
