package job

import (
	"encoding/json"
	"time"
)

// Job is a terminally failed extraction task, archived with its original
// payload so it can be requeued as-is.
type Job struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	Handler   string          `json:"handler"`
	Payload   json.RawMessage `json:"payload"`
	ErrorKind string          `json:"error_kind"`
	Error     string          `json:"error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
