package strategy

import (
	"context"
	"time"

	"textract/internal/document"
)

// Progress budget for the streaming phase, shared by all backends: reported
// percent starts at the baseline and the streaming phase owns the budget,
// split evenly across pages (integer division).
const (
	StreamBaselinePercent = 30
	StreamBudgetPercent   = 20
)

// Progress is the latest snapshot for a running extraction. Each update
// fully replaces the previous one; consumers only ever see the most recent.
type Progress struct {
	Percent   int
	Status    string
	StartTime time.Time
	Elapsed   time.Duration
}

// ProgressSink receives progress snapshots from a running strategy. Updates
// are local mutations of the job record and must not block.
type ProgressSink interface {
	Update(p Progress)
}

// SinkFunc adapts a function to a ProgressSink.
type SinkFunc func(Progress)

func (f SinkFunc) Update(p Progress) { f(p) }

// NopSink discards progress updates.
var NopSink ProgressSink = SinkFunc(func(Progress) {})

// Options carries per-request overrides. Empty fields fall back to the
// strategy's static configuration.
type Options struct {
	Model    string
	Prompt   string
	Language string
}

// Result is the final extraction output: concatenation of every streamed
// fragment in page order then chunk order.
type Result struct {
	Text  string
	Pages int
}

// Strategy is a pluggable extraction backend. Implementations must be safe
// for concurrent use by multiple workers.
type Strategy interface {
	Name() string
	Configure(cfg Config) error
	Accepts(mimeType string) bool
	ExtractText(ctx context.Context, doc *document.Document, opts Options, sink ProgressSink) (Result, error)
}

// Factory constructs a backend instance with its default configuration.
// Each backend package exports one; the registry maps the config file's
// backend identifier to it.
type Factory func() Strategy
