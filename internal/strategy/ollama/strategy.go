package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"textract/internal/document"
	"textract/internal/strategy"
)

const (
	strategyName  = "llama_vision"
	defaultModel  = "llama3.2-vision"
	defaultPrompt = "Extract all visible text from this image. Preserve the reading order."
)

// Strategy performs OCR by sending each page image to an Ollama vision model
// and accumulating the streamed response.
type Strategy struct {
	cfg       strategy.Config
	client    *Client
	converter document.Converter
}

// Factory is the registry entry point for the "ollama" backend.
func Factory() strategy.Strategy { return New() }

func New() *Strategy {
	return &Strategy{converter: document.NewImageConverter()}
}

func (s *Strategy) Name() string { return strategyName }

func (s *Strategy) Configure(cfg strategy.Config) error {
	if cfg.Host == "" {
		cfg.Host = os.Getenv("OLLAMA_HOST")
	}
	s.cfg = cfg
	s.client = NewClient(ClientConfig{
		Host:    cfg.Host,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	return nil
}

func (s *Strategy) Accepts(mimeType string) bool {
	return s.converter.Supports(mimeType)
}

// ExtractText converts the document to page images and runs one streamed
// chat call per page, in order. Progress snapshots carry the running percent
// (baseline plus the per-page share of the streaming budget), a status line
// with page and chunk counters, and elapsed wall-clock time.
func (s *Strategy) ExtractText(ctx context.Context, doc *document.Document, opts strategy.Options, sink strategy.ProgressSink) (strategy.Result, error) {
	if !s.Accepts(doc.MIME) {
		return strategy.Result{}, document.UnsupportedFormatError(doc.MIME)
	}

	pages, err := s.converter.Convert(ctx, doc)
	if err != nil {
		return strategy.Result{}, err
	}

	model := opts.Model
	if model == "" {
		model = s.cfg.Model
	}
	if model == "" {
		model = defaultModel
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = s.cfg.Prompt
	}
	if prompt == "" {
		prompt = defaultPrompt
	}

	var text strings.Builder
	start := time.Now()
	percentDone := 0

	for i, page := range pages {
		if err := s.extractPage(ctx, model, prompt, page, i, len(pages), percentDone, start, &text, sink); err != nil {
			return strategy.Result{}, err
		}
		percentDone += strategy.StreamBudgetPercent / len(pages)
	}

	return strategy.Result{Text: text.String(), Pages: len(pages)}, nil
}

func (s *Strategy) extractPage(ctx context.Context, model, prompt string, page document.PageImage, pageIdx, numPages, percentDone int, start time.Time, text *strings.Builder, sink strategy.ProgressSink) error {
	tmp, err := os.CreateTemp("", "textract-page-*."+page.Format)
	if err != nil {
		return fmt.Errorf("create page artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(page.Bytes); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write page artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close page artifact: %w", err)
	}

	stream, err := s.client.Chat(ctx, model, prompt, tmpName)
	// The artifact is only needed up to dispatch; release it before touching
	// the stream so a hung or failed call never leaks page files.
	os.Remove(tmpName)
	if err != nil {
		return wrapBackendError(model, err)
	}
	defer stream.Close()

	chunkNo := 1
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return wrapBackendError(model, err)
		}
		text.WriteString(chunk.Content)
		sink.Update(strategy.Progress{
			Percent:   strategy.StreamBaselinePercent + percentDone,
			Status:    fmt.Sprintf("OCR Processing (page %d of %d) chunk no: %d", pageIdx+1, numPages, chunkNo),
			StartTime: start,
			Elapsed:   time.Since(start),
		})
		chunkNo++
	}
	return nil
}

// wrapBackendError maps recognized service-level failures to a BackendError
// naming the model; anything else propagates unwrapped.
func wrapBackendError(model string, err error) error {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return &strategy.BackendError{Model: model, Err: respErr}
	}
	return err
}
