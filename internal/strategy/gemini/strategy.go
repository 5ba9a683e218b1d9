package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"textract/internal/document"
	"textract/internal/strategy"
)

const (
	strategyName  = "gemini_vision"
	defaultModel  = "gemini-1.5-flash"
	defaultPrompt = "Extract all visible text from this image. Preserve the reading order."
)

// Strategy performs OCR through the Gemini API, streaming the generated
// content per page. The genai client is built lazily and reused while the
// API key stays the same.
type Strategy struct {
	cfg        strategy.Config
	converter  document.Converter
	clientOpts []option.ClientOption

	mu         sync.Mutex
	client     *genai.Client
	currentKey string
}

// Factory is the registry entry point for the "gemini" backend.
func Factory() strategy.Strategy { return New() }

func New(opts ...option.ClientOption) *Strategy {
	return &Strategy{converter: document.NewImageConverter(), clientOpts: opts}
}

func (s *Strategy) Name() string { return strategyName }

func (s *Strategy) Configure(cfg strategy.Config) error {
	s.cfg = cfg
	return nil
}

func (s *Strategy) Accepts(mimeType string) bool {
	return s.converter.Supports(mimeType)
}

func (s *Strategy) ExtractText(ctx context.Context, doc *document.Document, opts strategy.Options, sink strategy.ProgressSink) (strategy.Result, error) {
	if !s.Accepts(doc.MIME) {
		return strategy.Result{}, document.UnsupportedFormatError(doc.MIME)
	}

	key := s.cfg.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		return strategy.Result{}, fmt.Errorf("gemini api key not configured")
	}

	client, err := s.getClient(ctx, key)
	if err != nil {
		return strategy.Result{}, err
	}

	pages, err := s.converter.Convert(ctx, doc)
	if err != nil {
		return strategy.Result{}, err
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = s.cfg.Model
	}
	if modelName == "" {
		modelName = defaultModel
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = s.cfg.Prompt
	}
	if prompt == "" {
		prompt = defaultPrompt
	}

	model := client.GenerativeModel(modelName)

	var text strings.Builder
	start := time.Now()
	percentDone := 0

	for i, page := range pages {
		iter := model.GenerateContentStream(ctx, genai.Text(prompt), genai.ImageData(page.Format, page.Bytes))
		chunkNo := 1
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return strategy.Result{}, wrapBackendError(modelName, err)
			}
			text.WriteString(responseText(resp))
			sink.Update(strategy.Progress{
				Percent:   strategy.StreamBaselinePercent + percentDone,
				Status:    fmt.Sprintf("OCR Processing (page %d of %d) chunk no: %d", i+1, len(pages), chunkNo),
				StartTime: start,
				Elapsed:   time.Since(start),
			})
			chunkNo++
		}
		percentDone += strategy.StreamBudgetPercent / len(pages)
	}

	return strategy.Result{Text: text.String(), Pages: len(pages)}, nil
}

func (s *Strategy) getClient(ctx context.Context, key string) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil && s.currentKey == key {
		return s.client, nil
	}

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			slog.Warn("failed to close previous genai client", "error", err)
		}
	}

	opts := append(s.clientOpts, option.WithAPIKey(key))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s.client = client
	s.currentKey = key
	return client, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}

// wrapBackendError maps recognized API errors (bad request, model not found)
// to a BackendError naming the model.
func wrapBackendError(model string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusNotFound) {
		return &strategy.BackendError{Model: model, Err: apiErr}
	}
	return err
}
