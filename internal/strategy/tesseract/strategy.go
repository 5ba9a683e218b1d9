package tesseract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"textract/internal/document"
	"textract/internal/strategy"
)

const strategyName = "tesseract"

// ISO 639-1 request codes to tesseract traineddata names.
var languageCodes = map[string]string{
	"en": "eng",
	"pl": "pol",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
	"it": "ita",
	"pt": "por",
	"nl": "nld",
}

// Strategy runs local OCR with the tesseract engine, one recognition pass
// per page image. No remote backend is involved, so the whole streaming
// budget advances in page-sized steps.
type Strategy struct {
	cfg       strategy.Config
	converter document.Converter
	recognize func(image []byte, lang string) (string, error)
}

// Factory is the registry entry point for the "tesseract" backend.
func Factory() strategy.Strategy { return New() }

func New() *Strategy {
	return &Strategy{
		converter: document.NewImageConverter(),
		recognize: gosseractRecognize,
	}
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

	pages, err := s.converter.Convert(ctx, doc)
	if err != nil {
		return strategy.Result{}, err
	}

	lang := tesseractLanguage(opts.Language)

	var text strings.Builder
	start := time.Now()
	percentDone := 0

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return strategy.Result{}, err
		}

		pageText, err := s.recognize(page.Bytes, lang)
		if err != nil {
			return strategy.Result{}, fmt.Errorf("tesseract page %d: %w", i+1, err)
		}
		text.WriteString(pageText)

		sink.Update(strategy.Progress{
			Percent:   strategy.StreamBaselinePercent + percentDone,
			Status:    fmt.Sprintf("OCR Processing (page %d of %d) chunk no: 1", i+1, len(pages)),
			StartTime: start,
			Elapsed:   time.Since(start),
		})
		percentDone += strategy.StreamBudgetPercent / len(pages)
	}

	return strategy.Result{Text: text.String(), Pages: len(pages)}, nil
}

func tesseractLanguage(code string) string {
	if lang, ok := languageCodes[strings.ToLower(code)]; ok {
		return lang
	}
	return "eng"
}

func gosseractRecognize(image []byte, lang string) (string, error) {
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
