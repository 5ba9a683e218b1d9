package doctext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"code.sajari.com/docconv"

	"textract/internal/document"
	"textract/internal/strategy"
)

const strategyName = "doc_text"

// Media types docconv can extract text from directly.
var supportedMIMEs = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.oasis.opendocument.text":                                 {},
	"application/rtf": {},
	"text/plain":      {},
	"text/html":       {},
}

// Strategy extracts embedded text with docconv. It needs no page images and
// no remote model: documents that already carry a text layer skip the vision
// pipeline entirely.
type Strategy struct {
	cfg     strategy.Config
	convert func(r io.Reader, mimeType string) (string, error)
}

// Factory is the registry entry point for the "doctext" backend.
func Factory() strategy.Strategy { return New() }

func New() *Strategy {
	return &Strategy{convert: docconvConvert}
}

func (s *Strategy) Name() string { return strategyName }

func (s *Strategy) Configure(cfg strategy.Config) error {
	s.cfg = cfg
	return nil
}

func (s *Strategy) Accepts(mimeType string) bool {
	_, ok := supportedMIMEs[mimeType]
	return ok
}

func (s *Strategy) ExtractText(ctx context.Context, doc *document.Document, opts strategy.Options, sink strategy.ProgressSink) (strategy.Result, error) {
	if !s.Accepts(doc.MIME) {
		return strategy.Result{}, document.UnsupportedFormatError(doc.MIME)
	}

	start := time.Now()
	text, err := s.convert(bytes.NewReader(doc.Bytes), doc.MIME)
	if err != nil {
		return strategy.Result{}, fmt.Errorf("doc_text extraction: %w", err)
	}

	sink.Update(strategy.Progress{
		Percent:   strategy.StreamBaselinePercent + strategy.StreamBudgetPercent,
		Status:    "Text extraction (page 1 of 1) chunk no: 1",
		StartTime: start,
		Elapsed:   time.Since(start),
	})

	return strategy.Result{Text: text, Pages: 1}, nil
}

func docconvConvert(r io.Reader, mimeType string) (string, error) {
	res, err := docconv.Convert(r, mimeType, true)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Body), nil
}
