package tesseract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textract/internal/document"
	"textract/internal/strategy"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func imageDoc() *document.Document {
	return document.New(pngHeader, "scan.png", "image/png")
}

type captureSink struct {
	updates []strategy.Progress
}

func (c *captureSink) Update(p strategy.Progress) { c.updates = append(c.updates, p) }

func TestName(t *testing.T) {
	assert.Equal(t, "tesseract", New().Name())
}

func TestExtractText_RecognizesPage(t *testing.T) {
	s := New()
	require.NoError(t, s.Configure(strategy.Config{}))

	var gotLang string
	s.recognize = func(image []byte, lang string) (string, error) {
		gotLang = lang
		return "recognized text", nil
	}

	sink := &captureSink{}
	res, err := s.ExtractText(context.Background(), imageDoc(), strategy.Options{Language: "pl"}, sink)
	require.NoError(t, err)

	assert.Equal(t, "recognized text", res.Text)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "pol", gotLang)

	require.Len(t, sink.updates, 1)
	assert.Equal(t, strategy.StreamBaselinePercent, sink.updates[0].Percent)
	assert.Contains(t, sink.updates[0].Status, "page 1 of 1")
}

func TestExtractText_RecognitionError(t *testing.T) {
	s := New()
	require.NoError(t, s.Configure(strategy.Config{}))
	s.recognize = func(image []byte, lang string) (string, error) {
		return "", errors.New("no traineddata")
	}

	_, err := s.ExtractText(context.Background(), imageDoc(), strategy.Options{}, strategy.NopSink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
}

func TestExtractText_UnsupportedFormat(t *testing.T) {
	s := New()
	require.NoError(t, s.Configure(strategy.Config{}))

	doc := document.New([]byte("%PDF-1.4"), "report.pdf", "application/pdf")
	_, err := s.ExtractText(context.Background(), doc, strategy.Options{}, strategy.NopSink)
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)
}

func TestLanguageMapping(t *testing.T) {
	assert.Equal(t, "eng", tesseractLanguage("en"))
	assert.Equal(t, "deu", tesseractLanguage("DE"))
	assert.Equal(t, "eng", tesseractLanguage("xx"))
	assert.Equal(t, "eng", tesseractLanguage(""))
}
