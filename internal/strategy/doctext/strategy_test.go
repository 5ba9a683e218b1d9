package doctext

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textract/internal/document"
	"textract/internal/strategy"
)

func TestName(t *testing.T) {
	assert.Equal(t, "doc_text", New().Name())
}

func TestAccepts(t *testing.T) {
	s := New()
	assert.True(t, s.Accepts("application/pdf"))
	assert.True(t, s.Accepts("text/plain"))
	assert.False(t, s.Accepts("image/png"))
}

func TestExtractText(t *testing.T) {
	s := New()
	require.NoError(t, s.Configure(strategy.Config{}))

	var gotMIME string
	s.convert = func(r io.Reader, mimeType string) (string, error) {
		gotMIME = mimeType
		return "invoice total: 42.00", nil
	}

	doc := document.New([]byte("%PDF-1.4 ..."), "invoice.pdf", "application/pdf")
	sink := &captureSink{}

	res, err := s.ExtractText(context.Background(), doc, strategy.Options{}, sink)
	require.NoError(t, err)
	assert.Equal(t, "invoice total: 42.00", res.Text)
	assert.Equal(t, "application/pdf", gotMIME)

	require.Len(t, sink.updates, 1)
	assert.Equal(t, strategy.StreamBaselinePercent+strategy.StreamBudgetPercent, sink.updates[0].Percent)
}

func TestExtractText_ConversionError(t *testing.T) {
	s := New()
	s.convert = func(r io.Reader, mimeType string) (string, error) {
		return "", errors.New("broken file")
	}

	doc := document.New([]byte("junk"), "broken.pdf", "application/pdf")
	_, err := s.ExtractText(context.Background(), doc, strategy.Options{}, strategy.NopSink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc_text extraction")
}

func TestExtractText_UnsupportedFormat(t *testing.T) {
	s := New()
	doc := document.New([]byte{0x89, 0x50}, "scan.png", "image/png")

	_, err := s.ExtractText(context.Background(), doc, strategy.Options{}, strategy.NopSink)
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)
}

type captureSink struct {
	updates []strategy.Progress
}

func (c *captureSink) Update(p strategy.Progress) { c.updates = append(c.updates, p) }
