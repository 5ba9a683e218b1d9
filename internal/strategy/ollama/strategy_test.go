package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func newTestStrategy(t *testing.T, host string) *Strategy {
	t.Helper()
	s := New()
	require.NoError(t, s.Configure(strategy.Config{
		Backend: "ollama",
		Host:    host,
		Model:   "llama2",
		Prompt:  "Extract text from this image",
	}))
	return s
}

type captureSink struct {
	updates []strategy.Progress
}

func (c *captureSink) Update(p strategy.Progress) { c.updates = append(c.updates, p) }

func TestExtractText_SinglePage(t *testing.T) {
	ts := httptest.NewServer(streamHandler(t, []string{"Hello", " World", "!"}))
	defer ts.Close()

	s := newTestStrategy(t, ts.URL)
	sink := &captureSink{}

	res, err := s.ExtractText(context.Background(), imageDoc(), strategy.Options{Language: "en"}, sink)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", res.Text)
	assert.Equal(t, 1, res.Pages)

	require.Len(t, sink.updates, 3)
	first := sink.updates[0]
	assert.Equal(t, strategy.StreamBaselinePercent, first.Percent)
	assert.Contains(t, first.Status, "OCR Processing")
	assert.Contains(t, first.Status, "page 1 of 1")
	assert.Contains(t, first.Status, "chunk no: 1")
	assert.Contains(t, sink.updates[2].Status, "chunk no: 3")
	assert.False(t, first.StartTime.IsZero())
}

func TestExtractText_ProgressMonotonic(t *testing.T) {
	ts := httptest.NewServer(streamHandler(t, []string{"a", "b", "c", "d"}))
	defer ts.Close()

	s := newTestStrategy(t, ts.URL)
	sink := &captureSink{}

	_, err := s.ExtractText(context.Background(), imageDoc(), strategy.Options{}, sink)
	require.NoError(t, err)

	last := -1
	for _, u := range sink.updates {
		assert.GreaterOrEqual(t, u.Percent, last)
		last = u.Percent
	}
}

func TestExtractText_ModelOverride(t *testing.T) {
	var gotModel string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model

		resp := chatResponse{Done: true}
		resp.Message.Content = "text"
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	s := newTestStrategy(t, ts.URL)
	_, err := s.ExtractText(context.Background(), imageDoc(), strategy.Options{Model: "llava"}, strategy.NopSink)
	require.NoError(t, err)
	assert.Equal(t, "llava", gotModel)
}

func TestExtractText_ServiceErrorNamesModel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "model 'llama2' not found, try pulling it first"})
	}))
	defer ts.Close()

	s := newTestStrategy(t, ts.URL)
	_, err := s.ExtractText(context.Background(), imageDoc(), strategy.Options{}, strategy.NopSink)

	var backendErr *strategy.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "llama2", backendErr.Model)
	assert.Contains(t, err.Error(), "llama2")
}

func TestExtractText_UnsupportedFormat(t *testing.T) {
	s := newTestStrategy(t, "http://localhost:1")
	doc := document.New([]byte("%PDF-1.4"), "report.pdf", "application/pdf")

	_, err := s.ExtractText(context.Background(), doc, strategy.Options{}, strategy.NopSink)
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "application/pdf")
}

func TestExtractText_TransportErrorNotWrapped(t *testing.T) {
	// Unreachable host: a transport failure is not a recognized service
	// error and must propagate without the BackendError wrapper.
	s := newTestStrategy(t, "http://127.0.0.1:1")

	_, err := s.ExtractText(context.Background(), imageDoc(), strategy.Options{}, strategy.NopSink)
	require.Error(t, err)
	var backendErr *strategy.BackendError
	assert.NotErrorAs(t, err, &backendErr)
}

func TestAccepts(t *testing.T) {
	s := New()
	require.NoError(t, s.Configure(strategy.Config{}))
	assert.True(t, s.Accepts("image/jpeg"))
	assert.False(t, s.Accepts("application/pdf"))
}

func TestName(t *testing.T) {
	assert.Equal(t, "llama_vision", New().Name())
}
