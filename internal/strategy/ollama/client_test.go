package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0o600))
	return path
}

func streamHandler(t *testing.T, fragments []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Len(t, req.Messages[0].Images, 1)

		enc := json.NewEncoder(w)
		for i, frag := range fragments {
			resp := chatResponse{Done: i == len(fragments)-1}
			resp.Message.Content = frag
			require.NoError(t, enc.Encode(resp))
		}
	}
}

func TestClient_ChatStream(t *testing.T) {
	ts := httptest.NewServer(streamHandler(t, []string{"Hello", " World", "!"}))
	defer ts.Close()

	client := NewClient(ClientConfig{Host: ts.URL})
	stream, err := client.Chat(context.Background(), "llama2", "Extract text", writeImage(t))
	require.NoError(t, err)
	defer stream.Close()

	var got string
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got += chunk.Content
	}
	assert.Equal(t, "Hello World!", got)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestClient_ChatServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "model 'llama2' not found"})
	}))
	defer ts.Close()

	client := NewClient(ClientConfig{Host: ts.URL})
	_, err := client.Chat(context.Background(), "llama2", "Extract text", writeImage(t))

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusNotFound, respErr.StatusCode)
	assert.Contains(t, respErr.Message, "not found")
}

func TestClient_ChatMidStreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		resp := chatResponse{}
		resp.Message.Content = "partial"
		require.NoError(t, enc.Encode(resp))
		require.NoError(t, enc.Encode(chatResponse{Error: "model runner crashed"}))
	}))
	defer ts.Close()

	client := NewClient(ClientConfig{Host: ts.URL})
	stream, err := client.Chat(context.Background(), "llama2", "Extract text", writeImage(t))
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", chunk.Content)

	_, err = stream.Next()
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Contains(t, respErr.Message, "crashed")
}

func TestClient_Pull(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pull", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer ts.Close()

	client := NewClient(ClientConfig{Host: ts.URL})
	status, err := client.Pull(context.Background(), "llama2")
	require.NoError(t, err)
	assert.Equal(t, "success", status)
}

func TestClient_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])
		assert.Equal(t, "llama2", req["model"])

		json.NewEncoder(w).Encode(map[string]string{"response": "generated text"})
	}))
	defer ts.Close()

	client := NewClient(ClientConfig{Host: ts.URL})
	out, err := client.Generate(context.Background(), "llama2", "say hi")
	require.NoError(t, err)
	assert.Equal(t, "generated text", out)
}

func TestClient_Version(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/version", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"version": "0.5.1"})
	}))
	defer ts.Close()

	client := NewClient(ClientConfig{Host: ts.URL})
	v, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.5.1", v)
}
