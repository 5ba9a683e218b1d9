package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	defaultHost    = "http://localhost:11434"
	defaultTimeout = 5 * time.Minute
)

// ResponseError is a service-level failure reported by the Ollama API, as
// opposed to a transport failure.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("ollama: %s (status %d)", e.Message, e.StatusCode)
}

// ClientConfig configures the Ollama HTTP client.
type ClientConfig struct {
	// Host is the Ollama base URL (default http://localhost:11434).
	Host string

	// Timeout bounds every phase of a call symmetrically: dial, TLS,
	// response headers, idle and the total request including the streamed
	// body (default 5m).
	Timeout time.Duration
}

// Client talks to the Ollama HTTP API.
type Client struct {
	host string
	http *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	return &Client{
		host: cfg.Host,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.Timeout,
				ResponseHeaderTimeout: cfg.Timeout,
				IdleConnTimeout:       cfg.Timeout,
			},
		},
	}
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// ChatChunk is one streamed fragment of the model's response.
type ChatChunk struct {
	Content string
}

// ChatStream is a lazy sequence of chat chunks. Next returns io.EOF once the
// stream is exhausted; Close releases the underlying connection.
type ChatStream struct {
	body io.ReadCloser
	dec  *json.Decoder
	done bool
}

func (s *ChatStream) Next() (ChatChunk, error) {
	if s.done {
		return ChatChunk{}, io.EOF
	}
	var resp chatResponse
	if err := s.dec.Decode(&resp); err != nil {
		if err == io.EOF {
			s.done = true
			return ChatChunk{}, io.EOF
		}
		return ChatChunk{}, fmt.Errorf("decode chat stream: %w", err)
	}
	if resp.Error != "" {
		s.done = true
		return ChatChunk{}, &ResponseError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	if resp.Done {
		s.done = true
	}
	return ChatChunk{Content: resp.Message.Content}, nil
}

func (s *ChatStream) Close() error { return s.body.Close() }

// Chat sends one user message with an image attachment and returns the
// streamed response. The image is read from imagePath at dispatch time; the
// caller may delete the file as soon as Chat returns.
func (c *Client) Chat(ctx context.Context, model, prompt, imagePath string) (*ChatStream, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read page image: %w", err)
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: prompt,
			Images:  []string{base64.StdEncoding.EncodeToString(img)},
		}},
		Stream: true,
	}

	resp, err := c.post(ctx, "/api/chat", reqBody)
	if err != nil {
		return nil, err
	}

	return &ChatStream{body: resp.Body, dec: json.NewDecoder(resp.Body)}, nil
}

// Pull downloads a model, non-streaming.
func (c *Client) Pull(ctx context.Context, model string) (string, error) {
	resp, err := c.post(ctx, "/api/pull", map[string]interface{}{"model": model, "stream": false})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode pull response: %w", err)
	}
	return out.Status, nil
}

// Generate runs a plain completion, non-streaming.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.post(ctx, "/api/generate", map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.Response, nil
}

// Version reports the server version; used by health checks.
func (c *Client) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ResponseError{StatusCode: resp.StatusCode, Message: "version check failed"}
	}

	var out struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode version response: %w", err)
	}
	return out.Version, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		msg := string(respBody)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, &ResponseError{StatusCode: resp.StatusCode, Message: msg}
	}

	return resp, nil
}
