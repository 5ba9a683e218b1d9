package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"textract/internal/middleware"
)

// OllamaAPI is the slice of the model server the passthrough endpoints use.
type OllamaAPI interface {
	Pull(ctx context.Context, model string) (string, error)
	Generate(ctx context.Context, model, prompt string) (string, error)
}

type Handler struct {
	ollama OllamaAPI
}

func NewHandler(ollama OllamaAPI) *Handler {
	return &Handler{ollama: ollama}
}

// Pull downloads a model into the local Ollama instance.
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "model is required", http.StatusBadRequest)
		return
	}

	status, err := h.ollama.Pull(r.Context(), req.Model)
	if err != nil {
		slog.ErrorContext(r.Context(), "model pull failed", "error", err, "model", req.Model)
		h.writeError(r.Context(), w, "UPSTREAM_ERROR", err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, map[string]interface{}{"status": status})
}

// Generate runs a plain text completion without any document involved.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "prompt is required", http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "model is required", http.StatusBadRequest)
		return
	}

	text, err := h.ollama.Generate(r.Context(), req.Model, req.Prompt)
	if err != nil {
		slog.ErrorContext(r.Context(), "generation failed", "error", err, "model", req.Model)
		h.writeError(r.Context(), w, "UPSTREAM_ERROR", err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, map[string]interface{}{"generated_text": text})
}

func (h *Handler) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
