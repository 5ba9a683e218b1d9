package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"textract/internal/middleware"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	files, err := profile.List()
	if err != nil {
		slog.ErrorContext(r.Context(), "storage list failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []string{}
	}

	h.writeJSON(w, map[string]interface{}{"files": files})
}

func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	fileName := r.URL.Query().Get("file_name")
	if fileName == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "file_name is required", http.StatusBadRequest)
		return
	}

	content, err := profile.Load(fileName)
	if errors.Is(err, ErrNotFound) {
		h.writeError(r.Context(), w, "NOT_FOUND", err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "storage load failed", "error", err, "file_name", fileName)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]interface{}{"content": string(content)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	fileName := r.URL.Query().Get("file_name")
	if fileName == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "file_name is required", http.StatusBadRequest)
		return
	}

	err := profile.Delete(fileName)
	if errors.Is(err, ErrNotFound) {
		h.writeError(r.Context(), w, "NOT_FOUND", err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "storage delete failed", "error", err, "file_name", fileName)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]interface{}{"status": "File deleted"})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) (Profile, bool) {
	name := r.URL.Query().Get("storage_profile")
	if name == "" {
		name = "default"
	}

	profile, err := h.manager.Get(name)
	if errors.Is(err, ErrUnknownProfile) {
		h.writeError(r.Context(), w, "NOT_FOUND", err.Error(), http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "storage profile load failed", "error", err, "profile", name)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return profile, true
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
