package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"textract/features/storage"
	"textract/internal/document"
	"textract/internal/jobstore"
	"textract/internal/middleware"
	"textract/internal/strategy"
)

type Handler struct {
	service        *Service
	maxUploadBytes int64
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart form with the document under the "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeUploadError(r.Context(), w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeUploadError(r.Context(), w, err)
		return
	}

	req := Request{
		Strategy:        r.FormValue("strategy"),
		Model:           r.FormValue("model"),
		Prompt:          r.FormValue("prompt"),
		Language:        r.FormValue("language"),
		CacheEnabled:    parseCacheFlag(r.FormValue("ocr_cache")),
		StorageProfile:  r.FormValue("storage_profile"),
		StorageFilename: r.FormValue("storage_filename"),
	}

	h.submit(w, r, req, data, header.Filename, header.Header.Get("Content-Type"))
}

// UploadJSON accepts a JSON body with the document as base64.
func (h *Handler) UploadJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var body struct {
		File            string `json:"file"`
		FileName        string `json:"file_name"`
		Strategy        string `json:"strategy"`
		Model           string `json:"model"`
		Prompt          string `json:"prompt"`
		Language        string `json:"language"`
		OCRCache        *bool  `json:"ocr_cache"`
		StorageProfile  string `json:"storage_profile"`
		StorageFilename string `json:"storage_filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeUploadError(r.Context(), w, err)
		return
	}
	if body.File == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "file is required", http.StatusBadRequest)
		return
	}

	data, err := base64.StdEncoding.DecodeString(body.File)
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "file must be base64 encoded", http.StatusBadRequest)
		return
	}

	cacheEnabled := true
	if body.OCRCache != nil {
		cacheEnabled = *body.OCRCache
	}
	req := Request{
		Strategy:        body.Strategy,
		Model:           body.Model,
		Prompt:          body.Prompt,
		Language:        body.Language,
		CacheEnabled:    cacheEnabled,
		StorageProfile:  body.StorageProfile,
		StorageFilename: body.StorageFilename,
	}

	h.submit(w, r, req, data, body.FileName, "")
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, req Request, data []byte, filename, declaredMIME string) {
	if err := req.Validate(); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "file is empty", http.StatusBadRequest)
		return
	}

	doc := document.New(data, filename, declaredMIME)
	submission, err := h.service.Submit(r.Context(), req, doc)
	if err != nil {
		switch {
		case errors.Is(err, strategy.ErrUnknownStrategy),
			errors.Is(err, document.ErrUnsupportedFormat),
			errors.Is(err, storage.ErrUnknownProfile):
			h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		default:
			slog.ErrorContext(r.Context(), "submit failed", "error", err, "strategy", req.Strategy)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, map[string]interface{}{"task_id": submission.TaskID})
}

// Result reports job state in the shape pollers expect: progress as a string
// percentage and elapsed time recomputed at read time.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	record, err := h.service.Result(r.Context(), taskID)
	if err != nil {
		slog.ErrorContext(r.Context(), "result lookup failed", "error", err, "task_id", taskID)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	switch record.State {
	case jobstore.StateProgress:
		info := map[string]interface{}{}
		status := ""
		if record.Progress != nil {
			status = record.Progress.Status
			info["progress"] = strconv.Itoa(record.Progress.Percent)
			info["status"] = record.Progress.Status
			if !record.Progress.StartTime.IsZero() {
				info["start_time"] = record.Progress.StartTime.Unix()
				info["elapsed_time"] = elapsedSince(record.Progress.StartTime)
			}
		}
		h.writeJSON(w, map[string]interface{}{
			"state":  record.State,
			"status": status,
			"info":   info,
		})
	case jobstore.StateSuccess:
		var text string
		if record.Result != nil {
			text = record.Result.Text
		}
		h.writeJSON(w, map[string]interface{}{
			"state":  record.State,
			"status": "Task completed successfully.",
			"result": text,
		})
	case jobstore.StateFailure:
		h.writeJSON(w, map[string]interface{}{
			"state":  record.State,
			"status": record.Error,
		})
	default:
		h.writeJSON(w, map[string]interface{}{
			"state":  jobstore.StatePending,
			"status": "Task is pending...",
		})
	}
}

func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCache(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "cache clear failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]interface{}{"status": "OCR cache cleared"})
}

func (h *Handler) writeUploadError(ctx context.Context, w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.writeError(ctx, w, "PAYLOAD_TOO_LARGE",
			fmt.Sprintf("upload exceeds %d bytes", maxBytesErr.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
}

// parseCacheFlag defaults to true; the cache is opt-out.
func parseCacheFlag(raw string) bool {
	if raw == "" {
		return true
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return enabled
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
