package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"textract/features/job"
	"textract/features/llm"
	"textract/features/ocr"
	"textract/features/storage"
	"textract/internal/cache"
	"textract/internal/config"
	"textract/internal/jobstore"
	"textract/internal/middleware"
	"textract/internal/strategy"
	"textract/internal/strategy/doctext"
	"textract/internal/strategy/gemini"
	"textract/internal/strategy/ollama"
	"textract/internal/strategy/tesseract"
	"textract/internal/worker"
)

type TaskPublisher interface {
	Publish(topic string, body []byte) error
	Ping() error
}

type App struct {
	Handler  http.Handler
	Consumer *worker.OCRConsumer

	cfg *config.Config
}

func New(cfg *config.Config, db *sql.DB, redisClient *redis.Client, producer TaskPublisher) (*App, error) {
	cacheStore := cache.NewRedisStore(redisClient)
	jobs := jobstore.NewRedisStore(redisClient, time.Duration(cfg.ResultExpires)*time.Second)

	registry := strategy.NewRegistry(map[string]strategy.Factory{
		"ollama":    ollama.Factory,
		"gemini":    gemini.Factory,
		"tesseract": tesseract.Factory,
		"doc_text":  doctext.Factory,
	}, cfg.StrategiesConfigPath)
	if err := registry.LoadConfig(); err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}

	profiles := storage.NewManager(cfg.StorageProfilePath)

	// Feature: Job (failed-task archive, optional)
	var archiver worker.FailedJobArchiver
	var jobHandler *job.Handler
	if db != nil {
		jobService := job.NewService(job.NewPostgresRepo(db), producer)
		archiver = jobService
		jobHandler = job.NewHandler(jobService)
	}

	// Feature: OCR
	ocrService := ocr.NewService(registry, cacheStore, jobs, profiles, producer, config.TopicOCRTask)
	ocrHandler := ocr.NewHandler(ocrService, cfg.MaxUploadSizeMB<<20)

	// Feature: LLM passthrough
	ollamaClient := ollama.NewClient(ollama.ClientConfig{
		Host:    cfg.OllamaHost,
		Timeout: time.Duration(cfg.OCRRequestTimeout) * time.Second,
	})
	llmHandler := llm.NewHandler(ollamaClient)

	// Feature: Storage
	storageHandler := storage.NewHandler(profiles)

	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Correlation-ID"},
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Text Extract API is running","status":"healthy"}`))
	})

	r.Post("/ocr", ocrHandler.Upload)
	r.Post("/ocr/upload", ocrHandler.Upload)
	r.Post("/ocr/request", ocrHandler.UploadJSON)
	r.Get("/ocr/result/{task_id}", ocrHandler.Result)
	r.Post("/ocr/clear_cache", ocrHandler.ClearCache)

	r.Post("/llm/pull", llmHandler.Pull)
	r.Post("/llm/generate", llmHandler.Generate)

	r.Get("/storage/list", storageHandler.List)
	r.Get("/storage/load", storageHandler.Load)
	r.Delete("/storage/delete", storageHandler.Delete)

	if jobHandler != nil {
		r.Get("/jobs/failed", jobHandler.List)
		r.Post("/jobs/{id}/retry", jobHandler.Retry)
	}

	r.Get("/health", healthHandler(redisClient, ollamaClient, producer))

	consumer := worker.NewOCRConsumer(registry, jobs, cacheStore, profiles, archiver,
		time.Duration(cfg.TaskTimeLimit)*time.Second)

	return &App{
		Handler:  r,
		Consumer: consumer,
		cfg:      cfg,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type versionChecker interface {
	Version(ctx context.Context) (string, error)
}

// healthHandler reports per-dependency status; the endpoint itself always
// answers so probes can distinguish a degraded service from a dead one.
func healthHandler(redisClient *redis.Client, ollamaClient versionChecker, producer TaskPublisher) http.HandlerFunc {
	check := func(err error) string {
		if err != nil {
			return "unavailable"
		}
		return "ok"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		services := map[string]string{
			"redis": check(redisClient.Ping(ctx).Err()),
			"nsq":   check(producer.Ping()),
		}
		_, ollamaErr := ollamaClient.Version(ctx)
		services["ollama"] = check(ollamaErr)

		status := "ok"
		for _, s := range services {
			if s != "ok" {
				status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   status,
			"services": services,
		}); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}
