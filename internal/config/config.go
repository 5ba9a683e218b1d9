package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8000"`
	RedisCacheURL string `envconfig:"REDIS_CACHE_URL" default:"redis://localhost:6379/1"`

	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`

	OllamaHost   string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	// Task execution knobs. TaskTimeLimit bounds one delivery attempt of an
	// OCR task (NSQ message timeout); ResultExpires is the retention window
	// for job records in Redis. All values are seconds.
	OCRRequestTimeout int `envconfig:"OCR_REQUEST_TIMEOUT" default:"300"`
	TaskTimeLimit     int `envconfig:"TASK_TIME_LIMIT" default:"1800"`
	ResultExpires     int `envconfig:"RESULT_EXPIRES" default:"3600"`
	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`
	WorkerPrefetch    int `envconfig:"WORKER_PREFETCH" default:"1"`
	TaskMaxAttempts   int `envconfig:"TASK_MAX_ATTEMPTS" default:"2"`

	StrategiesConfigPath string `envconfig:"OCR_CONFIG_PATH" default:"config/strategies.yaml"`
	StorageProfilePath   string `envconfig:"STORAGE_PROFILE_PATH" default:"./storage_profiles"`
	MaxUploadSizeMB      int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`

	// Failed-job archive (Postgres). Optional; the pipeline runs without it.
	EnableJobArchive bool   `envconfig:"ENABLE_JOB_ARCHIVE" default:"true"`
	DBHost           string `envconfig:"DB_HOST" default:"postgres"`
	DBPort           int    `envconfig:"DB_PORT" default:"5432"`
	DBUser           string `envconfig:"DB_USER" default:"textract"`
	DBPass           string `envconfig:"DB_PASS" default:"password"`
	DBName           string `envconfig:"DB_NAME" default:"textract"`
	MigrationPath    string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.RedisCacheURL == "" {
		return fmt.Errorf("%w: REDIS_CACHE_URL", ErrMissingRequired)
	}
	if c.NSQDHost == "" {
		return fmt.Errorf("%w: NSQD_HOST", ErrMissingRequired)
	}
	if c.EnableJobArchive {
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	return nil
}
