package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
	RedisURL     string
	Stream       string
	Group        string
	PollInterval time.Duration
}

// WorkerConfig defines the task worker pool.
type WorkerConfig struct {
	Concurrency  int
	AsyncEvents  bool
	EventBuffer  int
	DequeueBlock time.Duration
}

// OutputConfig carries the defaults applied to task outputs when a
// request leaves them unset.
type OutputConfig struct {
	ExistingOutputPolicy string
	Compress             bool
	Version              string
}

// StorageConfig configures remote source resolution and result upload.
// Endpoint and the key pair are only needed for S3-compatible stores
// outside AWS; with them empty the default credential chain is used.
type StorageConfig struct {
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	UploadTo    string
	TempDir     string
	HTTPLimit   time.Duration
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Port string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Queue   QueueConfig
	Worker  WorkerConfig
	Output  OutputConfig
	Storage StorageConfig
	HTTP    HTTPConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdfbatch.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdfbatch",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Queue = QueueConfig{
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		Stream:       getEnv("QUEUE_STREAM", "tasks:pdf"),
		Group:        getEnv("QUEUE_GROUP", "workers:pdf"),
		PollInterval: parseDuration(getEnv("QUEUE_POLL_INTERVAL", "100ms"), 100*time.Millisecond),
	}

	cfg.Worker = WorkerConfig{
		Concurrency:  parseInt(getEnv("WORKER_CONCURRENCY", "4"), 4),
		AsyncEvents:  parseBool(getEnv("ASYNC_EVENTS", "true")),
		EventBuffer:  parseInt(getEnv("EVENT_BUFFER", "64"), 64),
		DequeueBlock: parseDuration(getEnv("DEQUEUE_BLOCK", "2s"), 2*time.Second),
	}

	cfg.Output = OutputConfig{
		ExistingOutputPolicy: getEnv("EXISTING_OUTPUT_POLICY", "fail"),
		Compress:             parseBool(getEnv("OUTPUT_COMPRESS", "true")),
		Version:              getEnv("OUTPUT_PDF_VERSION", ""),
	}

	cfg.Storage = StorageConfig{
		S3Bucket:    getEnv("AWS_S3_BUCKET", ""),
		S3Region:    getEnv("AWS_REGION", ""),
		S3Endpoint:  getEnv("AWS_S3_ENDPOINT", ""),
		S3AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		UploadTo:    getEnv("RESULT_UPLOAD_PREFIX", ""),
		TempDir:     getEnv("TEMP_DIR", ""),
		HTTPLimit:   parseDuration(getEnv("HTTP_DOWNLOAD_TIMEOUT", "60s"), 60*time.Second),
	}

	cfg.HTTP = HTTPConfig{
		Port: getEnv("PORT", "8080"),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
