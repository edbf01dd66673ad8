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
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"corpora"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"corpora"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	// Blob storage: "fs" keeps bytes on local disk, "gcs" uses a bucket.
	BlobStoreMode string `envconfig:"BLOB_STORE_MODE" default:"fs"`
	BlobStoreDir  string `envconfig:"BLOB_STORE_DIR" default:"./data/blobs"`
	BlobBucket    string `envconfig:"BLOB_BUCKET"`

	EnableAPI           bool   `envconfig:"ENABLE_API" default:"true"`
	EnableExtractWorker bool   `envconfig:"ENABLE_EXTRACT_WORKER" default:"false"`
	EnableIndexWorker   bool   `envconfig:"ENABLE_INDEX_WORKER" default:"false"`
	MigrationPath       string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	GeminiAPIKey        string `envconfig:"GEMINI_API_KEY"`
	RerankAPIKey        string `envconfig:"RERANK_API_KEY"`
	NSQMaxMsgSize       int64  `envconfig:"NSQ_MAX_MSG_SIZE" default:"10485760"` // 10MB

	// Extraction job leasing
	LeaseTTLSeconds       int `envconfig:"LEASE_TTL_SECONDS" default:"300"`
	ReaperIntervalSeconds int `envconfig:"REAPER_INTERVAL_SECONDS" default:"60"`

	// Question/answer generation
	QAPairsPerChunk int `envconfig:"QA_PAIRS_PER_CHUNK" default:"3"`

	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	// Try finding root .env (assuming 2 levels up if in apps/backend)
	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
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
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.BlobStoreMode != "fs" && c.BlobStoreMode != "gcs" {
		return fmt.Errorf("%w: BLOB_STORE_MODE must be fs or gcs", ErrMissingRequired)
	}
	if c.BlobStoreMode == "gcs" && c.BlobBucket == "" {
		return fmt.Errorf("%w: BLOB_BUCKET", ErrMissingRequired)
	}
	if c.LeaseTTLSeconds <= 0 {
		return fmt.Errorf("%w: LEASE_TTL_SECONDS must be positive", ErrMissingRequired)
	}
	return nil
}
