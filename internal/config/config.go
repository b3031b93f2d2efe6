package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// APIKey is the static bearer token that authenticates HTTP clients.
	APIKey string `envconfig:"API_KEY"`

	LLMBaseURL        string  `envconfig:"LLM_BASE_URL" default:"http://localhost:11434/v1"`
	LLMModel          string  `envconfig:"LLM_MODEL" default:"llama3.1:8b"`
	LLMAPIKey         string  `envconfig:"LLM_API_KEY"`
	LLMTemperature    float32 `envconfig:"LLM_TEMPERATURE" default:"0.1"`
	LLMTimeoutSeconds int     `envconfig:"LLM_TIMEOUT_SECONDS" default:"25"`
	LLMMaxAttempts    int     `envconfig:"LLM_MAX_ATTEMPTS" default:"3"`

	ChunkMaxChars       int `envconfig:"CHUNK_MAX_CHARS" default:"1400"`
	ChunkOverlap        int `envconfig:"CHUNK_OVERLAP" default:"200"`
	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`

	// S3 settings back the knowledge importer, not the serving path.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"triagekit-knowledge"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TRIAGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}
