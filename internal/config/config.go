package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"voicespec/pkg/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// ErrBucketRequired is returned when no storage bucket is configured. The
// pipeline cannot run without one, so startup must fail loudly.
var ErrBucketRequired = errors.New("S3 bucket is not configured (set S3_BUCKET)")

type Config struct {
	S3 struct {
		Region    string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
		Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	} `yaml:"s3"`

	Transcribe struct {
		LanguageCode string        `yaml:"language_code" env:"TRANSCRIBE_LANGUAGE_CODE" env-default:"en-US"`
		MediaFormat  string        `yaml:"media_format" env:"TRANSCRIBE_MEDIA_FORMAT" env-default:"wav"`
		PollInterval time.Duration `yaml:"poll_interval" env:"TRANSCRIBE_POLL_INTERVAL" env-default:"10s"`
		PollTimeout  time.Duration `yaml:"poll_timeout" env:"TRANSCRIBE_POLL_TIMEOUT" env-default:"30m"`
	} `yaml:"transcribe"`

	Bedrock struct {
		ModelID     string  `yaml:"model_id" env:"BEDROCK_MODEL_ID" env-default:"us.anthropic.claude-3-5-sonnet-20241022-v2:0"`
		MaxTokens   int32   `yaml:"max_tokens" env:"BEDROCK_MAX_TOKENS" env-default:"4000"`
		Temperature float32 `yaml:"temperature" env:"BEDROCK_TEMPERATURE" env-default:"0.1"`
	} `yaml:"bedrock"`

	Projects struct {
		Root string `yaml:"root" env:"PROJECTS_ROOT" env-default:"projects"`
	} `yaml:"projects"`

	RabbitMQ struct {
		URL string `yaml:"url" env:"RABBITMQ_URL"`
	} `yaml:"rabbitmq"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	} `yaml:"redis"`

	Postgres struct {
		DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
	} `yaml:"postgres"`
}

// LoadConfig reads configs/config.yaml when present and overlays environment
// variables on top; with no file, the environment alone is used.
func LoadConfig() (*Config, error) {
	// Load .env file
	_ = godotenv.Load()

	var cfg Config
	err := cleanenv.ReadConfig("configs/config.yaml", &cfg)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		if err := cleanenv.UpdateEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
		}
	}

	if cfg.S3.Bucket == "" {
		return nil, ErrBucketRequired
	}

	logger.Info("Config loaded successfully")
	return &cfg, nil
}
