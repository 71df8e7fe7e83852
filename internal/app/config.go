package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMinio = "minio"
	StoreGCS   = "gcs"

	ProviderInference = "inference"
	ProviderOpenAI    = "openai"
	ProviderNone      = "none"

	ClassifierGCPVision = "gcp_vision"
)

type Config struct {
	LogMode  string `envconfig:"LOG_MODE" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	WorkerID          string        `envconfig:"WORKER_ID"`
	QueueName         string        `envconfig:"QUEUE_NAME" default:"thinkbank:tasks"`
	PopTimeout        time.Duration `envconfig:"POP_TIMEOUT" default:"5s"`
	ErrorBackoff      time.Duration `envconfig:"ERROR_BACKOFF" default:"1s"`
	ClaimLease        time.Duration `envconfig:"CLAIM_LEASE" default:"30m"`
	AssetTimeout      time.Duration `envconfig:"ASSET_TIMEOUT" default:"10m"`
	// ReconcileInterval spaces re-enqueue passes for assets whose lease expired.
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"5m"`
	TempDir           string        `envconfig:"TEMP_DIR"`

	PostgresDSN          string `envconfig:"POSTGRES_DSN"`
	PostgresHost         string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort         string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser         string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword     string `envconfig:"POSTGRES_PASSWORD"`
	PostgresName         string `envconfig:"POSTGRES_NAME" default:"thinkbank"`
	PostgresSSLMode      string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	PostgresMaxOpenConns int    `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	PostgresMaxIdleConns int    `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	ObjectStore     string `envconfig:"OBJECT_STORE" default:"minio"`
	MinioEndpoint   string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	MinioUser       string `envconfig:"MINIO_USER" default:"minioadmin"`
	MinioPassword   string `envconfig:"MINIO_PASSWORD" default:"minioadmin"`
	MinioSecure     bool   `envconfig:"MINIO_SECURE" default:"false"`
	MinioRegion     string `envconfig:"MINIO_REGION"`
	GCSEmulatorHost string `envconfig:"GCS_EMULATOR_HOST"`

	InferenceBaseURL    string        `envconfig:"INFERENCE_BASE_URL" default:"http://localhost:8000"`
	InferenceAPIKey     string        `envconfig:"INFERENCE_API_KEY"`
	InferenceTimeout    time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"120s"`
	InferenceMaxRetries int           `envconfig:"INFERENCE_MAX_RETRIES" default:"2"`
	TextModel           string        `envconfig:"TEXT_MODEL"`
	EmbedModel          string        `envconfig:"EMBED_MODEL"`
	ImageModel          string        `envconfig:"IMAGE_MODEL"`
	CaptionModel        string        `envconfig:"CAPTION_MODEL"`
	ClassifyModel       string        `envconfig:"CLASSIFY_MODEL"`
	CaptionMaxTokens    int           `envconfig:"CAPTION_MAX_TOKENS" default:"128"`

	TextEmbedProvider string `envconfig:"TEXT_EMBED_PROVIDER" default:"inference"`
	GenerateProvider  string `envconfig:"GENERATE_PROVIDER" default:"inference"`
	OpenAIBaseURL     string `envconfig:"OPENAI_BASE_URL"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string `envconfig:"OPENAI_MODEL"`
	OpenAIEmbedModel  string `envconfig:"OPENAI_EMBED_MODEL"`

	Classifier       string `envconfig:"CLASSIFIER" default:"inference"`
	KeywordTablePath string `envconfig:"KEYWORD_TABLE_PATH"`
	MaxImageSide     int    `envconfig:"MAX_IMAGE_SIDE" default:"1024"`

	OpsAddr string `envconfig:"OPS_ADDR"`

	Environment     string  `envconfig:"ENVIRONMENT" default:"development"`
	OtelEnabled     bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OtelServiceName string  `envconfig:"OTEL_SERVICE_NAME" default:"thinkbank-worker"`
	OtelEndpoint    string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `envconfig:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`
	OtelSampleRatio float64 `envconfig:"OTEL_SAMPLER_RATIO" default:"0.1"`
}

// LoadConfig reads Config from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.ObjectStore = strings.ToLower(strings.TrimSpace(c.ObjectStore))
	c.TextEmbedProvider = strings.ToLower(strings.TrimSpace(c.TextEmbedProvider))
	c.GenerateProvider = strings.ToLower(strings.TrimSpace(c.GenerateProvider))
	c.Classifier = strings.ToLower(strings.TrimSpace(c.Classifier))
	c.WorkerID = strings.TrimSpace(c.WorkerID)
}

func (c Config) Validate() error {
	var problems []string
	if !oneOf(c.ObjectStore, StoreMinio, StoreGCS) {
		problems = append(problems, fmt.Sprintf("OBJECT_STORE=%q (want minio|gcs)", c.ObjectStore))
	}
	if !oneOf(c.TextEmbedProvider, ProviderInference, ProviderOpenAI) {
		problems = append(problems, fmt.Sprintf("TEXT_EMBED_PROVIDER=%q (want inference|openai)", c.TextEmbedProvider))
	}
	if !oneOf(c.GenerateProvider, ProviderInference, ProviderOpenAI, ProviderNone) {
		problems = append(problems, fmt.Sprintf("GENERATE_PROVIDER=%q (want inference|openai|none)", c.GenerateProvider))
	}
	if !oneOf(c.Classifier, ProviderInference, ClassifierGCPVision, ProviderNone) {
		problems = append(problems, fmt.Sprintf("CLASSIFIER=%q (want inference|gcp_vision|none)", c.Classifier))
	}
	usesOpenAI := c.TextEmbedProvider == ProviderOpenAI || c.GenerateProvider == ProviderOpenAI
	if usesOpenAI && strings.TrimSpace(c.OpenAIBaseURL) == "" {
		problems = append(problems, "OPENAI_BASE_URL is required when a provider is openai")
	}
	if strings.TrimSpace(c.InferenceBaseURL) == "" {
		problems = append(problems, "INFERENCE_BASE_URL is required")
	}
	if c.PopTimeout < time.Second {
		problems = append(problems, "POP_TIMEOUT must be at least 1s")
	}
	if c.ClaimLease <= 0 || c.AssetTimeout <= 0 || c.ReconcileInterval <= 0 {
		problems = append(problems, "CLAIM_LEASE, ASSET_TIMEOUT and RECONCILE_INTERVAL must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
