package config

import (
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	// DatabaseURL is optional: without it the CLI reads the project registry
	// from ProjectCSVPath and nothing is persisted.
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	ProjectCSVPath string `envconfig:"PROJECT_CSV_PATH" default:"data/project.csv"`

	// Static bearer token guarding the HTTP API. Empty disables auth.
	APIKey       string `envconfig:"API_KEY"`
	UploadTmpDir string `envconfig:"UPLOAD_TMP_DIR" default:"tmp/uploads"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"status-reports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	AzureAPIKey     string `envconfig:"AZURE_OPENAI_API_KEY"`
	AzureEndpoint   string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureDeployment string `envconfig:"AZURE_OPENAI_DEPLOYMENT"`
	AzureAPIVersion string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-02-15-preview"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	LLMTimeout          time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	MaxContextTokens    int           `envconfig:"AZURE_OPENAI_MAX_CONTEXT" default:"8000"`
	MaxInputTokens      int           `envconfig:"AZURE_OPENAI_MAX_INPUT" default:"3500"`
	MaxOutputTokens     int           `envconfig:"AZURE_OPENAI_MAX_OUTPUT" default:"4000"`
	SafetyBufferTokens  int           `envconfig:"AZURE_OPENAI_SAFETY_BUFFER" default:"500"`
	WhitelistEnabled    bool          `envconfig:"LLM_DB_WHITELIST" default:"false"`
	ChunkAllCandidates  bool          `envconfig:"LLM_CHUNK_ALL_CANDIDATES" default:"false"`
	MaxSectionChars     int           `envconfig:"MAX_SECTION_CHARS" default:"4000"`
	NearMergeMinGap     int           `envconfig:"MIN_GAP" default:"80"`
	AliasBatchSize      int           `envconfig:"ALIAS_BATCH_SIZE" default:"1200"`
	ImportPollInterval  time.Duration `envconfig:"IMPORT_POLL_INTERVAL" default:"10s"`
	UploadRetentionTime time.Duration `envconfig:"UPLOAD_RETENTION" default:"24h"`
	MaxBodyBytes        int64         `envconfig:"MAX_BODY_BYTES" default:"26214400"`
}

// TokenLimits is the LLM token budget
type TokenLimits struct {
	MaxContext   int
	MaxInput     int
	MaxOutput    int
	SafetyBuffer int
}

// OutputTokens is the completion budget for a prompt filling the whole
// input budget
func (l TokenLimits) OutputTokens() int {
	return l.OutputTokensFor(l.MaxInput)
}

// OutputTokensFor is the completion budget left by a prompt of inputTokens
func (l TokenLimits) OutputTokensFor(inputTokens int) int {
	available := l.MaxContext - inputTokens - l.SafetyBuffer
	if available < 1000 {
		available = 1000
	}
	if available > l.MaxOutput {
		return l.MaxOutput
	}
	return available
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DIGEST", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
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

// Validate rejects token budgets that cannot fit the context window
func (c *Config) Validate() error {
	if c.MaxInputTokens+c.MaxOutputTokens > c.MaxContextTokens {
		return fmt.Errorf("%w: %d + %d > %d", domain.ErrInvalidTokenBudget,
			c.MaxInputTokens, c.MaxOutputTokens, c.MaxContextTokens)
	}
	return nil
}

func (c *Config) TokenLimits() TokenLimits {
	return TokenLimits{
		MaxContext:   c.MaxContextTokens,
		MaxInput:     c.MaxInputTokens,
		MaxOutput:    c.MaxOutputTokens,
		SafetyBuffer: c.SafetyBufferTokens,
	}
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasAzure() bool {
	return c.AzureAPIKey != "" && c.AzureEndpoint != "" && c.AzureDeployment != ""
}

func (c *Config) HasLLM() bool {
	return c.HasAzure() || c.OpenAIAPIKey != ""
}
