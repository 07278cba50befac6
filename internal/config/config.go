package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all environmentally dependent settings for the BookHaven API
// and the feed seeding worker.
type Config struct {
	APIPort  int    `env:"BH_PORT" envDefault:"8080"`
	LogLevel string `env:"BH_LOG_LEVEL" envDefault:"info"`

	DBPath      string `env:"BH_DB_PATH" envDefault:"bookhaven.db"`
	CacheDBPath string `env:"BH_CACHE_DB_PATH" envDefault:"bookhaven_cache.db"`

	// LLM provider
	GeminiAPIKey    string        `env:"BH_GEMINI_API_KEY"`
	GeminiModel     string        `env:"BH_GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	OllamaHost      string        `env:"BH_OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaModel     string        `env:"BH_OLLAMA_MODEL" envDefault:"llama3"`
	UseLocalOnlyLLM bool          `env:"BH_USE_LOCAL_ONLY_LLM" envDefault:"false"`
	LLMTemperature  float64       `env:"BH_LLM_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens    int           `env:"BH_LLM_MAX_TOKENS" envDefault:"2048"`
	DefaultTimeout  time.Duration `env:"BH_DEFAULT_TIMEOUT" envDefault:"30s"`

	// Search pipeline
	MinSearchLength   int           `env:"BH_MIN_SEARCH_LENGTH" envDefault:"3"`
	MaxResults        int           `env:"BH_MAX_RESULTS" envDefault:"20"`
	PopularBooksLimit int           `env:"BH_POPULAR_BOOKS_LIMIT" envDefault:"12"`
	SearchCacheTTL    time.Duration `env:"BH_SEARCH_CACHE_TTL" envDefault:"24h"`
	PersistAIBooks    bool          `env:"BH_PERSIST_AI_BOOKS" envDefault:"true"`

	// Circuit breaker around the cloud provider
	BreakerFailThreshold int           `env:"BH_BREAKER_FAIL_THRESHOLD" envDefault:"5"`
	BreakerOpenTimeout   time.Duration `env:"BH_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`

	// Feed seeding worker
	FeedURLs          []string `env:"BH_FEED_URLS" envSeparator:","`
	StateFilePath     string   `env:"BH_STATE_FILE_PATH" envDefault:"worker_state.json"`
	WorkerConcurrency int      `env:"BH_WORKER_CONCURRENCY" envDefault:"5"`
	WorkerBatchSize   int      `env:"BH_WORKER_BATCH_SIZE" envDefault:"0"`
	WorkerDelayMS     int      `env:"BH_WORKER_DELAY_MS" envDefault:"0"`
}

// Validate ensures that all required configuration is present and valid.
func (c *Config) Validate() error {
	if !c.UseLocalOnlyLLM && c.GeminiAPIKey == "" {
		return fmt.Errorf("BH_GEMINI_API_KEY is required when BH_USE_LOCAL_ONLY_LLM is false")
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("BH_PORT must be between 1 and 65535")
	}

	if c.MinSearchLength < 0 {
		return fmt.Errorf("BH_MIN_SEARCH_LENGTH cannot be negative")
	}

	if c.MaxResults < 1 {
		return fmt.Errorf("BH_MAX_RESULTS must be at least 1")
	}

	if c.PopularBooksLimit < 1 {
		return fmt.Errorf("BH_POPULAR_BOOKS_LIMIT must be at least 1")
	}

	if c.SearchCacheTTL <= 0 {
		return fmt.Errorf("BH_SEARCH_CACHE_TTL must be positive")
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("BH_WORKER_CONCURRENCY must be at least 1")
	}

	if c.WorkerBatchSize < 0 {
		return fmt.Errorf("BH_WORKER_BATCH_SIZE cannot be negative")
	}

	return nil
}

// Load reads settings from the environment (and an optional .env file) and
// validates them. The caller owns the returned Config; there is no package
// level singleton.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
