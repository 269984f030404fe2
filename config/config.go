// Package config reads runtime settings from the environment (and .env, when present).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"newsbot/common"
	"newsbot/deduplication"
	"newsbot/rssfeeds"
	"newsbot/storage"

	"github.com/joho/godotenv"
)

// Defaults for settings that have no natural zero value.
const (
	DefaultPort          = "8080"
	DefaultKafkaGroupID  = "newsbot-dedup"
	DefaultUserAgent     = "Mozilla/5.0 (compatible; newsbot/1.0)"
	DefaultKeywordColumn = "Keyword"
	DefaultBloomKey      = "newsbot:bloom:articles"
)

// Config is the complete runtime configuration.
type Config struct {
	Port      string
	LogLevel  string
	LogPretty bool

	Store storage.Config

	Strategy   deduplication.Strategy
	Threshold  float64
	Workers    int
	Embeddings deduplication.EmbeddingsConfig

	Budget       int
	SourcesPath  string
	KeywordFiles []rssfeeds.KeywordFile
	UserAgent    string
	PTTEnabled   bool
	PTTBaseURL   string

	BloomEnabled bool
	Bloom        deduplication.BloomConfig

	KafkaBrokers []string
	KafkaGroupID string

	S3       common.S3Config
	S3Bucket string
	S3Prefix string

	Schedule []string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	strategy, err := deduplication.ParseStrategy(os.Getenv("DEDUP_STRATEGY"))
	if err != nil {
		return nil, err
	}

	threshold := getEnvFloatOrDefault("DEDUP_THRESHOLD", deduplication.DefaultSimilarityThreshold)
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("DEDUP_THRESHOLD must be between 0 and 1, got %v", threshold)
	}

	cfg := &Config{
		Port:      getEnvOrDefault("PORT", DefaultPort),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogPretty: getEnvBoolOrDefault("LOG_PRETTY", true),

		Store: storage.Config{
			Backend:     getEnvOrDefault("STORE_BACKEND", storage.BackendMemory),
			RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix: os.Getenv("REDIS_PREFIX"),
			SQLitePath:  getEnvOrDefault("SQLITE_PATH", "newsbot.db"),
			PostgresURL: os.Getenv("POSTGRES_URL"),
		},

		Strategy:  strategy,
		Threshold: threshold,
		Workers:   getEnvIntOrDefault("DEDUP_WORKERS", 0),
		Embeddings: deduplication.EmbeddingsConfig{
			Model:          os.Getenv("EMBEDDINGS_MODEL"),
			CohereAPIKey:   os.Getenv("COHERE_API_KEY"),
			OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
			OpenAIEndpoint: os.Getenv("OPENAI_EMBEDDINGS_URL"),
			OpenAIOrgID:    os.Getenv("OPENAI_ORG_ID"),
			Timeout:        getEnvDurationOrDefault("EMBEDDINGS_TIMEOUT", 30*time.Second),
		},

		Budget:       getEnvIntOrDefault("INGEST_BUDGET", rssfeeds.DefaultBudget),
		SourcesPath:  os.Getenv("SOURCES_FILE"),
		KeywordFiles: parseKeywordFiles(os.Getenv("KEYWORD_FILES")),
		UserAgent:    getEnvOrDefault("USER_AGENT", DefaultUserAgent),
		PTTEnabled:   getEnvBoolOrDefault("PTT_ENABLED", true),
		PTTBaseURL:   os.Getenv("PTT_BASE_URL"),

		BloomEnabled: getEnvBoolOrDefault("BLOOM_ENABLED", false),
		Bloom: deduplication.BloomConfig{
			Key:        getEnvOrDefault("BLOOM_KEY", DefaultBloomKey),
			TTL:        getEnvDurationOrDefault("BLOOM_TTL", 0),
			Capacity:   getEnvIntOrDefault("BLOOM_CAPACITY", 0),
			ErrorRate:  getEnvFloatOrDefault("BLOOM_ERROR_RATE", 0),
			NonScaling: getEnvBoolOrDefault("BLOOM_NONSCALING", false),
		},

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID: getEnvOrDefault("KAFKA_GROUP_ID", DefaultKafkaGroupID),

		S3: common.S3Config{
			Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
			Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
			Endpoint:     strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			UsePathStyle: getEnvBoolOrDefault("S3_USE_PATH_STYLE", false),
		},
		S3Bucket: strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Prefix: strings.TrimSpace(os.Getenv("S3_PREFIX")),

		Schedule: splitSchedule(os.Getenv("SCHEDULE")),
	}
	return cfg, nil
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// S3Enabled reports whether a bucket is configured.
func (c *Config) S3Enabled() bool { return c.S3Bucket != "" }

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitSchedule splits cron specs on ';' since specs themselves contain spaces and commas.
func splitSchedule(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseKeywordFiles reads "path[:column],path[:column]".
func parseKeywordFiles(raw string) []rssfeeds.KeywordFile {
	var files []rssfeeds.KeywordFile
	for _, entry := range splitList(raw) {
		file := rssfeeds.KeywordFile{Path: entry, Column: DefaultKeywordColumn}
		if i := strings.LastIndex(entry, ":"); i > 0 {
			file.Path = strings.TrimSpace(entry[:i])
			if col := strings.TrimSpace(entry[i+1:]); col != "" {
				file.Column = col
			}
		}
		files = append(files, file)
	}
	return files
}
