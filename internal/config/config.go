package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Log        LogConfig
	Generation GenerationConfig
	RateLimit  RateLimitConfig
	Corpus     CorpusConfig
	Qdrant     QdrantConfig
	Storage    StorageConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type GenerationConfig struct {
	Provider        string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Model           string
	EscalationModel string
	EmbeddingModel  string

	MaxAttempts       int
	RequestTimeout    time.Duration
	ProbeTimeout      time.Duration
	MinSpacing        time.Duration
	EvaluationTimeout time.Duration

	TopP            float64
	MaxOutputTokens int
	StopSequences   []string
}

type RateLimitConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Key           string
}

type CorpusConfig struct {
	Source string
	Limit  int
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
	S3Region    string
}

type WorkerConfig struct {
	Concurrency      int
	RetryMaxAttempts int
	PollInterval     time.Duration
	StaleAfter       time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "assessment_engine"),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", false),
		},
		Generation: GenerationConfig{
			Provider:          strings.ToLower(getEnv("GENERATION_PROVIDER", "gemini")),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:             getEnv("GENERATION_MODEL", ""),
			EscalationModel:   getEnv("GENERATION_ESCALATION_MODEL", ""),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			MaxAttempts:       getEnvAsInt("GENERATION_MAX_ATTEMPTS", 3),
			RequestTimeout:    getEnvAsDuration("GENERATION_TIMEOUT", "300s"),
			ProbeTimeout:      getEnvAsDuration("GENERATION_PROBE_TIMEOUT", "5s"),
			MinSpacing:        getEnvAsDuration("GENERATION_MIN_SPACING", "5s"),
			EvaluationTimeout: getEnvAsDuration("EVALUATION_TIMEOUT", "60s"),
			TopP:              getEnvAsFloat("GENERATION_TOP_P", 0.95),
			MaxOutputTokens:   getEnvAsInt("GENERATION_MAX_OUTPUT_TOKENS", 4096),
			StopSequences:     getEnvAsList("GENERATION_STOP_SEQUENCES", nil),
		},
		RateLimit: RateLimitConfig{
			Backend:       strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			Key:           getEnv("RATE_LIMIT_KEY", "assessment:generation:last_request"),
		},
		Corpus: CorpusConfig{
			Source: strings.ToLower(getEnv("CORPUS_SOURCE", "postgres")),
			Limit:  getEnvAsInt("CORPUS_LIMIT", 500),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "issued_tests"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			S3Region:    getEnv("S3_REGION", ""),
		},
		Worker: WorkerConfig{
			Concurrency:      getEnvAsInt("WORKER_CONCURRENCY", 3),
			RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			PollInterval:     getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
			StaleAfter:       getEnvAsDuration("WORKER_STALE_AFTER", "15m"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// Validate reports configuration combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Generation.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported generation provider %q", c.Generation.Provider)
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported rate limit backend %q", c.RateLimit.Backend)
	}
	switch c.Corpus.Source {
	case "postgres", "qdrant":
	default:
		return fmt.Errorf("unsupported corpus source %q", c.Corpus.Source)
	}
	if c.Generation.MaxAttempts <= 0 {
		return fmt.Errorf("GENERATION_MAX_ATTEMPTS must be positive, got %d", c.Generation.MaxAttempts)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
