package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Addr   string
	DBDSN  string
	Secret string
	APIKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Quotas and retention
	DailyRequestLimit  int
	ChatRetentionHours int
	LogRetentionHours  int
	SweepIntervalMin   int

	// AI provider
	AIProvider        string
	OllamaBaseURL     string
	OllamaModel       string
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string

	// Retrieval sidecar
	RetrieverBaseURL  string
	DefaultCollection string

	// rabbitMQ (optional; empty URL means synchronous logging)
	RabbitURL   string
	RabbitQueue string
}

// ErrSecretMissing aborts startup: without the long-lived secret the
// cipher key cannot be derived and stored history would be unreadable.
var ErrSecretMissing = errors.New("SECRET_KEY environment variable is not set")

func Load() (Config, error) {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		return Config{}, ErrSecretMissing
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8000"
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "data/nexus.db"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	limit := 20
	if v := os.Getenv("MAX_REQUESTS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	chatRetention := 2
	if v := os.Getenv("CHAT_RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			chatRetention = n
		}
	}

	logRetention := 24
	if v := os.Getenv("LOG_RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			logRetention = n
		}
	}

	sweepInterval := 15
	if v := os.Getenv("SWEEP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sweepInterval = n
		}
	}

	aiProvider := os.Getenv("AI_PROVIDER")
	if aiProvider == "" {
		aiProvider = "ollama"
	}

	ollamaBaseURL := os.Getenv("OLLAMA_BASE_URL")
	if ollamaBaseURL == "" {
		ollamaBaseURL = "http://localhost:11434"
	}

	ollamaModel := os.Getenv("OLLAMA_MODEL")
	if ollamaModel == "" {
		ollamaModel = "llama3:latest"
	}

	openRouterBaseURL := os.Getenv("OPENROUTER_BASE_URL")
	if openRouterBaseURL == "" {
		openRouterBaseURL = "https://openrouter.ai/api/v1"
	}
	openRouterModel := os.Getenv("OPENROUTER_MODEL")
	if openRouterModel == "" {
		openRouterModel = "openrouter/auto"
	}

	retrieverBaseURL := os.Getenv("RETRIEVER_BASE_URL")
	if retrieverBaseURL == "" {
		retrieverBaseURL = "http://localhost:8001"
	}
	defaultCollection := os.Getenv("DEFAULT_COLLECTION")
	if defaultCollection == "" {
		defaultCollection = "nexus_slot_1"
	}

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "secure_log_jobs"
	}

	return Config{
		Addr:   addr,
		DBDSN:  dsn,
		Secret: secret,
		APIKey: os.Getenv("NEXUS_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		DailyRequestLimit:  limit,
		ChatRetentionHours: chatRetention,
		LogRetentionHours:  logRetention,
		SweepIntervalMin:   sweepInterval,

		AIProvider:        aiProvider,
		OllamaBaseURL:     ollamaBaseURL,
		OllamaModel:       ollamaModel,
		OpenRouterBaseURL: openRouterBaseURL,
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   openRouterModel,

		RetrieverBaseURL:  retrieverBaseURL,
		DefaultCollection: defaultCollection,

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,
	}, nil
}
