package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	LoanDB   LoanDBConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Keys     APIKeys
	Ai       AIConfig
	Export   ExportConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
}

type DatabaseConfig struct {
	Connection string
}

// LoanDBConfig points at the loan/EMI database that generated SQL runs
// against. Kept separate from the application database on purpose.
type LoanDBConfig struct {
	Connection   string
	QueryTimeout time.Duration
}

type RedisConfig struct {
	URL       string
	ThreadTTL time.Duration
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
}

type AIConfig struct {
	LLMProvider    string // "gemini", "ollama" or "openai"
	LLMModel       string
	OllamaBaseURL  string
	RequestTimeout time.Duration
	ContextWindow  int // how many recent queries feed the SQL generator
}

type ExportConfig struct {
	StoragePath string
	Topic       string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		LoanDB: LoanDBConfig{
			Connection:   getEnv("LOAN_DB_CONNECTION_STRING", ""),
			QueryTimeout: getEnvAsDuration("LOAN_DB_QUERY_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", "redis://localhost:6379"),
			ThreadTTL: getEnvAsDuration("THREAD_CACHE_TTL", 3*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "LoanInsights"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:       getEnv("LLM_MODEL", "gemini-2.0-flash"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			RequestTimeout: getEnvAsDuration("LLM_REQUEST_TIMEOUT", 60*time.Second),
			ContextWindow:  getEnvAsInt("SQL_CONTEXT_WINDOW", 5),
		},
		Export: ExportConfig{
			StoragePath: getEnv("EXCEL_STORAGE_PATH", "exports"),
			Topic:       getEnv("EXPORT_TOPIC_NAME", "GENERATE_EXPORT"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
