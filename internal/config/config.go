package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	GinMode     string
	RateLimit   int
	LogLevel    string

	MatchmakerIntervalSecs int
	MatchSize              int
	GamesPerDay            int
	MinGamesForRanking     int

	MoveTimeoutMS  int
	StartTimeoutMS int
	EndTimeoutMS   int

	JobWorkerConcurrency   int
	SnakeHTTPMaxIdlePerHost int
	SnakeHTTPRatePerHost    float64

	AdminToken string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		GinMode:     getEnv("GIN_MODE", "release"),
		RateLimit:   getEnvAsInt("RATE_LIMIT", 100),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		MatchmakerIntervalSecs: getEnvAsInt("MATCHMAKER_INTERVAL_SECS", 900),
		MatchSize:              getEnvAsInt("MATCH_SIZE", 4),
		GamesPerDay:            getEnvAsInt("GAMES_PER_DAY", 100),
		MinGamesForRanking:     getEnvAsInt("MIN_GAMES_FOR_RANKING", 10),

		MoveTimeoutMS:  getEnvAsInt("MOVE_TIMEOUT_MS", 500),
		StartTimeoutMS: getEnvAsInt("START_TIMEOUT_MS", 2000),
		EndTimeoutMS:   getEnvAsInt("END_TIMEOUT_MS", 2000),

		JobWorkerConcurrency:    getEnvAsInt("JOB_WORKER_CONCURRENCY", 4),
		SnakeHTTPMaxIdlePerHost: getEnvAsInt("SNAKE_HTTP_MAX_IDLE_CONNS_PER_HOST", 8),
		SnakeHTTPRatePerHost:    getEnvAsFloat("SNAKE_HTTP_RATE_LIMIT_PER_HOST", 10.0),

		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}

	return cfg, nil
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets environment variable as integer with fallback
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvAsFloat gets environment variable as float64 with fallback
func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
