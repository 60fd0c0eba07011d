package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerHost string
	ServerPort string

	// DatabaseURL selects the Postgres ledger; when empty the SQLite file at LedgerPath is used.
	DatabaseURL string
	LedgerPath  string

	AssetDir  string
	IndexFile string

	LogLevel  string
	LogFormat string

	Oracle struct {
		APIURL   string
		APIKey   string
		Model    string
		Language string
		Timeout  time.Duration
	}
}

func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	cfg := &Config{
		ServerHost:  getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:  getEnv("SERVER_PORT", "8000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LedgerPath:  getEnv("LEDGER_PATH", "app.db"),
		AssetDir:    getEnv("ASSET_DIR", "."),
		IndexFile:   getEnv("INDEX_FILE", "index.html"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	cfg.Oracle.APIKey = os.Getenv("ORACLE_API_KEY")
	if cfg.Oracle.APIKey == "" {
		return nil, fmt.Errorf("ORACLE_API_KEY must be set")
	}
	cfg.Oracle.APIURL = getEnv("ORACLE_API_URL", "https://api.deepseek.com")
	cfg.Oracle.Model = getEnv("ORACLE_MODEL", "deepseek-chat")
	cfg.Oracle.Language = getEnv("ORACLE_LANGUAGE", "English")

	timeout, err := time.ParseDuration(getEnv("ORACLE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORACLE_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	cfg.Oracle.Timeout = timeout

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
