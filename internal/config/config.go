// Package config loads relay and client settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultRelayURL is where clients connect when RELAY_URL is unset.
	DefaultRelayURL = "ws://localhost:8080"

	defaultMaxMessageSize = 1 << 20
	defaultDBPath         = "data/relay.db"
)

// Config holds the relay server configuration.
type Config struct {
	Env            string
	Port           string
	DBPath         string
	LogLevel       string
	MaxMessageSize int64
	AllowedOrigins []string
}

// ClientConfig holds the terminal client configuration.
type ClientConfig struct {
	Env        string
	RelayURL   string
	UserIDFile string
	LogLevel   string
}

// Load reads the server configuration. Values in a .env file in the working
// directory are used when the variable is not already set.
func Load() Config {
	loadDotEnv()
	return Config{
		Env:            getEnv("APP_ENV", EnvDevelopment),
		Port:           getEnv("PORT", "8080"),
		DBPath:         getEnvOrEmpty("DB_PATH", defaultDBPath),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		MaxMessageSize: getEnvInt64("MAX_MESSAGE_SIZE", defaultMaxMessageSize),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
	}
}

// LoadClient reads the client configuration.
func LoadClient() ClientConfig {
	loadDotEnv()
	return ClientConfig{
		Env:        getEnv("APP_ENV", EnvDevelopment),
		RelayURL:   getEnv("RELAY_URL", DefaultRelayURL),
		UserIDFile: getEnv("USER_ID_FILE", defaultUserIDFile()),
		LogLevel:   os.Getenv("LOG_LEVEL"),
	}
}

// IsDevelopment reports whether the relay runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction reports whether the relay runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// ActivityLogEnabled reports whether presence events are recorded. It is
// on unless DB_PATH is set to an empty value.
func (c Config) ActivityLogEnabled() bool {
	return c.DBPath != ""
}

// OriginAllowed reports whether a browser origin may open a connection.
// An empty allow-list accepts every origin.
func (c Config) OriginAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func loadDotEnv() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
}

func defaultUserIDFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".interactive-db-user"
	}
	return filepath.Join(dir, "interactive-db", "user-id")
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrEmpty is getEnv for variables where an explicitly empty value is
// meaningful: only an unset variable gets the default.
func getEnvOrEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
