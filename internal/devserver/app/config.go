package app

import (
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/pkg/jwtx"
)

type Config struct {
	Issuer              string        // Issuer claim for tokens (default: opsdev)
	DatabaseFile        string        // Path to the SQLite database file (default: ./opsdev.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	AccessTTL           time.Duration // Access token lifetime (default: 24h)
	RefreshTTL          time.Duration // Refresh token lifetime (default: 7 days)
	CodePeriod          time.Duration // Lifetime of e-mailed login codes (default: 10m)
	LegacyChallenge     bool          // Answer challenged logins with 200 + message (default: false)
}

func LoadConfig() Config {
	return Config{
		Issuer:              getEnvOrDefault("DEVSERVER_ISSUER", "opsdev"),
		DatabaseFile:        getEnvOrDefault("DEVSERVER_DATABASE_FILE", "opsdev.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		AccessTTL:           getEnvDurationOrDefault("DEVSERVER_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:          getEnvDurationOrDefault("DEVSERVER_REFRESH_TTL", 7*24*time.Hour),
		CodePeriod:          getEnvDurationOrDefault("DEVSERVER_CODE_PERIOD", service.DefaultCodePeriod),
		LegacyChallenge:     getEnvBoolOrDefault("DEVSERVER_LEGACY_CHALLENGE", false),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
