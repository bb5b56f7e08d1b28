package config

import (
	"os"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Google  GoogleConfig
	Storage StorageConfig
	Auth    AuthConfig
	Display DisplayConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type GoogleConfig struct {
	ProjectID       string
	SubscriptionID  string
	PackageName     string
	CredentialsFile string
	CredentialsJSON string
}

type StorageConfig struct {
	Backend     string // "file" or "postgres"
	DataDir     string
	DatabaseURL string
}

type AuthConfig struct {
	// Secret enables the bearer-token guard on operator routes when set.
	Secret string
}

type DisplayConfig struct {
	Timezone string
}

type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Google: GoogleConfig{
			ProjectID:       getEnv("GOOGLE_CLOUD_PROJECT", ""),
			SubscriptionID:  getEnv("PUBSUB_SUBSCRIPTION", ""),
			PackageName:     getEnv("GOOGLE_PLAY_PACKAGE_NAME", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			CredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "file"),
			DataDir:     getEnv("DATA_DIR", "./data"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			Secret: getEnv("AUTH_SECRET", ""),
		},
		Display: DisplayConfig{
			Timezone: getEnv("TIMEZONE", "Local"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
	}, nil
}

// HasPubSub reports whether the messaging collaborator can be configured.
func (c *Config) HasPubSub() bool {
	return c.Google.ProjectID != "" && c.Google.SubscriptionID != ""
}

// Redacted returns the configuration view exposed by the status endpoint,
// with secrets masked.
func (c *Config) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"env":            c.Server.Env,
		"port":           c.Server.Port,
		"projectId":      c.Google.ProjectID,
		"subscription":   c.Google.SubscriptionID,
		"packageName":    c.Google.PackageName,
		"credentials":    mask(firstNonEmpty(c.Google.CredentialsFile, c.Google.CredentialsJSON)),
		"storageBackend": c.Storage.Backend,
		"dataDir":        c.Storage.DataDir,
		"databaseUrl":    mask(c.Storage.DatabaseURL),
		"authEnabled":    c.Auth.Secret != "",
		"timezone":       c.Display.Timezone,
	}
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// mask hides all but a short prefix of a sensitive value
func mask(value string) string {
	if value == "" {
		return ""
	}
	trimmed := strings.TrimSpace(value)
	if len(trimmed) <= 8 {
		return "****"
	}
	return trimmed[:8] + "****"
}
