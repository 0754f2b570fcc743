package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"finboard/internal/core"
)

const minJWTSecretLen = 32

// Config holds settings read from the environment.
type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	HSTSEnabled        bool

	// Database
	SQLiteDBPath string

	// Auth
	JWTSecret string
	JWTIssuer string

	// AMQP, empty URL disables async imports
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets import source
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	// SheetsFixtureDir serves local CSV files as spreadsheet ranges when
	// no service account is configured
	SheetsFixtureDir string

	// Summary
	UncategorizedPolicy string
	Timezone            string
	SummaryCacheSize    int
	SummaryCacheTTL     time.Duration

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int

	// Import worker
	ImportBatchSize    int
	ImportPollInterval time.Duration

	ConfirmTTL time.Duration
	LogLevel   string
}

// Load reads the configuration, applying defaults for unset variables.
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		HSTSEnabled:        getEnvBool("HSTS_ENABLED", false),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finboard.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "import_jobs"),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SheetsFixtureDir:         getEnv("SHEETS_FIXTURE_DIR", ""),

		UncategorizedPolicy: getEnv("UNCATEGORIZED_POLICY", string(core.UncategorizedExclude)),
		Timezone:            getEnv("TIMEZONE", "UTC"),
		SummaryCacheSize:    getEnvInt("SUMMARY_CACHE_SIZE", 200),
		SummaryCacheTTL:     getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),

		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		ImportBatchSize:    getEnvInt("IMPORT_BATCH_SIZE", 10),
		ImportPollInterval: getEnvDuration("IMPORT_POLL_INTERVAL", 30*time.Second),

		ConfirmTTL: getEnvDuration("CONFIRM_TTL", 2*time.Minute),
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks the configuration of the API server.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateWorker checks the configuration of the import worker, which
// serves no HTTP and needs no signing secret but does need a broker.
func (c *Config) ValidateWorker() error {
	return c.validate(false)
}

func (c *Config) validate(api bool) error {
	var errors []string

	if api {
		if port, err := strconv.Atoi(c.Port); err != nil {
			errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
		}

		if len(c.JWTSecret) < minJWTSecretLen {
			errors = append(errors, fmt.Sprintf("JWT_SECRET must be at least %d bytes", minJWTSecretLen))
		}

		if c.RateLimitRPS < 1 {
			errors = append(errors, fmt.Sprintf("invalid rate limit %d rps: must be at least 1", c.RateLimitRPS))
		}
		if c.RateLimitBurst < 1 {
			errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
		}

		if c.SummaryCacheSize < 1 {
			errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
		}
		if c.SummaryCacheTTL <= 0 {
			errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be positive", c.SummaryCacheTTL))
		}

		if c.ConfirmTTL < 10*time.Second {
			errors = append(errors, fmt.Sprintf("invalid confirmation TTL %v: must be at least 10 seconds", c.ConfirmTTL))
		}

		if _, err := core.ParseUncategorizedPolicy(c.UncategorizedPolicy); err != nil {
			errors = append(errors, fmt.Sprintf("invalid UNCATEGORIZED_POLICY '%s': must be exclude or bucket", c.UncategorizedPolicy))
		}

		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
		}
	} else if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the import worker")
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.SheetsFixtureDir != "" {
		if info, err := os.Stat(c.SheetsFixtureDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("SHEETS_FIXTURE_DIR is not a directory: %s", c.SheetsFixtureDir))
		}
	}

	if c.ImportBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid import batch size %d: must be at least 1", c.ImportBatchSize))
	} else if c.ImportBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid import batch size %d: must be at most 1000", c.ImportBatchSize))
	}

	if c.ImportPollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid import poll interval %v: must be at least 1 second", c.ImportPollInterval))
	} else if c.ImportPollInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid import poll interval %v: must be at most 24 hours", c.ImportPollInterval))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location returns the zone "today" is computed in. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Policy returns the parsed uncategorized policy, defaulting to exclude.
func (c *Config) Policy() core.UncategorizedPolicy {
	p, err := core.ParseUncategorizedPolicy(c.UncategorizedPolicy)
	if err != nil {
		return core.UncategorizedExclude
	}
	return p
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
