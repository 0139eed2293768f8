package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

type Config struct {
	// HTTP Server
	Port               string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	// TrustedProxies are CIDRs, beyond the private ranges, whose
	// X-Forwarded-For header names the real client.
	TrustedProxies []string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP change relay (optional)
	AMQPURL      string
	AMQPExchange string

	// Currency
	RatePrimaryToSecondary string
	RateSecondaryToPrimary string
	AmountEditPolicy       string

	// Connection directory cache
	ProfileCacheSize int
	ProfileCacheTTL  time.Duration

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Sheets mirror worker
	MirrorFlushInterval time.Duration
	MirrorMaxRetries    int

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 7*time.Second),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger.changes"),

		RatePrimaryToSecondary: getEnv("RATE_PRIMARY_TO_SECONDARY", core.DefaultPrimaryToSecondary.String()),
		RateSecondaryToPrimary: getEnv("RATE_SECONDARY_TO_PRIMARY", core.DefaultSecondaryToPrimary.String()),
		AmountEditPolicy:       getEnv("AMOUNT_EDIT_POLICY", string(core.PolicyDrift)),

		ProfileCacheSize: getEnvInt("PROFILE_CACHE_SIZE", 256),
		ProfileCacheTTL:  getEnvDuration("PROFILE_CACHE_TTL", time.Minute),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		MirrorFlushInterval: getEnvDuration("MIRROR_FLUSH_INTERVAL", 10*time.Second),
		MirrorMaxRetries:    getEnvInt("MIRROR_MAX_RETRIES", 3),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RequestTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 100ms", c.RequestTimeout))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if c.SQLiteDBPath != ":memory:" {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
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
	}

	if _, err := c.Converter(); err != nil {
		errors = append(errors, err.Error())
	}

	if _, err := core.ParseEditPolicy(c.AmountEditPolicy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid amount edit policy '%s': must be 'drift' or 'recompute'", c.AmountEditPolicy))
	}

	if c.ProfileCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid profile cache size %d: must not be negative", c.ProfileCacheSize))
	}
	if c.ProfileCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid profile cache TTL %v: must not be negative", c.ProfileCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateSheets checks the settings needed to export to Google Sheets.
func (c *Config) ValidateSheets() error {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for sheets export")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for sheets export")
	}
	hasJSON := c.GoogleServiceAccountJSON != ""
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasJSON && !hasFile {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets export")
	}
	if hasFile && !hasJSON {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("sheets configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the Sheets mirror worker needs on top
// of Validate and ValidateSheets.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.DataBackend != "sqlite" {
		errors = append(errors, fmt.Sprintf("worker needs the shared sqlite backend, got '%s'", c.DataBackend))
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required: the worker is driven by change events")
	}
	if c.MirrorFlushInterval <= 0 {
		errors = append(errors, fmt.Sprintf("invalid mirror flush interval %v: must be positive", c.MirrorFlushInterval))
	}
	if c.MirrorMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid mirror max retries %d: must be at least 1", c.MirrorMaxRetries))
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Converter builds the currency converter from the configured rates.
func (c *Config) Converter() (core.Converter, error) {
	p2s, err := decimal.NewFromString(strings.TrimSpace(c.RatePrimaryToSecondary))
	if err != nil {
		return core.Converter{}, fmt.Errorf("invalid primary-to-secondary rate '%s'", c.RatePrimaryToSecondary)
	}
	s2p, err := decimal.NewFromString(strings.TrimSpace(c.RateSecondaryToPrimary))
	if err != nil {
		return core.Converter{}, fmt.Errorf("invalid secondary-to-primary rate '%s'", c.RateSecondaryToPrimary)
	}
	conv := core.Converter{PrimaryToSecondary: p2s, SecondaryToPrimary: s2p}
	if err := conv.Validate(); err != nil {
		return core.Converter{}, fmt.Errorf("invalid exchange rates %s/%s: must be positive", c.RatePrimaryToSecondary, c.RateSecondaryToPrimary)
	}
	return conv, nil
}

// EditPolicy returns the parsed amount edit policy, defaulting to drift.
func (c *Config) EditPolicy() core.EditPolicy {
	p, err := core.ParseEditPolicy(c.AmountEditPolicy)
	if err != nil {
		return core.PolicyDrift
	}
	return p
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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
