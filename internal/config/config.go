// Package config loads and validates the process configuration from the
// environment. Everything the engine needs — reports root, company
// identity, tax policy — is carried explicitly; nothing is read from
// ambient state after startup.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"truckbooks/internal/core"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// Reports
	ReportsDir string
	ArchiveDir string

	// Company identity printed on every report page
	CompanyName    string
	CompanyAddress string
	CompanyEmail   string
	CompanyPhones  string

	// HST treatment of tax-exclusive expenses: "grossup" (default) or
	// the deprecated "legacy" passthrough.
	HSTPolicy string

	// Auth
	LoginUser      string
	LoginPass      string
	DeletePassword string
	SessionTTL     time.Duration

	// AMQP (optional; empty URL disables report events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/truckbooks.db"),

		ReportsDir: getEnv("REPORTS_DIR", "./reports"),
		ArchiveDir: getEnv("ARCHIVE_DIR", "./archive"),

		CompanyName:    getEnv("COMPANY_NAME", "Truckbooks Transport"),
		CompanyAddress: getEnv("COMPANY_ADDRESS", ""),
		CompanyEmail:   getEnv("COMPANY_EMAIL", ""),
		CompanyPhones:  getEnv("COMPANY_PHONES", ""),

		HSTPolicy: getEnv("HST_POLICY", string(core.HSTPolicyGrossUp)),

		LoginUser:      getEnv("LOGIN_USER", ""),
		LoginPass:      getEnv("LOGIN_PASS", ""),
		DeletePassword: getEnv("DELETE_PASSWORD", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 12*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "truckbooks"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_events"),
	}
}

// Validate collects every configuration problem so the operator sees
// them all at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}
	if c.ReportsDir == "" {
		errors = append(errors, "reports directory cannot be empty")
	}

	if !core.HSTPolicy(c.HSTPolicy).Valid() {
		errors = append(errors, fmt.Sprintf("invalid HST policy '%s': must be '%s' or '%s'",
			c.HSTPolicy, core.HSTPolicyGrossUp, core.HSTPolicyLegacy))
	}

	if c.LoginUser == "" || c.LoginPass == "" {
		errors = append(errors, "LOGIN_USER and LOGIN_PASS must both be set")
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
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

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
