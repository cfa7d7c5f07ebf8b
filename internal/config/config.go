package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
	// TrustedProxies are extra CIDRs whose forwarding headers are honoured.
	TrustedProxies []string

	// Database
	SQLiteDBPath string

	// AMQP, disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Object storage for invoice files and reports
	ObjectStoreBackend   string
	ObjectStoreBucket    string
	ObjectStorePrefix    string
	ObjectStoreRegion    string
	ObjectStoreEndpoint  string
	ObjectStorePathStyle bool
	BoltPath             string

	// OCR
	OCRBackend            string
	GoogleCredentialsFile string
	UploadMaxBytes        int64

	// Reports
	ReportTitle string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validObjectStores = []string{"s3", "gcs", "bolt", "memory"}
	validOCRBackends  = []string{"vision", "none"}
	validLogFormats   = []string{"text", "json"}
)

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/payables.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "payables"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "aging_reports"),

		ObjectStoreBackend:   getEnv("OBJECT_STORE_BACKEND", "bolt"),
		ObjectStoreBucket:    getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStorePrefix:    getEnv("OBJECT_STORE_PREFIX", ""),
		ObjectStoreRegion:    getEnv("OBJECT_STORE_REGION", ""),
		ObjectStoreEndpoint:  getEnv("OBJECT_STORE_ENDPOINT", ""),
		ObjectStorePathStyle: getEnvBool("OBJECT_STORE_PATH_STYLE", false),
		BoltPath:             getEnv("BOLT_PATH", "./data/objects.db"),

		OCRBackend:            getEnv("OCR_BACKEND", "none"),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		UploadMaxBytes:        int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),

		ReportTitle: getEnv("REPORT_TITLE", "Accounts Payable Aging Report"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.ShutdownTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if err := ensureDir(c.SQLiteDBPath); err != nil {
		errs = append(errs, fmt.Sprintf("cannot create SQLite database directory: %v", err))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validObjectStores, c.ObjectStoreBackend) {
		errs = append(errs, fmt.Sprintf("invalid object store backend '%s': must be one of %v", c.ObjectStoreBackend, validObjectStores))
	}
	switch c.ObjectStoreBackend {
	case "s3", "gcs":
		if c.ObjectStoreBucket == "" {
			errs = append(errs, fmt.Sprintf("object store bucket is required for the %s backend", c.ObjectStoreBackend))
		}
	case "bolt":
		if c.BoltPath == "" {
			errs = append(errs, "Bolt path cannot be empty when using the bolt backend")
		}
	}

	if !slices.Contains(validOCRBackends, c.OCRBackend) {
		errs = append(errs, fmt.Sprintf("invalid OCR backend '%s': must be one of %v", c.OCRBackend, validOCRBackends))
	}
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}
	if c.UploadMaxBytes < 1 {
		errs = append(errs, fmt.Sprintf("invalid upload limit %d: must be positive", c.UploadMaxBytes))
	}

	if !slices.Contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
