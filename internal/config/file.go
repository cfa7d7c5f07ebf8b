package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML, TOML and JSON files. Absent keys keep
// the environment value.
type fileConfig struct {
	Port               string   `yaml:"port" toml:"port" json:"port"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	ShutdownTimeout    string   `yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"shutdown_timeout"`
	TrustedProxies     []string `yaml:"trusted_proxies" toml:"trusted_proxies" json:"trusted_proxies"`

	SQLiteDBPath string `yaml:"sqlite_db_path" toml:"sqlite_db_path" json:"sqlite_db_path"`

	AMQP struct {
		URL      string `yaml:"url" toml:"url" json:"url"`
		Exchange string `yaml:"exchange" toml:"exchange" json:"exchange"`
		Queue    string `yaml:"queue" toml:"queue" json:"queue"`
	} `yaml:"amqp" toml:"amqp" json:"amqp"`

	ObjectStore struct {
		Backend   string `yaml:"backend" toml:"backend" json:"backend"`
		Bucket    string `yaml:"bucket" toml:"bucket" json:"bucket"`
		Prefix    string `yaml:"prefix" toml:"prefix" json:"prefix"`
		Region    string `yaml:"region" toml:"region" json:"region"`
		Endpoint  string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
		PathStyle *bool  `yaml:"path_style" toml:"path_style" json:"path_style"`
		BoltPath  string `yaml:"bolt_path" toml:"bolt_path" json:"bolt_path"`
	} `yaml:"object_store" toml:"object_store" json:"object_store"`

	OCR struct {
		Backend         string `yaml:"backend" toml:"backend" json:"backend"`
		CredentialsFile string `yaml:"credentials_file" toml:"credentials_file" json:"credentials_file"`
		UploadMaxBytes  int64  `yaml:"upload_max_bytes" toml:"upload_max_bytes" json:"upload_max_bytes"`
	} `yaml:"ocr" toml:"ocr" json:"ocr"`

	ReportTitle string `yaml:"report_title" toml:"report_title" json:"report_title"`

	Log struct {
		Level  string `yaml:"level" toml:"level" json:"level"`
		Format string `yaml:"format" toml:"format" json:"format"`
	} `yaml:"log" toml:"log" json:"log"`
}

// LoadFile reads the environment like Load and then applies the values
// set in the file at path. The format follows the extension: .yaml, .yml,
// .toml or .json.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".json":
		err = json.Unmarshal(data, &fc)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg := Load()
	if err := fc.apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (fc *fileConfig) apply(c *Config) error {
	setString(&c.Port, fc.Port)
	setInt(&c.RateLimitPerMinute, fc.RateLimitPerMinute)
	if fc.ShutdownTimeout != "" {
		d, err := time.ParseDuration(fc.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown_timeout %q: %w", fc.ShutdownTimeout, err)
		}
		c.ShutdownTimeout = d
	}
	if len(fc.TrustedProxies) > 0 {
		c.TrustedProxies = fc.TrustedProxies
	}
	setString(&c.SQLiteDBPath, fc.SQLiteDBPath)

	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)

	setString(&c.ObjectStoreBackend, fc.ObjectStore.Backend)
	setString(&c.ObjectStoreBucket, fc.ObjectStore.Bucket)
	setString(&c.ObjectStorePrefix, fc.ObjectStore.Prefix)
	setString(&c.ObjectStoreRegion, fc.ObjectStore.Region)
	setString(&c.ObjectStoreEndpoint, fc.ObjectStore.Endpoint)
	setString(&c.BoltPath, fc.ObjectStore.BoltPath)
	if fc.ObjectStore.PathStyle != nil {
		c.ObjectStorePathStyle = *fc.ObjectStore.PathStyle
	}

	setString(&c.OCRBackend, fc.OCR.Backend)
	setString(&c.GoogleCredentialsFile, fc.OCR.CredentialsFile)
	if fc.OCR.UploadMaxBytes != 0 {
		c.UploadMaxBytes = fc.OCR.UploadMaxBytes
	}

	setString(&c.ReportTitle, fc.ReportTitle)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
