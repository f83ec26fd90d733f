package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the attribution service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Keap        KeapConfig        `yaml:"keap"`
	Facebook    FacebookConfig    `yaml:"facebook"`
	Attribution AttributionConfig `yaml:"attribution"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Warehouse   WarehouseConfig   `yaml:"warehouse"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the Postgres document-store connection.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the ad-cache redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KeapConfig holds order-source connector settings.
type KeapConfig struct {
	BaseURL        string `yaml:"base_url"`
	HookRelayURL   string `yaml:"hook_relay_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// FacebookConfig holds advertisement platform settings.
type FacebookConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIVersion     string `yaml:"api_version"`
	AccessToken    string `yaml:"access_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Concurrency    int    `yaml:"concurrency"`
}

// AttributionConfig tunes the report pipeline.
type AttributionConfig struct {
	// CustomerWorkers bounds the per-customer pipeline fan-out.
	CustomerWorkers int `yaml:"customer_workers"`
}

// ArchiveConfig holds optional S3 report archival settings.
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	S3Bucket   string `yaml:"s3_bucket"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"`
}

// WarehouseConfig holds optional Snowflake export settings.
type WarehouseConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Load reads and validates a YAML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Keap.BaseURL == "" {
		cfg.Keap.BaseURL = "https://api.infusionsoft.com/crm/rest/v1"
	}
	if cfg.Keap.TimeoutSeconds == 0 {
		cfg.Keap.TimeoutSeconds = 60
	}
	if cfg.Facebook.TimeoutSeconds == 0 {
		cfg.Facebook.TimeoutSeconds = 30
	}
	if cfg.Facebook.Concurrency == 0 {
		cfg.Facebook.Concurrency = 4
	}
	if cfg.Attribution.CustomerWorkers == 0 {
		cfg.Attribution.CustomerWorkers = 4
	}
	if cfg.Warehouse.Database == "" {
		cfg.Warehouse.Database = "ROAS_ANALYTICS"
	}
	if cfg.Warehouse.Schema == "" {
		cfg.Warehouse.Schema = "ATTRIBUTION"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads the config file and applies environment overrides.
// A .env file is honored if present.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("KEAP_BASE_URL"); v != "" {
		cfg.Keap.BaseURL = v
	}
	if v := os.Getenv("KEAP_HOOK_RELAY_URL"); v != "" {
		cfg.Keap.HookRelayURL = v
	}
	if v := os.Getenv("FB_ACCESS_TOKEN"); v != "" {
		cfg.Facebook.AccessToken = v
	}
	if v := os.Getenv("FB_BASE_URL"); v != "" {
		cfg.Facebook.BaseURL = v
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
		cfg.Archive.Enabled = true
	}
	if v := os.Getenv("ARCHIVE_AWS_REGION"); v != "" {
		cfg.Archive.AWSRegion = v
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Warehouse.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Warehouse.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Warehouse.Password = v
	}

	return cfg, nil
}
