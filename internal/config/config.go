package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
	DriverFile     = "file"
)

// Secret backends.
const (
	SecretEnv      = "env"
	SecretKeychain = "keychain"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	// Persistence
	StoreDriver   string `yaml:"store_driver"`
	DataDir       string `yaml:"data_dir"`
	DBHost        string `yaml:"db_host"`
	DBPort        int    `yaml:"db_port"`
	DBName        string `yaml:"db_name"`
	DBUser        string `yaml:"db_user"`
	DBSSLMode     string `yaml:"db_sslmode"`
	MongoURI      string `yaml:"mongo_uri"`
	RevisionLimit int    `yaml:"revision_limit"`

	// Editing
	AutosaveSpec string `yaml:"autosave_spec"`
	WatchFiles   bool   `yaml:"watch_files"`

	SecretBackend   string        `yaml:"secret_backend"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func defaults() Config {
	return Config{
		HTTPAddr:        ":8080",
		StoreDriver:     DriverSQLite,
		DataDir:         "./data",
		DBName:          "pagebuilder",
		DBSSLMode:       "disable",
		RevisionLimit:   40,
		AutosaveSpec:    "@every 30s",
		SecretBackend:   SecretEnv,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// PAGEBUILDER_CONFIG (if set), then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("PAGEBUILDER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.StoreDriver = envOr("STORE_DRIVER", cfg.StoreDriver)
	cfg.DataDir = envOr("DATA_DIR", cfg.DataDir)
	cfg.DBHost = envOr("DB_HOST", cfg.DBHost)
	cfg.DBPort = envInt("DB_PORT", cfg.DBPort)
	cfg.DBName = envOr("DB_NAME", cfg.DBName)
	cfg.DBUser = envOr("DB_USER", cfg.DBUser)
	cfg.DBSSLMode = envOr("DB_SSLMODE", cfg.DBSSLMode)
	cfg.MongoURI = envOr("MONGO_URI", cfg.MongoURI)
	cfg.RevisionLimit = envInt("REVISION_LIMIT", cfg.RevisionLimit)
	cfg.AutosaveSpec = envOr("AUTOSAVE_SPEC", cfg.AutosaveSpec)
	cfg.WatchFiles = envBool("WATCH_FILES", cfg.WatchFiles)
	cfg.SecretBackend = envOr("SECRET_BACKEND", cfg.SecretBackend)
	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	if cfg.RevisionLimit <= 0 {
		cfg.RevisionLimit = 40
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the %s store", c.StoreDriver)
		}
	case DriverPostgres, DriverMySQL:
		if c.DBHost == "" {
			return fmt.Errorf("DB_HOST is required for the %s store", c.StoreDriver)
		}
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required for the %s store", c.StoreDriver)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.SecretBackend {
	case SecretEnv, SecretKeychain:
	default:
		return fmt.Errorf("unknown SECRET_BACKEND %q", c.SecretBackend)
	}
	return nil
}

// SQLitePath is where the sqlite store keeps its database file.
func (c Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "pagebuilder.db")
}

// PagesDir is where the file store keeps page documents.
func (c Config) PagesDir() string {
	return filepath.Join(c.DataDir, "pages")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
