// Package config loads client configuration from flags, environment, a
// YAML file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL   = "http://localhost:8000"
	DefaultLogLevel = "warn"
)

// Config holds all client configuration.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	DBPath         string        `yaml:"db"`
	LogLevel       string        `yaml:"log_level"`
	LogDev         bool          `yaml:"log_dev"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Overrides carries explicitly set command-line values. Empty fields are ignored.
type Overrides struct {
	ConfigPath string
	APIURL     string
	DBPath     string
	Verbose    bool
}

// Load builds the configuration. A missing .env or config file is not an error.
func Load(o Overrides) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg := &Config{
		APIURL:   DefaultAPIURL,
		DBPath:   defaultDBPath(),
		LogLevel: DefaultLogLevel,
	}

	path := o.ConfigPath
	if path == "" {
		path = getEnv("TRIPPLAN_CONFIG", defaultConfigPath())
	}
	if err := cfg.loadFile(path, o.ConfigPath != ""); err != nil {
		return nil, err
	}

	cfg.APIURL = getEnv("TRIPPLAN_API_URL", cfg.APIURL)
	cfg.DBPath = getEnv("TRIPPLAN_DB", cfg.DBPath)
	cfg.LogLevel = getEnv("TRIPPLAN_LOG_LEVEL", cfg.LogLevel)
	cfg.LogDev = getEnvBool("TRIPPLAN_LOG_DEV", cfg.LogDev)
	timeout, err := getEnvDuration("TRIPPLAN_REQUEST_TIMEOUT", cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = timeout

	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tripplan")
}

func defaultDBPath() string {
	return filepath.Join(homeDir(), "tripplan.db")
}

func defaultConfigPath() string {
	return filepath.Join(homeDir(), "config.yaml")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
