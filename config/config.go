// Package config assembles runtime settings from .env files, an optional
// YAML file and the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/SanaAdeelKhan/geo-gap-compass/logging"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
	"github.com/SanaAdeelKhan/geo-gap-compass/store"
)

type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		GinMode string `yaml:"ginMode"`
	} `yaml:"server"`

	Backend struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"backend"`

	Store store.Config `yaml:"store"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst float64 `yaml:"burst"`
	} `yaml:"rateLimit"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	// EnrichDomains fills missing domain titles from the live pages.
	EnrichDomains bool `yaml:"enrichDomains"`
	DevMode       bool `yaml:"devMode"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8082"
	cfg.Server.GinMode = "release"
	cfg.Backend.URL = remote.DefaultBaseURL
	cfg.Store.Driver = store.DriverFile
	cfg.Store.DataDir = "data"
	cfg.RateLimit.RPS = 2
	cfg.RateLimit.Burst = 5
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.EnrichDomains = true
	return cfg
}

// LoadEnv reads .env.development, falling back to .env. Missing files are fine.
func LoadEnv() {
	if err := godotenv.Load(".env.development"); err != nil {
		_ = godotenv.Load()
	}
}

// Load returns defaults overlaid with the YAML file at CONFIG_PATH (default
// config.yaml, optional) and then with environment variables.
func Load() (*Config, error) {
	LoadEnv()

	cfg := Default()
	path := getEnv("CONFIG_PATH", "config.yaml")
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}
	if err := cfg.overlayEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.GinMode, "GIN_MODE")
	setString(&c.Backend.URL, "GEO_API_URL")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.DataDir, "DATA_DIR")
	setString(&c.Store.RedisURL, "REDIS_URL")
	setString(&c.Store.DatabaseURL, "DATABASE_URL")
	setString(&c.Store.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.Store.S3.Region, "S3_REGION")
	setString(&c.Store.S3.Bucket, "S3_BUCKET")
	setString(&c.Store.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Store.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Store.S3.Prefix, "S3_PREFIX")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	for _, b := range []struct {
		dst *bool
		key string
	}{
		{&c.Store.S3.UseSSL, "S3_USE_SSL"},
		{&c.EnrichDomains, "ENRICH_DOMAINS"},
		{&c.DevMode, logging.ENV_DEV_MODE},
	} {
		if err := setBool(b.dst, b.key); err != nil {
			return err
		}
	}
	if err := setFloat(&c.RateLimit.RPS, "RATE_LIMIT_RPS"); err != nil {
		return err
	}
	if err := setFloat(&c.RateLimit.Burst, "RATE_LIMIT_BURST"); err != nil {
		return err
	}
	return setDuration(&c.Backend.Timeout, "HTTP_TIMEOUT")
}

// StatisticsPath is where request statistics are saved.
func (c *Config) StatisticsPath() string {
	dir := c.Store.DataDir
	if dir == "" {
		dir = "data"
	}
	return filepath.Join(dir, "statistics.json")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, key string) {
	*dst = getEnv(key, *dst)
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// setDuration accepts Go durations ("30s") or a bare number of seconds.
func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
