package store

import (
	"context"
	"fmt"
	"strings"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverS3       = "s3"
	DriverPostgres = "postgres"
)

// Config selects and configures the durable provider.
type Config struct {
	Driver      string   `yaml:"driver"`
	DataDir     string   `yaml:"dataDir"`
	RedisURL    string   `yaml:"redisURL"`
	DatabaseURL string   `yaml:"databaseURL"`
	S3          S3Config `yaml:"s3"`
}

// Open builds the provider named by cfg.Driver. An empty driver means file.
func Open(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory:
		return NewMemoryProvider(), nil
	case "", DriverFile:
		dir := cfg.DataDir
		if dir == "" {
			dir = "data"
		}
		return NewFileProvider(dir)
	case DriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis driver requires REDIS_URL")
		}
		return NewRedisProvider(cfg.RedisURL)
	case DriverS3:
		if cfg.S3.Endpoint == "" || cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 driver requires an endpoint and a bucket")
		}
		return NewObjectProvider(ctx, cfg.S3)
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres driver requires DATABASE_URL")
		}
		return NewPostgresProvider(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
