// Package kv selects and opens the key-value medium that mirrors the
// training collections. It is the only package allowed to import the
// infra/kv backends.
package kv

import (
	"context"
	"fmt"

	"trainingcore/internal/infra/kv/fs"
	"trainingcore/internal/infra/kv/memory"
	"trainingcore/internal/infra/kv/postgres"
	"trainingcore/internal/infra/kv/redis"
	"trainingcore/internal/infra/kv/s3"
	"trainingcore/internal/infra/kv/sqlite"
	"trainingcore/pkg/domain"
)

// Store is the key-value contract consumed by the core store.
type Store = domain.KeyValueStore

// Driver re-exports the backend identifier.
type Driver = domain.Driver

const (
	DriverMemory     = domain.DriverMemory
	DriverFilesystem = domain.DriverFilesystem
	DriverSQLite     = domain.DriverSQLite
	DriverPostgres   = domain.DriverPostgres
	DriverRedis      = domain.DriverRedis
	DriverS3         = domain.DriverS3
)

// RedisConfig re-exports the Redis backend configuration.
type RedisConfig = redis.Config

// S3Config re-exports the S3 backend configuration.
type S3Config = s3.Config

// Config selects a backend and carries its parameters. Only the section for
// the selected driver is read.
type Config struct {
	Driver      Driver
	FSRoot      string
	SQLitePath  string
	PostgresDSN string
	Redis       RedisConfig
	S3          S3Config
}

// Drivers lists every supported backend.
func Drivers() []Driver {
	return []Driver{DriverMemory, DriverFilesystem, DriverSQLite, DriverPostgres, DriverRedis, DriverS3}
}

// Open constructs the configured backend. An empty driver selects sqlite.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverSQLite:
		return sqlite.New(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN)
	case DriverRedis:
		return redis.New(ctx, cfg.Redis)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// NewMemory returns an in-memory store for tests and ephemeral sessions.
func NewMemory() Store { return memory.New() }
