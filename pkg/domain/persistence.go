package domain

import (
	"context"
	"errors"
)

// Driver identifies a concrete key-value persistence backend.
type Driver string

const (
	DriverMemory     Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverFilesystem Driver = "fs"       // one JSON file per collection
	DriverSQLite     Driver = "sqlite"   // embedded sqlite file
	DriverPostgres   Driver = "postgres" // PostgreSQL server
	DriverRedis      Driver = "redis"    // Redis server
	DriverS3         Driver = "s3"       // S3 / MinIO compatible bucket
)

// KeyValueStore is the durable medium mirroring the in-memory collections.
// Values are opaque serialized collections keyed by collection name.
type KeyValueStore interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	Driver() Driver
	Close() error
}

// ErrInvalidKey is returned by backends for keys they cannot address.
var ErrInvalidKey = errors.New("kv: invalid key")
