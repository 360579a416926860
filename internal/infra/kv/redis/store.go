// Package redis stores each collection as a string value in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"trainingcore/pkg/domain"
)

var _ domain.KeyValueStore = (*Store)(nil)

// DefaultPrefix namespaces collection keys inside the Redis keyspace.
const DefaultPrefix = "trainingcore:"

// Client is the subset of *redis.Client used by the store.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Config holds connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store maps collection k to the Redis key <prefix><k>.
type Store struct {
	client Client
	prefix string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return NewWithClient(rdb, cfg.Prefix), nil
}

// NewWithClient wraps an existing client. An empty prefix uses DefaultPrefix.
func NewWithClient(client Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Driver implements domain.KeyValueStore.
func (s *Store) Driver() domain.Driver { return domain.DriverRedis }

func (s *Store) keyFor(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", domain.ErrInvalidKey
	}
	return s.prefix + key, nil
}

// Get implements domain.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k, err := s.keyFor(key)
	if err != nil {
		return nil, false, err
	}
	val, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", k, err)
	}
	return val, true, nil
}

// Set implements domain.KeyValueStore. Values never expire.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	k, err := s.keyFor(key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, k, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", k, err)
	}
	return nil
}

// Close implements domain.KeyValueStore.
func (s *Store) Close() error { return s.client.Close() }
