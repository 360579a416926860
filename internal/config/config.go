// Package config loads runtime settings from an optional YAML file and
// TMS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"trainingcore/internal/kv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TMS"

// FileEnv names the environment variable holding the config file path.
const FileEnv = EnvPrefix + "_CONFIG"

// Config is the full runtime configuration of the tms command.
type Config struct {
	Env     string        `mapstructure:"env"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Trace   TraceConfig   `mapstructure:"trace"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

// LogConfig sets the minimum slog level.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// StorageConfig selects the key-value medium. Only the section named by
// Driver is read.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver" validate:"oneof=memory fs sqlite postgres redis s3"`
	FS       FSConfig       `mapstructure:"fs"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	S3       S3Config       `mapstructure:"s3"`
}

// FSConfig locates the directory holding one JSON file per collection.
type FSConfig struct {
	Root string `mapstructure:"root"`
}

// SQLiteConfig locates the embedded database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds the server connection string.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig addresses the Redis server and namespaces its keys.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

// S3Config addresses the bucket. Empty credentials fall back to the default
// AWS chain.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	PathStyle       bool   `mapstructure:"path_style"`
	Prefix          string `mapstructure:"prefix"`
}

// RulesConfig selects the validation policy.
type RulesConfig struct {
	// Strict enables referential checks on create and warnings on removal of
	// referenced entities.
	Strict bool `mapstructure:"strict"`
}

// MetricsConfig selects the operation metrics exporter. Prometheus metrics
// are served on Addr by serve-metrics; expvar counters appear under
// /debug/vars on the same listener.
type MetricsConfig struct {
	Addr     string `mapstructure:"addr"`
	Exporter string `mapstructure:"exporter" validate:"oneof=prometheus expvar"`
}

// TraceConfig selects the span sink. With JSONL set, finished spans are
// appended to that file as JSON lines; otherwise spans go to the global
// OpenTelemetry provider.
type TraceConfig struct {
	JSONL string `mapstructure:"jsonl"`
}

// AuditConfig names a file receiving one JSON line per audited operation.
// Empty disables the audit trail.
type AuditConfig struct {
	JSONL string `mapstructure:"jsonl"`
}

var defaults = map[string]any{
	"env":                          "development",
	"log.level":                    "info",
	"storage.driver":               string(kv.DriverSQLite),
	"storage.fs.root":              "./trainingdata",
	"storage.sqlite.path":          "trainingcore.db",
	"storage.postgres.dsn":         "postgres://localhost/trainingcore?sslmode=disable",
	"storage.redis.addr":           "localhost:6379",
	"storage.redis.password":       "",
	"storage.redis.db":             0,
	"storage.redis.prefix":         "trainingcore:",
	"storage.s3.region":            "us-east-1",
	"storage.s3.bucket":            "",
	"storage.s3.endpoint":          "",
	"storage.s3.access_key_id":     "",
	"storage.s3.secret_access_key": "",
	"storage.s3.session_token":     "",
	"storage.s3.path_style":        false,
	"storage.s3.prefix":            "",
	"rules.strict":                 false,
	"metrics.addr":                 ":9464",
	"metrics.exporter":             "prometheus",
	"trace.jsonl":                  "",
	"audit.jsonl":                  "",
}

// Short aliases accepted next to the derived TMS_<SECTION>_<KEY> names.
var aliases = map[string]string{
	"storage.sqlite.path":  "TMS_STORAGE_PATH",
	"storage.postgres.dsn": "TMS_POSTGRES_DSN",
	"storage.redis.addr":   "TMS_REDIS_ADDR",
	"storage.s3.bucket":    "TMS_S3_BUCKET",
	"env":                  "ENV",
}

// Load reads the file at path, or the file named by TMS_CONFIG when path is
// empty. Without either, only defaults and the environment apply. Environment
// variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range aliases {
		derived := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, derived, alias); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks enumerated values and the settings the selected driver needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch kv.Driver(c.Storage.Driver) {
	case kv.DriverS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("invalid config: storage.s3.bucket is required for the s3 driver")
		}
	case kv.DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New("invalid config: storage.postgres.dsn is required for the postgres driver")
		}
	}
	return nil
}

// KV converts the storage section to the key-value facade configuration.
func (c *Config) KV() kv.Config {
	s := c.Storage
	return kv.Config{
		Driver:      kv.Driver(s.Driver),
		FSRoot:      s.FS.Root,
		SQLitePath:  s.SQLite.Path,
		PostgresDSN: s.Postgres.DSN,
		Redis: kv.RedisConfig{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
			Prefix:   s.Redis.Prefix,
		},
		S3: kv.S3Config{
			Region:          s.S3.Region,
			Bucket:          s.S3.Bucket,
			Endpoint:        s.S3.Endpoint,
			AccessKeyID:     s.S3.AccessKeyID,
			SecretAccessKey: s.S3.SecretAccessKey,
			SessionToken:    s.S3.SessionToken,
			PathStyle:       s.S3.PathStyle,
			Prefix:          s.S3.Prefix,
		},
	}
}
