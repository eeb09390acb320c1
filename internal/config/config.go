// Package config provides unified configuration for the dictdb service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode represents the service mode to run.
type Mode string

const (
	ModeAll    Mode = "all"
	ModeAPI    Mode = "api"
	ModeStream Mode = "stream"
)

// Config holds the unified configuration for the dictdb service.
type Config struct {
	// Mode specifies which services to run: all, api, stream
	Mode Mode `json:"mode" yaml:"mode"`

	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// gRPC configuration
	GRPC GRPCConfig `json:"grpc" yaml:"grpc"`

	// Storage configuration for exports
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Export configuration
	Export ExportConfig `json:"export" yaml:"export"`

	// Stream ingestion configuration
	Stream StreamConfig `json:"stream" yaml:"stream"`
}

// DatabaseConfig holds the record store configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file, or :memory:
	Path string `json:"path" yaml:"path"`

	// BusyTimeout is how long a statement waits on a locked database
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`

	// JournalMode is the SQLite journal mode
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`

	// InsertTime adds an insert_time column to generated tables
	InsertTime bool `json:"insert_time" yaml:"insert_time"`

	// UpdateTime adds an update_time column to generated tables
	UpdateTime bool `json:"update_time" yaml:"update_time"`

	// Export adds an export flag column to generated tables
	Export bool `json:"export" yaml:"export"`

	// AutoCommit commits at the end of every call
	AutoCommit bool `json:"auto_commit" yaml:"auto_commit"`

	// AutoAlter adds missing columns on demand
	AutoAlter bool `json:"auto_alter" yaml:"auto_alter"`

	// AutoUpdateTime stamps update_time on conflict updates
	AutoUpdateTime bool `json:"auto_update_time" yaml:"auto_update_time"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the HTTP listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// MaxBodyBytes caps request bodies
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// GRPCConfig holds gRPC server configuration.
type GRPCConfig struct {
	// Addr is the gRPC server address
	Addr string `json:"addr" yaml:"addr"`

	// Enabled controls whether gRPC is enabled
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// ExportConfig holds table export configuration.
type ExportConfig struct {
	// Prefix is the object key prefix for export files
	Prefix string `json:"prefix" yaml:"prefix"`

	// Compress writes xz-compressed export files
	Compress bool `json:"compress" yaml:"compress"`

	// WorkDir holds export files until they are uploaded
	WorkDir string `json:"work_dir" yaml:"work_dir"`
}

// StreamConfig holds Kafka stream ingestion configuration.
type StreamConfig struct {
	// Enabled controls whether the stream consumer runs
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Brokers are the Kafka bootstrap brokers
	Brokers []string `json:"brokers" yaml:"brokers"`

	// Topic is the topic to consume
	Topic string `json:"topic" yaml:"topic"`

	// GroupID is the consumer group
	GroupID string `json:"group_id" yaml:"group_id"`

	// Table pins every message to one table; empty resolves per record
	Table string `json:"table" yaml:"table"`

	// Mode is the write mode: insert, replace, upsert
	Mode string `json:"mode" yaml:"mode"`

	// RatePerSecond bounds how many messages are applied per second
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`

	// Burst is the rate limiter burst size
	Burst int `json:"burst" yaml:"burst"`

	// IgnoreCodes are error codes that skip a message instead of stopping
	IgnoreCodes []string `json:"ignore_codes" yaml:"ignore_codes"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Mode:    ModeAll,
		DataDir: "./data/dictdb",
		Database: DatabaseConfig{
			Path:           "",
			BusyTimeout:    5 * time.Second,
			JournalMode:    "WAL",
			InsertTime:     true,
			UpdateTime:     true,
			Export:         true,
			AutoCommit:     true,
			AutoAlter:      true,
			AutoUpdateTime: true,
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
			MaxBodyBytes: 16 << 20,
		},
		GRPC: GRPCConfig{
			Addr:    ":9090",
			Enabled: true,
		},
		Storage: StorageConfig{
			Type: "local",
			Path: "",
		},
		Export: ExportConfig{
			Prefix:   "exports",
			Compress: true,
		},
		Stream: StreamConfig{
			Enabled:       false,
			GroupID:       "dictdb",
			Mode:          "upsert",
			RatePerSecond: 500,
			Burst:         50,
			IgnoreCodes:   []string{"UNIQUENESS_VIOLATION"},
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/dictdb"
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.DataDir, "dictdb.db")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Export.WorkDir == "" {
		c.Export.WorkDir = filepath.Join(c.DataDir, "export")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAll, ModeAPI, ModeStream:
		// Valid modes
	default:
		return fmt.Errorf("invalid mode: %s (must be all, api, or stream)", c.Mode)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	switch strings.ToLower(c.Stream.Mode) {
	case "", "insert", "replace", "upsert":
	default:
		return fmt.Errorf("invalid stream.mode: %s (must be insert, replace, or upsert)", c.Stream.Mode)
	}

	if c.ShouldRunStream() {
		if len(c.Stream.Brokers) == 0 || c.Stream.Topic == "" {
			return fmt.Errorf("stream.brokers and stream.topic are required when the stream consumer is enabled")
		}
		if c.Stream.RatePerSecond < 0 {
			return fmt.Errorf("stream.rate_per_second must not be negative, got %v", c.Stream.RatePerSecond)
		}
	}

	return nil
}

// ShouldRunAPI returns true if the HTTP and gRPC APIs should run.
func (c *Config) ShouldRunAPI() bool {
	return c.Mode == ModeAll || c.Mode == ModeAPI
}

// ShouldRunStream returns true if the stream consumer should run.
func (c *Config) ShouldRunStream() bool {
	return c.Stream.Enabled && (c.Mode == ModeAll || c.Mode == ModeStream)
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DICTDB_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("DICTDB_MODE"); v != "" {
		cfg.Mode = Mode(v)
	}
	if v := os.Getenv("DICTDB_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Database configuration
	if v := os.Getenv("DICTDB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DICTDB_DATABASE_BUSY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Database.BusyTimeout = d
		}
	}
	if v := os.Getenv("DICTDB_DATABASE_JOURNAL_MODE"); v != "" {
		cfg.Database.JournalMode = v
	}
	envBool("DICTDB_DATABASE_INSERT_TIME", &cfg.Database.InsertTime)
	envBool("DICTDB_DATABASE_UPDATE_TIME", &cfg.Database.UpdateTime)
	envBool("DICTDB_DATABASE_EXPORT", &cfg.Database.Export)
	envBool("DICTDB_DATABASE_AUTO_COMMIT", &cfg.Database.AutoCommit)
	envBool("DICTDB_DATABASE_AUTO_ALTER", &cfg.Database.AutoAlter)
	envBool("DICTDB_DATABASE_AUTO_UPDATE_TIME", &cfg.Database.AutoUpdateTime)

	// HTTP configuration
	if v := os.Getenv("DICTDB_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	// gRPC configuration
	if v := os.Getenv("DICTDB_GRPC_ADDR"); v != "" {
		cfg.GRPC.Addr = v
	}
	envBool("DICTDB_GRPC_ENABLED", &cfg.GRPC.Enabled)

	// Storage configuration
	if v := os.Getenv("DICTDB_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("DICTDB_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("DICTDB_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("DICTDB_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("DICTDB_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}

	// Export configuration
	if v := os.Getenv("DICTDB_EXPORT_PREFIX"); v != "" {
		cfg.Export.Prefix = v
	}
	envBool("DICTDB_EXPORT_COMPRESS", &cfg.Export.Compress)

	// Stream configuration
	envBool("DICTDB_STREAM_ENABLED", &cfg.Stream.Enabled)
	if v := os.Getenv("DICTDB_STREAM_BROKERS"); v != "" {
		cfg.Stream.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DICTDB_STREAM_TOPIC"); v != "" {
		cfg.Stream.Topic = v
	}
	if v := os.Getenv("DICTDB_STREAM_GROUP_ID"); v != "" {
		cfg.Stream.GroupID = v
	}
	if v := os.Getenv("DICTDB_STREAM_TABLE"); v != "" {
		cfg.Stream.Table = v
	}
	if v := os.Getenv("DICTDB_STREAM_MODE"); v != "" {
		cfg.Stream.Mode = v
	}
	if v := os.Getenv("DICTDB_STREAM_RATE"); v != "" {
		fmt.Sscanf(v, "%g", &cfg.Stream.RatePerSecond)
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		*dst = v == "true" || v == "1"
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.Export.WorkDir,
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}
	if c.Database.Path != "" && c.Database.Path != ":memory:" {
		dirs = append(dirs, filepath.Dir(c.Database.Path))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
