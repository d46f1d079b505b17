package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for tokenrotor
type Config struct {
	// Database settings for the ticket table
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Checkpoint persistence settings
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Redis connection shared by the redis checkpoint backend and the task queue
	Redis RedisConfig `yaml:"redis" json:"redis"`

	// Queue settings for deferred batch dispatch
	Queue QueueConfig `yaml:"queue" json:"queue"`

	// Batch processing settings
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DatabaseConfig holds record store configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// CheckpointConfig holds checkpoint persistence configuration
type CheckpointConfig struct {
	// Backend selects where checkpoints live: "file" or "redis"
	Backend   string `yaml:"backend" json:"backend"`
	Directory string `yaml:"directory" json:"directory"`
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// QueueConfig holds deferred-dispatch worker queue configuration
type QueueConfig struct {
	Name        string `yaml:"name" json:"name"`
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
}

// BatchConfig holds batch processing configuration
type BatchConfig struct {
	Size       int           `yaml:"size" json:"size"`
	RunName    string        `yaml:"run_name" json:"run_name"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "tickets.db",
		},
		Checkpoint: CheckpointConfig{
			Backend:   "file",
			Directory: "",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Queue: QueueConfig{
			Name:        "tickets",
			Concurrency: 10,
		},
		Batch: BatchConfig{
			Size:       500,
			RunName:    "default",
			MaxRetries: 3,
			RetryDelay: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load builds the effective configuration from defaults, an optional config
// file, environment variables, and command line flag overrides, in that
// order of increasing precedence.
func Load(path string, flags map[string]interface{}) (*Config, error) {
	// Load .env file if present; missing file is not an error
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	cfg.applyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".tokenrotor.yaml",
		".tokenrotor.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "tokenrotor", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "tokenrotor", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".tokenrotor.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if driver := os.Getenv("TOKENROTOR_DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("TOKENROTOR_DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}

	if backend := os.Getenv("TOKENROTOR_CHECKPOINT_BACKEND"); backend != "" {
		c.Checkpoint.Backend = backend
	}
	if dir := os.Getenv("TOKENROTOR_CHECKPOINT_DIR"); dir != "" {
		c.Checkpoint.Directory = dir
	}

	if addr := os.Getenv("TOKENROTOR_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("TOKENROTOR_REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}

	if size := os.Getenv("TOKENROTOR_BATCH_SIZE"); size != "" {
		var val int
		fmt.Sscanf(size, "%d", &val)
		if val > 0 {
			c.Batch.Size = val
		}
	}
	if runName := os.Getenv("TOKENROTOR_RUN_NAME"); runName != "" {
		c.Batch.RunName = runName
	}

	if concurrency := os.Getenv("TOKENROTOR_QUEUE_CONCURRENCY"); concurrency != "" {
		var val int
		fmt.Sscanf(concurrency, "%d", &val)
		if val > 0 {
			c.Queue.Concurrency = val
		}
	}

	if logLevel := os.Getenv("TOKENROTOR_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// applyFlags applies command line flag overrides
func (c *Config) applyFlags(flags map[string]interface{}) {
	for key, value := range flags {
		switch key {
		case "batch-size":
			if v, ok := value.(int); ok && v > 0 {
				c.Batch.Size = v
			}
		case "run-name":
			if v, ok := value.(string); ok && v != "" {
				c.Batch.RunName = v
			}
		case "max-retries":
			if v, ok := value.(int); ok && v >= 0 {
				c.Batch.MaxRetries = v
			}
		case "checkpoint-backend":
			if v, ok := value.(string); ok && v != "" {
				c.Checkpoint.Backend = v
			}
		case "db-dsn":
			if v, ok := value.(string); ok && v != "" {
				c.Database.DSN = v
			}
		case "redis-addr":
			if v, ok := value.(string); ok && v != "" {
				c.Redis.Addr = v
			}
		case "log-level":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.Level = v
			}
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Driver == "" {
		errs = append(errs, errors.New("database driver is required"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}

	switch strings.ToLower(c.Checkpoint.Backend) {
	case "file", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend: %s", c.Checkpoint.Backend))
	}

	if c.Batch.Size <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Batch.RunName == "" {
		errs = append(errs, errors.New("run name is required"))
	}
	if c.Batch.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.Queue.Concurrency <= 0 {
		errs = append(errs, errors.New("queue concurrency must be positive"))
	}

	if len(errs) > 0 {
		var msgs []string
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
