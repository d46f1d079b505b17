package main

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"tokenrotor/pkg/checkpoint"
	"tokenrotor/pkg/config"
	"tokenrotor/pkg/engine"
)

// globalFlags collects the persistent flag overrides for config.Load
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	return flags
}

// newCheckpointStore builds the configured checkpoint backend
func newCheckpointStore(cfg *config.Config) (engine.CheckpointStore, error) {
	switch strings.ToLower(cfg.Checkpoint.Backend) {
	case "file":
		return checkpoint.NewFileStore(cfg.Checkpoint.Directory)
	case "redis":
		return checkpoint.NewRedisStore(newRedisClient(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend: %s", cfg.Checkpoint.Backend)
	}
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func redisClientOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}
