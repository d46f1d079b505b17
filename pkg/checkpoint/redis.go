package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tokenrotor/pkg/engine"
	"tokenrotor/pkg/logger"
)

const redisKeyPrefix = "tokenrotor:checkpoint:"

// RedisStore persists checkpoints in Redis, one JSON value per run name.
// Useful when the runner moves between hosts and a local file would not
// follow it.
type RedisStore struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisStore creates a Redis-backed checkpoint store on an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.GetLogger(),
	}
}

func redisKey(runName string) string {
	return redisKeyPrefix + runName
}

// Load returns the checkpoint for runName, or the zero checkpoint when the
// key is absent or holds an unparseable value.
func (s *RedisStore) Load(ctx context.Context, runName string) (engine.Checkpoint, error) {
	data, err := s.client.Get(ctx, redisKey(runName)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return engine.Checkpoint{}, nil
		}
		return engine.Checkpoint{}, fmt.Errorf("failed to read checkpoint from redis: %w", err)
	}

	var cp engine.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil || cp.LastID < 0 || cp.Elapsed < 0 {
		s.logger.WarnWithFields("Checkpoint unparseable, starting over", map[string]interface{}{
			"run": runName,
			"key": redisKey(runName),
		})
		return engine.Checkpoint{}, nil
	}

	return cp, nil
}

// Save overwrites the checkpoint for runName. Last write wins.
func (s *RedisStore) Save(ctx context.Context, runName string, cp engine.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(runName), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write checkpoint to redis: %w", err)
	}

	return nil
}

// Reset deletes the checkpoint for runName. A missing key is not an error.
func (s *RedisStore) Reset(ctx context.Context, runName string) error {
	if err := s.client.Del(ctx, redisKey(runName)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint from redis: %w", err)
	}

	s.logger.WithField("run", runName).Debug("Checkpoint deleted")
	return nil
}
