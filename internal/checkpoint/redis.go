package checkpoint

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisManager keeps checkpoint state in two Redis sets, keyed per run.
// Useful when several batch processes share progress.
type RedisManager struct {
	client *redis.Client
	runKey string
}

// NewRedisManager creates a redis-backed checkpoint for the given run key.
func NewRedisManager(client *redis.Client, runKey string) *RedisManager {
	return &RedisManager{client: client, runKey: runKey}
}

func (m *RedisManager) processedKey() string { return fmt.Sprintf("factsheet:%s:processed", m.runKey) }
func (m *RedisManager) failedKey() string    { return fmt.Sprintf("factsheet:%s:failed", m.runKey) }

// Load reads both sets.
func (m *RedisManager) Load(ctx context.Context) (State, error) {
	processed, err := m.client.SMembers(ctx, m.processedKey()).Result()
	if err != nil {
		return State{}, fmt.Errorf("loading processed set: %w", err)
	}
	failed, err := m.client.SMembers(ctx, m.failedKey()).Result()
	if err != nil {
		return State{}, fmt.Errorf("loading failed set: %w", err)
	}
	return State{Processed: processed, Failed: failed}, nil
}

// MarkProcessed adds the company to the processed set and clears any
// earlier failure mark.
func (m *RedisManager) MarkProcessed(ctx context.Context, companyID string) error {
	pipe := m.client.TxPipeline()
	pipe.SAdd(ctx, m.processedKey(), companyID)
	pipe.SRem(ctx, m.failedKey(), companyID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("marking processed: %w", err)
	}
	return nil
}

// MarkFailed adds the company to the failed set.
func (m *RedisManager) MarkFailed(ctx context.Context, companyID string) error {
	if err := m.client.SAdd(ctx, m.failedKey(), companyID).Err(); err != nil {
		return fmt.Errorf("marking failed: %w", err)
	}
	return nil
}
