package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	gameKeyPrefix = "games:v1:"
	gameIndexKey  = "games:v1:index"
)

// RedisStore persists games as JSON documents in Redis. Documents live under
// games:v1:<id>; a sorted set indexed by creation time serves listings.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save stores the config document and indexes it by creation time.
func (s *RedisStore) Save(ctx context.Context, cfg *types.GameConfig) (string, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.CreatedAt == 0 {
		cfg.CreatedAt = time.Now().UnixMilli()
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode game: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, gameKeyPrefix+cfg.ID, data, 0)
	pipe.ZAdd(ctx, gameIndexKey, redis.Z{Score: float64(cfg.CreatedAt), Member: cfg.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store game: %w", err)
	}

	logging.Info(ctx, "Game saved", zap.String("gameId", cfg.ID))
	return cfg.ID, nil
}

// Get loads one game by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*types.GameConfig, error) {
	data, err := s.client.Get(ctx, gameKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read game: %w", err)
	}

	var cfg types.GameConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode game %s: %w", id, err)
	}
	return &cfg, nil
}

// List returns summaries newest-first from the creation-time index. Index
// entries whose document has vanished are skipped and pruned.
func (s *RedisStore) List(ctx context.Context) ([]types.GameSummary, error) {
	ids, err := s.client.ZRevRange(ctx, gameIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read game index: %w", err)
	}

	summaries := make([]types.GameSummary, 0, len(ids))
	for _, id := range ids {
		cfg, err := s.Get(ctx, id)
		if err == ErrNotFound {
			s.client.ZRem(ctx, gameIndexKey, id)
			continue
		}
		if err != nil {
			logging.Warn(ctx, "Skipping unreadable game document", zap.String("gameId", id), zap.Error(err))
			continue
		}
		summaries = append(summaries, types.GameSummary{
			ID:        cfg.ID,
			CreatedAt: cfg.CreatedAt,
			Metadata:  cfg.Metadata,
		})
	}

	sortSummaries(summaries)
	return summaries, nil
}

// Ping verifies connectivity to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ GameStore = (*RedisStore)(nil)
