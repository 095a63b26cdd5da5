package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/state"
	"github.com/jwebster45206/royal-court/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	gameStateKeyPrefix = "gamestate:"
	DefaultSessionTTL  = 24 * time.Hour
)

// RedisStorage implements the Storage interface using Redis for gamestate
// and the filesystem (or the embedded court) for the NPC catalog
type RedisStorage struct {
	client      *redis.Client
	logger      *slog.Logger
	catalogPath string
	ttl         time.Duration

	catalogMu sync.Mutex
	catalog   *catalog.Catalog
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// bare host:port or a redis:// URL.
func NewRedisStorage(redisURL string, catalogPath string, logger *slog.Logger) (*RedisStorage, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}
	return NewRedisStorageFromClient(redis.NewClient(opts), catalogPath, logger), nil
}

// NewRedisStorageFromClient wraps an existing client, which the storage
// then owns and closes.
func NewRedisStorageFromClient(client *redis.Client, catalogPath string, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client:      client,
		logger:      logger,
		catalogPath: catalogPath,
		ttl:         DefaultSessionTTL,
	}
}

// WithTTL sets how long an untouched game is kept.
// Returns the RedisStorage for method chaining
func (r *RedisStorage) WithTTL(ttl time.Duration) *RedisStorage {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

// Client exposes the underlying client for pub/sub.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// GameState operations (Redis-backed)

func (r *RedisStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	gs.UpdatedAt = time.Now()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	if err := r.client.Set(ctx, gameStateKeyPrefix+id.String(), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	data, err := r.client.Get(ctx, gameStateKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Gamestate not found", "uuid", id)
			return nil, nil
		}
		r.logger.Error("Failed to load gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}
	if len(data) == 0 {
		r.logger.Warn("Gamestate not found", "uuid", id)
		return nil, nil
	}

	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		r.logger.Error("Failed to unmarshal gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}

	return &gs, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, gameStateKeyPrefix+id.String()).Err(); err != nil {
		r.logger.Error("Failed to delete gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

// Catalog operations (filesystem-backed)

// GetCatalog loads the catalog once and serves the cached copy afterwards.
func (r *RedisStorage) GetCatalog(ctx context.Context) (*catalog.Catalog, error) {
	r.catalogMu.Lock()
	defer r.catalogMu.Unlock()

	if r.catalog != nil {
		return r.catalog, nil
	}

	var (
		c   *catalog.Catalog
		err error
	)
	if r.catalogPath == "" {
		c, err = catalog.Default()
	} else {
		c, err = catalog.Load(r.catalogPath)
	}
	if err != nil {
		r.logger.Error("Failed to load catalog", "path", r.catalogPath, "error", err)
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	r.logger.Info("Catalog loaded", "path", r.catalogPath, "npcs", c.Len())
	r.catalog = c
	return c, nil
}
