package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/state"
)

// Storage defines a unified interface for all storage operations
// This interface combines gamestate persistence (Redis) with catalog loading (filesystem or embedded)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations (Redis-backed)
	// LoadGameState returns nil, nil when the game does not exist
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error

	// Catalog operations (filesystem-backed, embedded court by default)
	GetCatalog(ctx context.Context) (*catalog.Catalog, error)
}
