package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeEncounterPresented EventType = "encounter.presented"
	EventTypeTurnCompleted      EventType = "turn.completed"
	EventTypeReignEnded         EventType = "reign.ended"
	EventTypeGameReset          EventType = "game.reset"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	RequestID string                 `json:"request_id,omitempty"`
	GameID    string                 `json:"game_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Channel returns the pub/sub channel for a game's events.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game:%s:events", gameID.String())
}

// Publisher is what handlers need from a broadcaster.
type Publisher interface {
	PublishEncounterPresented(ctx context.Context, gameID uuid.UUID, requestID string, npcID string, turn int) error
	PublishTurnCompleted(ctx context.Context, gameID uuid.UUID, requestID string, result map[string]interface{}) error
	PublishReignEnded(ctx context.Context, gameID uuid.UUID, popularity int, turn int) error
	PublishGameReset(ctx context.Context, gameID uuid.UUID) error
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishEncounterPresented publishes an encounter.presented event
func (b *Broadcaster) PublishEncounterPresented(ctx context.Context, gameID uuid.UUID, requestID string, npcID string, turn int) error {
	event := Event{
		Type:      EventTypeEncounterPresented,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]interface{}{
			"npc_id": npcID,
			"turn":   turn,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishTurnCompleted publishes a turn.completed event
func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, gameID uuid.UUID, requestID string, result map[string]interface{}) error {
	event := Event{
		Type:      EventTypeTurnCompleted,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data:      result,
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishReignEnded publishes a reign.ended event
func (b *Broadcaster) PublishReignEnded(ctx context.Context, gameID uuid.UUID, popularity int, turn int) error {
	event := Event{
		Type:   EventTypeReignEnded,
		GameID: gameID.String(),
		Data: map[string]interface{}{
			"popularity": popularity,
			"turn":       turn,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishGameReset publishes a game.reset event
func (b *Broadcaster) PublishGameReset(ctx context.Context, gameID uuid.UUID) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:   EventTypeGameReset,
		GameID: gameID.String(),
	})
}

// publishToGame publishes an event to the game-specific channel
func (b *Broadcaster) publishToGame(ctx context.Context, gameID uuid.UUID, event Event) error {
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
