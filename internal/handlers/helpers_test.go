package handlers

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/internal/services/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// recordingPublisher captures published event types in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.EventType
	data   []map[string]interface{}
}

var _ events.Publisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) record(t events.EventType, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
	p.data = append(p.data, data)
	return nil
}

func (p *recordingPublisher) PublishEncounterPresented(ctx context.Context, gameID uuid.UUID, requestID string, npcID string, turn int) error {
	return p.record(events.EventTypeEncounterPresented, map[string]interface{}{"npc_id": npcID, "turn": turn})
}

func (p *recordingPublisher) PublishTurnCompleted(ctx context.Context, gameID uuid.UUID, requestID string, result map[string]interface{}) error {
	return p.record(events.EventTypeTurnCompleted, result)
}

func (p *recordingPublisher) PublishReignEnded(ctx context.Context, gameID uuid.UUID, popularity int, turn int) error {
	return p.record(events.EventTypeReignEnded, map[string]interface{}{"popularity": popularity, "turn": turn})
}

func (p *recordingPublisher) PublishGameReset(ctx context.Context, gameID uuid.UUID) error {
	return p.record(events.EventTypeGameReset, nil)
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.EventType(nil), p.events...)
}
