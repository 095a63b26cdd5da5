package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBroadcaster(client, logger), client
}

func receive(t *testing.T, ch <-chan *redis.Message) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			t.Fatalf("Failed to unmarshal event: %v", err)
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBroadcaster_PublishesToGameChannel(t *testing.T) {
	b, client := setupBroadcaster(t)
	ctx := context.Background()
	gameID := uuid.New()

	pubsub := client.Subscribe(ctx, Channel(gameID))
	defer func() { _ = pubsub.Close() }()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	ch := pubsub.Channel()

	if err := b.PublishEncounterPresented(ctx, gameID, "req-1", "farmer_john", 1); err != nil {
		t.Fatalf("PublishEncounterPresented failed: %v", err)
	}
	event := receive(t, ch)
	if event.Type != EventTypeEncounterPresented || event.Data["npc_id"] != "farmer_john" {
		t.Errorf("unexpected event %+v", event)
	}

	if err := b.PublishTurnCompleted(ctx, gameID, "req-2", map[string]interface{}{"popularity": 60}); err != nil {
		t.Fatalf("PublishTurnCompleted failed: %v", err)
	}
	event = receive(t, ch)
	if event.Type != EventTypeTurnCompleted || event.GameID != gameID.String() || event.RequestID != "req-2" {
		t.Errorf("unexpected event %+v", event)
	}
	if event.Data["popularity"] != float64(60) {
		t.Errorf("Expected popularity 60, got %v", event.Data["popularity"])
	}

	if err := b.PublishReignEnded(ctx, gameID, 0, 7); err != nil {
		t.Fatalf("PublishReignEnded failed: %v", err)
	}
	if event = receive(t, ch); event.Type != EventTypeReignEnded {
		t.Errorf("Expected reign.ended, got %s", event.Type)
	}

	if err := b.PublishGameReset(ctx, gameID); err != nil {
		t.Fatalf("PublishGameReset failed: %v", err)
	}
	if event = receive(t, ch); event.Type != EventTypeGameReset {
		t.Errorf("Expected game.reset, got %s", event.Type)
	}
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	if got := Channel(id); got != "game:11111111-2222-3333-4444-555555555555:events" {
		t.Errorf("unexpected channel %s", got)
	}
}
