package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/internal/handlers"
	"github.com/jwebster45206/royal-court/pkg/state"
)

func TestAPIClient_CreateAndChoose(t *testing.T) {
	gameID := uuid.New()
	var gotChoice int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/games":
			var req handlers.CreateGameRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(handlers.GameResponse{Summary: state.Summary{ID: gameID, Popularity: 50, Turn: 1, MaxTurns: req.MaxTurns, CanContinue: true}})
		case r.Method == http.MethodPost && r.URL.Path == "/v1/games/"+gameID.String()+"/choices":
			var req handlers.ChoiceRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotChoice = *req.Choice
			_ = json.NewEncoder(w).Encode(state.ActionResult{Popularity: 60, Turn: 2, CanContinue: true})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(handlers.ErrorResponse{Error: "Not found"})
		}
	}))
	defer server.Close()

	api := newAPIClient(server.Client(), server.URL+"/")

	game, err := api.createGame(7)
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}
	if game.ID != gameID || game.MaxTurns != 7 {
		t.Errorf("unexpected game: %+v", game.Summary)
	}

	res, err := api.choose(gameID, 2)
	if err != nil {
		t.Fatalf("choose failed: %v", err)
	}
	if gotChoice != 2 || res.Popularity != 60 {
		t.Errorf("Expected choice 2 and popularity 60, got %d and %d", gotChoice, res.Popularity)
	}

	_, err = api.story(gameID)
	if err == nil || !strings.Contains(err.Error(), "Not found") {
		t.Errorf("Expected API error message to surface, got %v", err)
	}
}

func TestAPIClient_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	api := newAPIClient(server.Client(), server.URL)
	_, err := api.getGame(uuid.New())
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Errorf("Expected status error, got %v", err)
	}
	if api.testConnection() {
		t.Error("Expected testConnection to fail on 502")
	}
}

func TestReadSSE(t *testing.T) {
	stream := strings.Join([]string{
		"event: connected",
		`data: {"message":"Connected to event stream"}`,
		"",
		": keepalive",
		"",
		"event: turn.completed",
		`data: {"popularity":60}`,
		"",
	}, "\n")

	ch := make(chan SSEEvent, 4)
	if err := readSSE(context.Background(), strings.NewReader(stream), ch); err != nil {
		t.Fatalf("readSSE failed: %v", err)
	}
	close(ch)

	var got []SSEEvent
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d: %+v", len(got), got)
	}
	if got[1].Type != "turn.completed" || got[1].Data["popularity"] != float64(60) {
		t.Errorf("unexpected event: %+v", got[1])
	}
}
