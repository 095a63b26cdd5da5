package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/internal/middleware"
	"github.com/jwebster45206/royal-court/internal/services/events"
	"github.com/jwebster45206/royal-court/pkg/dice"
	"github.com/jwebster45206/royal-court/pkg/generation"
	"github.com/jwebster45206/royal-court/pkg/state"
	"github.com/jwebster45206/royal-court/pkg/storage"
)

const (
	DefaultGenerationTimeout = 30 * time.Second
	MaxTurnsLimit            = 100
)

// CreateGameRequest defines the optional request body for a new reign
type CreateGameRequest struct {
	MaxTurns int `json:"max_turns,omitempty"`
}

// ChoiceRequest selects one of the presented NPC's choices by index
type ChoiceRequest struct {
	Choice *int `json:"choice"`
}

// GameResponse is the public view of a reign
type GameResponse struct {
	state.Summary
	Encounter     *state.Encounter `json:"encounter,omitempty"`
	DominantTheme string           `json:"dominant_theme"`
}

func newGameResponse(gs *state.GameState) GameResponse {
	return GameResponse{
		Summary:       gs.Summary(),
		Encounter:     gs.Encounter,
		DominantTheme: gs.StoryState().DominantTheme,
	}
}

type GamesHandler struct {
	storage    storage.Storage
	generator  generation.Generator
	publisher  events.Publisher
	options    state.Options
	genTimeout time.Duration
	roller     dice.Roller
	logger     *slog.Logger

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewGamesHandler(storage storage.Storage, generator generation.Generator, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{
		storage:    storage,
		generator:  generator,
		options:    state.DefaultOptions(),
		genTimeout: DefaultGenerationTimeout,
		logger:     logger,
	}
}

// WithPublisher sets where game events are broadcast.
// Returns the GamesHandler for method chaining
func (h *GamesHandler) WithPublisher(p events.Publisher) *GamesHandler {
	h.publisher = p
	return h
}

// WithOptions sets the limits for new reigns.
// Returns the GamesHandler for method chaining
func (h *GamesHandler) WithOptions(opts state.Options) *GamesHandler {
	h.options = opts
	return h
}

// WithGenerationTimeout bounds each content generation call.
// Returns the GamesHandler for method chaining
func (h *GamesHandler) WithGenerationTimeout(d time.Duration) *GamesHandler {
	if d > 0 {
		h.genTimeout = d
	}
	return h
}

// WithRoller fixes the random source for every game.
// Returns the GamesHandler for method chaining
func (h *GamesHandler) WithRoller(r dice.Roller) *GamesHandler {
	h.roller = r
	return h
}

// ServeHTTP handles HTTP requests for reigns
// Routes:
// POST /v1/games                  - Start a new reign
// GET /v1/games/{id}              - Read reign summary and pending encounter
// DELETE /v1/games/{id}           - Delete a reign
// POST /v1/games/{id}/encounter   - Present the next NPC
// POST /v1/games/{id}/choices     - Apply a choice to the presented NPC
// POST /v1/games/{id}/preview     - Preview a choice without applying it
// POST /v1/games/{id}/reset       - Start the reign over
// GET /v1/games/{id}/characters   - Character ledger
// GET /v1/games/{id}/story        - Themes, arcs, conflicts and events
func (h *GamesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	gameID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid game ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid game ID format")
		return
	}

	route := ""
	if len(parts) == 2 {
		route = parts[1]
	} else if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}

	method := map[string]string{
		"":           "",
		"encounter":  http.MethodPost,
		"choices":    http.MethodPost,
		"preview":    http.MethodPost,
		"reset":      http.MethodPost,
		"characters": http.MethodGet,
		"story":      http.MethodGet,
	}
	want, ok := method[route]
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	if want != "" && r.Method != want {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only "+want+" is supported.")
		return
	}

	switch route {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.withGame(w, r, gameID, false, func(e *state.Engine) (int, any) {
				return http.StatusOK, newGameResponse(e.State())
			})
		case http.MethodDelete:
			h.handleDelete(w, r, gameID)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
	case "encounter":
		h.withGame(w, r, gameID, true, func(e *state.Engine) (int, any) {
			return h.presentEncounter(r.Context(), e)
		})
	case "choices":
		choice, ok := h.decodeChoice(w, r)
		if !ok {
			return
		}
		h.withGame(w, r, gameID, true, func(e *state.Engine) (int, any) {
			return h.choose(r.Context(), e, choice)
		})
	case "preview":
		choice, ok := h.decodeChoice(w, r)
		if !ok {
			return
		}
		h.withGame(w, r, gameID, false, func(e *state.Engine) (int, any) {
			preview, err := e.PreviewChoice(choice)
			if err != nil {
				return engineError(err)
			}
			return http.StatusOK, preview
		})
	case "reset":
		h.withGame(w, r, gameID, true, func(e *state.Engine) (int, any) {
			e.Reset()
			if h.publisher != nil {
				if err := h.publisher.PublishGameReset(r.Context(), gameID); err != nil {
					h.logger.Warn("Failed to publish reset", "game_id", gameID, "error", err)
				}
			}
			return http.StatusOK, newGameResponse(e.State())
		})
	case "characters":
		h.withGame(w, r, gameID, false, func(e *state.Engine) (int, any) {
			return http.StatusOK, e.State().Characters.All()
		})
	case "story":
		h.withGame(w, r, gameID, false, func(e *state.Engine) (int, any) {
			return http.StatusOK, e.State().StoryState()
		})
	}
}

func (h *GamesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.MaxTurns < 0 || req.MaxTurns > MaxTurnsLimit {
		writeError(w, h.logger, http.StatusBadRequest, "max_turns must be between 1 and 100")
		return
	}

	opts := h.options
	if req.MaxTurns > 0 {
		opts.MaxTurns = req.MaxTurns
	}
	gs := state.NewGameState(opts)

	if err := h.storage.SaveGameState(r.Context(), gs.ID, gs); err != nil {
		h.logger.Error("Failed to save new game", "game_id", gs.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save game")
		return
	}

	h.logger.Info("Reign started", "game_id", gs.ID, "max_turns", gs.MaxTurns)
	writeJSON(w, h.logger, http.StatusCreated, newGameResponse(gs))
}

func (h *GamesHandler) handleDelete(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	mu := h.lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if err := h.storage.DeleteGameState(r.Context(), gameID); err != nil {
		h.logger.Error("Failed to delete game", "game_id", gameID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete game")
		return
	}
	h.locks.Delete(gameID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *GamesHandler) decodeChoice(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return 0, false
	}
	if req.Choice == nil {
		writeError(w, h.logger, http.StatusBadRequest, "choice field is required")
		return 0, false
	}
	return *req.Choice, true
}

func (h *GamesHandler) lock(gameID uuid.UUID) *sync.Mutex {
	mu, _ := h.locks.LoadOrStore(gameID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// withGame loads the game, runs fn against an engine wrapping it and writes
// fn's response. When save is set and fn succeeded the game is persisted
// before responding. Requests for one game are serialized.
func (h *GamesHandler) withGame(w http.ResponseWriter, r *http.Request, gameID uuid.UUID, save bool, fn func(e *state.Engine) (int, any)) {
	mu := h.lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	ctx := r.Context()
	gs, err := h.storage.LoadGameState(ctx, gameID)
	if err != nil {
		h.logger.Error("Failed to load game", "game_id", gameID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game")
		return
	}
	if gs == nil {
		writeError(w, h.logger, http.StatusNotFound, "Game not found")
		return
	}

	cat, err := h.storage.GetCatalog(ctx)
	if err != nil {
		h.logger.Error("Failed to get catalog", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load catalog")
		return
	}

	e := state.NewEngine(gs, cat, h.logger)
	if h.roller != nil {
		e.WithRoller(h.roller)
	}

	status, body := fn(e)
	if save && status < http.StatusBadRequest {
		if err := h.storage.SaveGameState(ctx, gameID, gs); err != nil {
			h.logger.Error("Failed to save game", "game_id", gameID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to save game")
			return
		}
	}
	writeJSON(w, h.logger, status, body)
}

func (h *GamesHandler) presentEncounter(ctx context.Context, e *state.Engine) (int, any) {
	gs := e.State()
	genCtx, cancel := context.WithTimeout(ctx, h.genTimeout)
	defer cancel()

	enc, err := e.PresentEncounter(genCtx, h.generator)
	if err != nil {
		return engineError(err)
	}

	if enc.GenerationError != "" {
		h.logger.Warn("Encounter uses static content",
			"game_id", gs.ID,
			"npc_id", enc.NPC.ID,
			"reason", enc.GenerationError)
	}
	if h.publisher != nil {
		if err := h.publisher.PublishEncounterPresented(ctx, gs.ID, middleware.RequestID(ctx), enc.NPC.ID, enc.Turn); err != nil {
			h.logger.Warn("Failed to publish encounter", "game_id", gs.ID, "error", err)
		}
	}
	return http.StatusOK, enc
}

func (h *GamesHandler) choose(ctx context.Context, e *state.Engine, choice int) (int, any) {
	gs := e.State()
	npcID := ""
	if gs.Encounter != nil {
		npcID = gs.Encounter.NPC.ID
	}

	res, err := e.Choose(choice)
	if err != nil {
		return engineError(err)
	}

	h.logger.Info("Turn completed",
		"game_id", gs.ID,
		"npc_id", npcID,
		"choice", choice,
		"popularity", res.Popularity,
		"turn", res.Turn)

	if h.publisher != nil {
		data := map[string]interface{}{
			"npc_id":         npcID,
			"choice":         choice,
			"popularity":     res.Popularity,
			"turn":           res.Turn,
			"character_died": res.CharacterDied,
			"can_continue":   res.CanContinue,
		}
		if err := h.publisher.PublishTurnCompleted(ctx, gs.ID, middleware.RequestID(ctx), data); err != nil {
			h.logger.Warn("Failed to publish turn", "game_id", gs.ID, "error", err)
		}
		if !res.CanContinue {
			if err := h.publisher.PublishReignEnded(ctx, gs.ID, res.Popularity, res.Turn); err != nil {
				h.logger.Warn("Failed to publish reign end", "game_id", gs.ID, "error", err)
			}
		}
	}
	return http.StatusOK, res
}

func engineError(err error) (int, any) {
	switch {
	case errors.Is(err, state.ErrInvalidChoice):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, state.ErrNoEncounter), errors.Is(err, state.ErrGameOver):
		return http.StatusConflict, ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Failed to process turn"}
	}
}
