package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/royal-court/pkg/storage"
)

// NPCSummary is the public listing entry for a catalog NPC.
type NPCSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	MinTurn       int      `json:"min_turn,omitempty"`
	MaxTurn       int      `json:"max_turn,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

type CatalogHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewCatalogHandler(log *slog.Logger, storage storage.Storage) *CatalogHandler {
	return &CatalogHandler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP handles catalog reads
// Routes:
// GET /v1/npcs      - List NPCs
// GET /v1/npcs/{id} - Full NPC definition
func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	cat, err := h.storage.GetCatalog(r.Context())
	if err != nil {
		h.log.Error("Failed to get catalog", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to load catalog")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/npcs"), "/")
	if id == "" {
		npcs := cat.All()
		out := make([]NPCSummary, 0, len(npcs))
		for _, npc := range npcs {
			out = append(out, NPCSummary{
				ID:            npc.ID,
				Name:          npc.Name,
				Role:          npc.Role,
				MinTurn:       npc.MinTurn,
				MaxTurn:       npc.MaxTurn,
				Prerequisites: npc.Prerequisites,
			})
		}
		writeJSON(w, h.log, http.StatusOK, out)
		return
	}

	if strings.Contains(id, "/") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid NPC id")
		return
	}
	npc, ok := cat.FindByID(id)
	if !ok {
		writeError(w, h.log, http.StatusNotFound, "NPC not found")
		return
	}
	writeJSON(w, h.log, http.StatusOK, npc)
}
