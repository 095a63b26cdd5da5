package state

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/ledger"
	"github.com/jwebster45206/royal-court/pkg/story"
)

const (
	MinPopularity = 0
	MaxPopularity = 100

	DefaultStartingPopularity = 50
	DefaultMaxTurns           = 15
	DefaultDeathProbability   = 0.3
)

var (
	ErrNoEncounter   = errors.New("no npc is currently presented")
	ErrInvalidChoice = errors.New("invalid choice index")
	ErrGameOver      = errors.New("the reign has ended")
)

// Options are the tunable limits of a reign.
type Options struct {
	MaxTurns              int     `json:"max_turns"`
	StartingPopularity    int     `json:"starting_popularity"`
	DeathProbability      float64 `json:"death_probability"`
	UnrestProbability     float64 `json:"unrest_probability"`
	DiscontentProbability float64 `json:"discontent_probability"`
}

func DefaultOptions() Options {
	return Options{
		MaxTurns:              DefaultMaxTurns,
		StartingPopularity:    DefaultStartingPopularity,
		DeathProbability:      DefaultDeathProbability,
		UnrestProbability:     story.DefaultUnrestProbability,
		DiscontentProbability: story.DefaultDiscontentProbability,
	}
}

// Encounter is the NPC currently standing before the throne.
type Encounter struct {
	NPC              catalog.NPCDefinition `json:"npc"`
	Turn             int                   `json:"turn"`
	Generated        bool                  `json:"generated"`                  // content came from the generator
	GenerationError  string                `json:"generation_error,omitempty"` // advisory only
	ImmediateActions []ActionSummary       `json:"immediate_actions,omitempty"`
}

// GameState is the complete mutable state of one reign.
type GameState struct {
	ID            uuid.UUID       `json:"id"`
	Popularity    int             `json:"popularity"`
	Turn          int             `json:"turn"`
	MaxTurns      int             `json:"max_turns"`
	ActionHistory []ledger.Action `json:"action_history"`
	Completed     []string        `json:"completed_npcs"`
	Characters    *ledger.Ledger  `json:"characters"`
	Story         *story.State    `json:"story"`
	Encounter     *Encounter      `json:"encounter,omitempty"`
	Options       Options         `json:"options"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewGameState starts a fresh reign with the given options.
func NewGameState(opts Options) *GameState {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	now := time.Now()
	return &GameState{
		ID:            uuid.New(),
		Popularity:    ClampPopularity(opts.StartingPopularity),
		Turn:          1,
		MaxTurns:      opts.MaxTurns,
		ActionHistory: make([]ledger.Action, 0),
		Completed:     make([]string, 0),
		Characters:    ledger.New(),
		Story:         story.NewState(),
		Options:       opts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ClampPopularity bounds a popularity value into [0, 100].
func ClampPopularity(v int) int {
	return max(MinPopularity, min(MaxPopularity, v))
}

// CanContinue reports whether the reign goes on: the king is not wholly
// unpopular and the turn limit has not been passed.
func (gs *GameState) CanContinue() bool {
	return gs.Popularity > 0 && gs.Turn <= gs.MaxTurns
}

// IsCompleted reports whether the NPC has already been dealt with.
func (gs *GameState) IsCompleted(npcID string) bool {
	return slices.Contains(gs.Completed, npcID)
}

// HasActedOn reports whether any recorded action involved the NPC.
func (gs *GameState) HasActedOn(npcID string) bool {
	return slices.ContainsFunc(gs.ActionHistory, func(a ledger.Action) bool { return a.NPC == npcID })
}

// RecentActions returns up to n of the most recent actions, oldest first.
func (gs *GameState) RecentActions(n int) []ledger.Action {
	if n <= 0 || len(gs.ActionHistory) == 0 {
		return nil
	}
	start := max(0, len(gs.ActionHistory)-n)
	return gs.ActionHistory[start:]
}

// Summary is a compact read-only view of the reign.
type Summary struct {
	ID          uuid.UUID       `json:"id"`
	Popularity  int             `json:"popularity"`
	Turn        int             `json:"turn"`
	MaxTurns    int             `json:"max_turns"`
	History     []ledger.Action `json:"history"`
	Completed   []string        `json:"completed_npcs"`
	CanContinue bool            `json:"can_continue"`
}

func (gs *GameState) Summary() Summary {
	return Summary{
		ID:          gs.ID,
		Popularity:  gs.Popularity,
		Turn:        gs.Turn,
		MaxTurns:    gs.MaxTurns,
		History:     slices.Clone(gs.ActionHistory),
		Completed:   slices.Clone(gs.Completed),
		CanContinue: gs.CanContinue(),
	}
}

// StoryState returns a snapshot of themes, arcs, conflicts and events.
func (gs *GameState) StoryState() story.Snapshot {
	if gs.Story == nil {
		return story.NewState().Snapshot()
	}
	return gs.Story.Snapshot()
}

// directory resolves NPC definitions from the static catalog first and then
// from generated characters in the ledger.
type directory struct {
	catalog    catalog.Finder
	characters *ledger.Ledger
}

var _ catalog.Finder = directory{}

func (d directory) FindByID(id string) (catalog.NPCDefinition, bool) {
	if d.catalog != nil {
		if def, ok := d.catalog.FindByID(id); ok {
			return def, true
		}
	}
	return d.characters.FindByID(id)
}
