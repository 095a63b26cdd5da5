// Package story tracks the emergent narrative of a reign: thematic scores,
// arcs, conflicts and world events derived from the king's decisions.
package story

import (
	"math"
	"slices"

	"github.com/jwebster45206/royal-court/pkg/ledger"
)

const (
	ThemeJustice   = "justice"
	ThemeDiplomacy = "diplomacy"
	ThemeTradition = "tradition"
	ThemeEconomy   = "economy"
	ThemeMilitary  = "military"
	ThemeBalanced  = "balanced"
)

const (
	ArcRebellion   = "rebellion"
	ArcAlliance    = "alliance"
	ArcDivineFavor = "divine_favor"
)

const (
	ConflictDiscontent = "discontent"

	EventUnrest     = "unrest"
	EventDiscontent = "discontent"
)

// Themes holds the five signed thematic accumulators. They are unbounded.
type Themes struct {
	Justice   float64 `json:"justice"`
	Diplomacy float64 `json:"diplomacy"`
	Tradition float64 `json:"tradition"`
	Economy   float64 `json:"economy"`
	Military  float64 `json:"military"`
}

// Dominant returns the theme with the greatest magnitude. Ties go to the
// theme listed first; all zeros is "balanced".
func (t Themes) Dominant() string {
	ordered := []struct {
		name  string
		value float64
	}{
		{ThemeJustice, t.Justice},
		{ThemeDiplomacy, t.Diplomacy},
		{ThemeTradition, t.Tradition},
		{ThemeEconomy, t.Economy},
		{ThemeMilitary, t.Military},
	}

	best, bestAbs := ThemeBalanced, 0.0
	for _, th := range ordered {
		if a := math.Abs(th.value); a > bestAbs {
			best, bestAbs = th.name, a
		}
	}
	return best
}

// Arc is a narrative thread created once per type.
type Arc struct {
	Type        string        `json:"type"`
	Progress    int           `json:"progress"`
	TriggeredBy ledger.Action `json:"triggered_by"`
	Description string        `json:"description"`
	Characters  []string      `json:"characters"` // snapshot taken when the arc triggered
}

// Conflict is an active tension between the crown and specific characters.
type Conflict struct {
	Type               string        `json:"type"`
	InvolvedCharacters []string      `json:"involved_characters"`
	Intensity          int           `json:"intensity"`
	LastAction         ledger.Action `json:"last_action"`
	Description        string        `json:"description"`
}

// Involves reports whether the conflict includes the character.
func (c Conflict) Involves(id string) bool {
	return slices.Contains(c.InvolvedCharacters, id)
}

type Effects struct {
	PopularityModifier int `json:"popularity_modifier"`
}

// WorldEvent is a kingdom-wide happening. At most one exists per type and turn.
type WorldEvent struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Turn        int     `json:"turn"`
	Effects     Effects `json:"effects"`
}

// State is everything the tracker owns.
type State struct {
	Themes    Themes       `json:"themes"`
	Arcs      []Arc        `json:"arcs"`
	Conflicts []Conflict   `json:"conflicts"`
	Events    []WorldEvent `json:"events"`
}

func NewState() *State {
	return &State{
		Arcs:      make([]Arc, 0),
		Conflicts: make([]Conflict, 0),
		Events:    make([]WorldEvent, 0),
	}
}

// HasArc reports whether an arc of the given type already exists.
func (s *State) HasArc(arcType string) bool {
	return slices.ContainsFunc(s.Arcs, func(a Arc) bool { return a.Type == arcType })
}

// HasEvent reports whether an event of the given type fired on the turn.
func (s *State) HasEvent(eventType string, turn int) bool {
	return slices.ContainsFunc(s.Events, func(e WorldEvent) bool {
		return e.Type == eventType && e.Turn == turn
	})
}

// ArcsInvolving returns the arcs whose character snapshot includes id.
func (s *State) ArcsInvolving(id string) []Arc {
	var out []Arc
	for _, a := range s.Arcs {
		if slices.Contains(a.Characters, id) {
			out = append(out, a)
		}
	}
	return out
}

func (s *State) DominantTheme() string {
	return s.Themes.Dominant()
}

// Snapshot is the read-only view of story state handed to clients.
type Snapshot struct {
	Themes        Themes       `json:"themes"`
	Arcs          []Arc        `json:"arcs"`
	Conflicts     []Conflict   `json:"conflicts"`
	Events        []WorldEvent `json:"events"`
	DominantTheme string       `json:"dominant_theme"`
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Themes:        s.Themes,
		Arcs:          slices.Clone(s.Arcs),
		Conflicts:     slices.Clone(s.Conflicts),
		Events:        slices.Clone(s.Events),
		DominantTheme: s.DominantTheme(),
	}
}
