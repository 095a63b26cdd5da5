package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/dice"
)

const (
	DefaultAffinity = 50.0
	MinAffinity     = 0.0
	MaxAffinity     = 100.0

	// DeathAffinityThreshold is the affinity at or below which harsh
	// treatment can kill a character.
	DeathAffinityThreshold = 10.0

	DefaultImage   = "/images/characters/farmer.svg"
	UnknownRole    = "Unknown"
	UnknownName    = "Unknown"
	GeneratedRole  = "Citizen"
	generatedIDFmt = "ai_%d_%s"
)

var ErrCharacterNotFound = errors.New("character not found")

type Status string

const (
	StatusAlive  Status = "alive"
	StatusDead   Status = "dead"
	StatusExiled Status = "exiled"
)

// Interaction is one entry in a character's history with the crown.
type Interaction struct {
	Turn                int       `json:"turn"`
	Choice              string    `json:"choice,omitempty"` // the choice text or reaction description
	Action              string    `json:"action,omitempty"` // set for external modifications
	Change              string    `json:"change,omitempty"` // reason attached to an external modification
	AffinityChange      float64   `json:"affinity_change"`
	RelationshipContext string    `json:"relationship_context,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// Character is the mutable record of someone the king has dealt with.
type Character struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Image          string        `json:"image"`
	Role           string        `json:"role"`
	Affinity       float64       `json:"affinity"`
	Status         Status        `json:"status"`
	Encountered    bool          `json:"encountered"`
	IsGenerated    bool          `json:"is_ai_generated"`
	Interactions   []Interaction `json:"interactions"`
	DeathReason    string        `json:"death_reason,omitempty"`
	ExileReason    string        `json:"exile_reason,omitempty"`
	CreationReason string        `json:"creation_reason,omitempty"`
}

// IsAlive reports whether the character is neither dead nor exiled.
func (c *Character) IsAlive() bool {
	return c.Status == StatusAlive
}

// Action is an append-only record of one decision made by the king.
type Action struct {
	NPC              string         `json:"npc"`
	Choice           catalog.Choice `json:"choice"`
	ChoiceIndex      int            `json:"choice_index"`
	PopularityChange int            `json:"popularity_change"` // after context modifiers
	PopularityBefore int            `json:"popularity"`        // snapshot taken before the change
	PopularityAfter  int            `json:"popularity_after"`
	Turn             int            `json:"turn"`
	Timestamp        time.Time      `json:"timestamp"`
}

// ClampAffinity bounds an affinity into [MinAffinity, MaxAffinity].
func ClampAffinity(v float64) float64 {
	return max(MinAffinity, min(MaxAffinity, v))
}

// Ledger owns every Character the game has encountered, static or generated.
type Ledger struct {
	Characters      map[string]*Character `json:"characters"`
	Order           []string              `json:"order"`               // insertion order of Characters
	Generated       []string              `json:"generated,omitempty"` // ids of generated characters
	NextGeneratedID int                   `json:"next_generated_id"`
}

var _ catalog.Finder = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{
		Characters: make(map[string]*Character),
		Order:      make([]string, 0),
	}
}

func (l *Ledger) ensureMap() {
	if l.Characters == nil {
		l.Characters = make(map[string]*Character)
	}
}

func (l *Ledger) insert(c *Character) {
	l.ensureMap()
	l.Characters[c.ID] = c
	l.Order = append(l.Order, c.ID)
}

// EnsureTracked returns the character for npcID, creating it from the
// finder's definition (or neutral defaults) if it is not yet tracked.
func (l *Ledger) EnsureTracked(npcID string, finder catalog.Finder) *Character {
	if c, ok := l.ByID(npcID); ok {
		return c
	}

	c := &Character{
		ID:           npcID,
		Name:         UnknownName,
		Image:        DefaultImage,
		Role:         UnknownRole,
		Affinity:     DefaultAffinity,
		Status:       StatusAlive,
		Encountered:  true,
		Interactions: make([]Interaction, 0),
	}
	if finder != nil {
		if def, ok := finder.FindByID(npcID); ok {
			c.Name = def.Name
			c.Role = def.Role
			if def.Image != "" {
				c.Image = def.Image
			}
		}
	}
	l.insert(c)
	return c
}

// ByID returns the tracked character with the given id.
func (l *Ledger) ByID(id string) (*Character, bool) {
	if l == nil || l.Characters == nil {
		return nil, false
	}
	c, ok := l.Characters[id]
	return c, ok
}

// All returns a snapshot of every character in insertion order.
func (l *Ledger) All() []Character {
	if l == nil {
		return nil
	}
	out := make([]Character, 0, len(l.Order))
	for _, id := range l.Order {
		if c, ok := l.Characters[id]; ok {
			cp := *c
			cp.Interactions = append([]Interaction(nil), c.Interactions...)
			out = append(out, cp)
		}
	}
	return out
}

// Each calls fn for every tracked character in insertion order.
func (l *Ledger) Each(fn func(c *Character)) {
	if l == nil {
		return
	}
	for _, id := range l.Order {
		if c, ok := l.Characters[id]; ok {
			fn(c)
		}
	}
}

// Count returns the number of characters matching pred.
func (l *Ledger) Count(pred func(c *Character) bool) int {
	n := 0
	l.Each(func(c *Character) {
		if pred(c) {
			n++
		}
	})
	return n
}

// IDs returns the ids of characters matching pred, in insertion order.
func (l *Ledger) IDs(pred func(c *Character) bool) []string {
	ids := make([]string, 0)
	l.Each(func(c *Character) {
		if pred(c) {
			ids = append(ids, c.ID)
		}
	})
	return ids
}

// ApplyAffinityDelta adds delta to the character's affinity, clamped to
// [0, 100], and returns the resulting affinity.
func (l *Ledger) ApplyAffinityDelta(id string, delta float64) (float64, error) {
	c, ok := l.ByID(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	c.Affinity = ClampAffinity(c.Affinity + delta)
	return c.Affinity, nil
}

// RecordInteraction appends to the character's history. Callers mutate
// affinity first.
func (l *Ledger) RecordInteraction(id string, in Interaction) error {
	c, ok := l.ByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	c.Interactions = append(c.Interactions, in)
	return nil
}

// MaybeKill rolls for the death of a character whose affinity has fallen to
// DeathAffinityThreshold or below after a harsh or threatening choice.
// It returns true when the character died.
func (l *Ledger) MaybeKill(id string, choiceType string, probability float64, r dice.Roller) bool {
	c, ok := l.ByID(id)
	if !ok || !c.IsAlive() {
		return false
	}
	if choiceType != catalog.ChoiceHarsh && choiceType != catalog.ChoiceThreatening {
		return false
	}
	if c.Affinity > DeathAffinityThreshold {
		return false
	}
	if !dice.Chance(r, probability) {
		return false
	}
	c.Status = StatusDead
	return true
}

// Kill marks a living character dead. Returns false if it was not alive.
func (l *Ledger) Kill(id, reason string) bool {
	c, ok := l.ByID(id)
	if !ok || !c.IsAlive() {
		return false
	}
	c.Status = StatusDead
	c.DeathReason = reason
	return true
}

// Exile marks a living character exiled. Returns false if it was not alive.
func (l *Ledger) Exile(id, reason string) bool {
	c, ok := l.ByID(id)
	if !ok || !c.IsAlive() {
		return false
	}
	c.Status = StatusExiled
	c.ExileReason = reason
	return true
}

// AddGenerated inserts a fully formed generated character.
func (l *Ledger) AddGenerated(c Character) (*Character, error) {
	if c.ID == "" {
		return nil, errors.New("generated character has no id")
	}
	if _, exists := l.ByID(c.ID); exists {
		return nil, fmt.Errorf("character id already tracked: %s", c.ID)
	}
	c.IsGenerated = true
	c.Affinity = ClampAffinity(c.Affinity)
	if c.Status == "" {
		c.Status = StatusAlive
	}
	if c.Interactions == nil {
		c.Interactions = make([]Interaction, 0)
	}
	stored := &c
	l.insert(stored)
	l.Generated = append(l.Generated, c.ID)
	return stored, nil
}

// GeneratedCharacters returns a snapshot of the generated characters.
func (l *Ledger) GeneratedCharacters() []Character {
	out := make([]Character, 0, len(l.Generated))
	for _, id := range l.Generated {
		if c, ok := l.ByID(id); ok {
			out = append(out, *c)
		}
	}
	return out
}

// FindByName resolves a character by case-insensitive substring match in
// either direction, so "Marcus" finds "Father Marcus" and vice versa.
func (l *Ledger) FindByName(name string) (*Character, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, false
	}
	var found *Character
	l.Each(func(c *Character) {
		if found != nil {
			return
		}
		hay := strings.ToLower(c.Name)
		if hay == "" {
			return
		}
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			found = c
		}
	})
	return found, found != nil
}

// MintID returns a fresh generated-character id. The counter keeps ids
// unique within a game; suffix adds entropy and may be injected by tests.
func (l *Ledger) MintID(suffix func() string) string {
	if suffix == nil {
		suffix = RandomSuffix
	}
	for {
		l.NextGeneratedID++
		id := fmt.Sprintf(generatedIDFmt, l.NextGeneratedID, suffix())
		if _, taken := l.ByID(id); !taken {
			return id
		}
	}
}

// RandomSuffix is the default id suffix: nine hex characters of a uuid.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// FindByID exposes generated characters as minimal NPC definitions so
// relationship and role lookups see them.
func (l *Ledger) FindByID(id string) (catalog.NPCDefinition, bool) {
	c, ok := l.ByID(id)
	if !ok || !c.IsGenerated {
		return catalog.NPCDefinition{}, false
	}
	return catalog.NPCDefinition{
		ID:    c.ID,
		Name:  c.Name,
		Role:  c.Role,
		Image: c.Image,
	}, true
}
