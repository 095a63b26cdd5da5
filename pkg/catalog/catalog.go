package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

//go:embed data/court.json
var defaultCatalogJSON []byte

// ErrNPCNotFound is returned when an id is not present in the catalog.
var ErrNPCNotFound = errors.New("npc not found")

// TriggerImmediate marks a CharacterAction that fires when its NPC is
// presented, before the player has chosen anything.
const TriggerImmediate = -1

// Choice types with special handling in the engine. Content may use others.
const (
	ChoiceHarsh       = "harsh"
	ChoiceMerciful    = "merciful"
	ChoiceDiplomatic  = "diplomatic"
	ChoiceThreatening = "threatening"
	ChoiceGenerous    = "generous"
	ChoiceProtective  = "protective"
	ChoiceDismissive  = "dismissive"
	ChoiceNeutral     = "neutral"
)

// Roles the engine scores against.
const (
	RolePeasant  = "Peasant"
	RoleBurgher  = "Burgher"
	RoleMerchant = "merchant"
	RoleNoble    = "Noble"
	RoleClergy   = "Clergy"
	RoleMilitary = "Military"
)

// Relationship types used for affinity propagation.
const (
	RelationFamily  = "family"
	RelationFriend  = "friend"
	RelationAlly    = "ally"
	RelationRival   = "rival"
	RelationEnemy   = "enemy"
	RelationMentor  = "mentor"
	RelationStudent = "student"
)

// Choice is one option the king can take when an NPC presents a complaint.
type Choice struct {
	Text             string `json:"text"`
	Consequence      string `json:"consequence"`
	PopularityChange int    `json:"popularity_change"`
	Type             string `json:"type"`                        // e.g. "harsh", "merciful", "diplomatic"
	NarratorResponse string `json:"narrator_response,omitempty"` // shown after the choice is made
}

// Relationship declares which other characters matter to an NPC.
type Relationship struct {
	AffectedBy  []string `json:"affected_by,omitempty"`  // NPC ids whose past treatment matters
	CharacterID string   `json:"character_id,omitempty"` // a single linked character
	Modifier    string   `json:"modifier,omitempty"`     // free text describing the link
	Type        string   `json:"type,omitempty"`         // family|friend|ally|rival|enemy|mentor|student
}

// Names reports whether the relationship refers to the given character id.
func (r Relationship) Names(id string) bool {
	return r.CharacterID == id || slices.Contains(r.AffectedBy, id)
}

// CharacterAction is a structured mutation of the character ledger, usually
// supplied by generated content.
type CharacterAction struct {
	Type           string `json:"type"` // death|create|modify|exile
	CharacterID    string `json:"character_id,omitempty"`
	CharacterName  string `json:"character_name,omitempty"`
	CharacterRole  string `json:"character_role,omitempty"`
	CharacterImage string `json:"character_image,omitempty"`
	NewRole        string `json:"new_role,omitempty"`
	AffinityChange int    `json:"affinity_change,omitempty"`
	Reason         string `json:"reason,omitempty"`
	TriggerChoice  int    `json:"trigger_choice"` // choice index, or TriggerImmediate
}

// NPCDefinition is a read-only catalog record for a court visitor.
type NPCDefinition struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Role             string            `json:"role"`
	Image            string            `json:"image,omitempty"`
	Background       string            `json:"background,omitempty"`
	BaseComplaint    string            `json:"base_complaint"`
	Dialogue         string            `json:"dialogue"`
	Choices          []Choice          `json:"choices"`
	Relationships    []Relationship    `json:"relationships,omitempty"`
	Prerequisites    []string          `json:"prerequisites,omitempty"`  // NPC ids that must already have been handled
	MinTurn          int               `json:"min_turn,omitempty"`       // 0 means no lower bound
	MaxTurn          int               `json:"max_turn,omitempty"`       // 0 means no upper bound
	PreferredTurn    int               `json:"preferred_turn,omitempty"` // 0 means no preference
	CharacterActions []CharacterAction `json:"character_actions,omitempty"`
}

// IsAffectedBy reports whether any declared relationship lists npcID in
// its affected_by set.
func (n NPCDefinition) IsAffectedBy(npcID string) bool {
	for _, rel := range n.Relationships {
		if slices.Contains(rel.AffectedBy, npcID) {
			return true
		}
	}
	return false
}

// RelationshipWith returns the first relationship that names the other id.
func (n NPCDefinition) RelationshipWith(otherID string) (Relationship, bool) {
	for _, rel := range n.Relationships {
		if rel.Names(otherID) {
			return rel, true
		}
	}
	return Relationship{}, false
}

// InTurnWindow reports whether the NPC may appear on the given turn.
func (n NPCDefinition) InTurnWindow(turn int) bool {
	if n.MinTurn > 0 && turn < n.MinTurn {
		return false
	}
	if n.MaxTurn > 0 && turn > n.MaxTurn {
		return false
	}
	return true
}

// Finder looks up NPC definitions by id.
type Finder interface {
	FindByID(id string) (NPCDefinition, bool)
}

// Catalog is the static, versioned collection of NPC definitions.
type Catalog struct {
	Version int             `json:"version"`
	NPCs    []NPCDefinition `json:"npcs"`

	index map[string]int
}

var _ Finder = (*Catalog)(nil)

// New builds a catalog from the given definitions, keeping their order.
func New(npcs []NPCDefinition) (*Catalog, error) {
	c := &Catalog{NPCs: npcs}
	if err := c.buildIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the embedded court catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalogJSON)
}

// Load reads a catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if err := c.buildIndex(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) buildIndex() error {
	c.index = make(map[string]int, len(c.NPCs))
	for i, npc := range c.NPCs {
		if npc.ID == "" {
			return fmt.Errorf("npc at position %d has no id", i)
		}
		if _, dup := c.index[npc.ID]; dup {
			return fmt.Errorf("duplicate npc id: %s", npc.ID)
		}
		c.index[npc.ID] = i
	}
	return nil
}

// FindByID returns the definition with the given id.
func (c *Catalog) FindByID(id string) (NPCDefinition, bool) {
	if c == nil {
		return NPCDefinition{}, false
	}
	if c.index == nil {
		if err := c.buildIndex(); err != nil {
			return NPCDefinition{}, false
		}
	}
	i, ok := c.index[id]
	if !ok {
		return NPCDefinition{}, false
	}
	return c.NPCs[i], true
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []NPCDefinition {
	if c == nil {
		return nil
	}
	return c.NPCs
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.NPCs)
}
