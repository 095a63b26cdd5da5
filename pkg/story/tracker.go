package story

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/dice"
	"github.com/jwebster45206/royal-court/pkg/ledger"
)

const (
	DefaultUnrestProbability     = 0.3
	DefaultDiscontentProbability = 0.25

	rebellionThreshold   = 3
	allianceThreshold    = 3
	divineFavorThreshold = 2

	unrestDeadThreshold      = 2
	discontentUnhappyCount   = 4
	unhappyAffinity          = 30.0
	loyalAffinity            = 70.0
	reactionRecordThreshold  = 5.0
	conflictCreateThreshold  = -10
	conflictHarshEscalation  = 10
	conflictOtherDeescalates = -5
)

// relationMultipliers scale an action's popularity change into the affinity
// change felt by a related observer.
var relationMultipliers = map[string]float64{
	catalog.RelationFamily:  2,
	catalog.RelationFriend:  1.5,
	catalog.RelationAlly:    1.5,
	catalog.RelationMentor:  1.3,
	catalog.RelationStudent: 1.3,
	catalog.RelationRival:   -0.8,
	catalog.RelationEnemy:   -1.2,
}

const defaultRelationMultiplier = 0.5

// RelationMultiplier returns the propagation weight for a relationship type.
func RelationMultiplier(relType string) float64 {
	if m, ok := relationMultipliers[relType]; ok {
		return m
	}
	return defaultRelationMultiplier
}

// Tracker applies the story update routines for one action against a
// State. It reads characters from the ledger and NPC data from the finder.
type Tracker struct {
	state      *State
	characters *ledger.Ledger
	finder     catalog.Finder
	logger     *slog.Logger

	roller      dice.Roller
	unrestP     float64
	discontentP float64
	now         func() time.Time
}

// NewTracker creates a tracker over the given state.
func NewTracker(st *State, characters *ledger.Ledger, finder catalog.Finder, logger *slog.Logger) *Tracker {
	return &Tracker{
		state:       st,
		characters:  characters,
		finder:      finder,
		logger:      logger,
		roller:      dice.NewRandom(),
		unrestP:     DefaultUnrestProbability,
		discontentP: DefaultDiscontentProbability,
		now:         time.Now,
	}
}

// WithRoller sets the random source used by world events.
// Returns the Tracker for method chaining
func (t *Tracker) WithRoller(r dice.Roller) *Tracker {
	t.roller = r
	return t
}

// WithProbabilities sets the per-turn world event probabilities.
// Returns the Tracker for method chaining
func (t *Tracker) WithProbabilities(unrest, discontent float64) *Tracker {
	t.unrestP = unrest
	t.discontentP = discontent
	return t
}

// WithClock sets the time source for interaction timestamps.
// Returns the Tracker for method chaining
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	if now != nil {
		t.now = now
	}
	return t
}

// Result reports what one Apply call created.
type Result struct {
	NewArcs      []Arc        `json:"new_arcs,omitempty"`
	NewConflicts []Conflict   `json:"new_conflicts,omitempty"`
	NewEvents    []WorldEvent `json:"new_events,omitempty"`
}

// Apply runs the update routines in their fixed order: themes, relationship
// propagation, arcs, conflicts, world events. history must already include
// action.
func (t *Tracker) Apply(action ledger.Action, history []ledger.Action, turn int) Result {
	t.UpdateThemes(action)
	t.PropagateRelationships(action, turn)
	var res Result
	res.NewArcs = t.CheckArcTriggers(action, history)
	res.NewConflicts = t.UpdateConflicts(action)
	res.NewEvents = t.GenerateWorldEvents(turn)
	return res
}

func (t *Tracker) roleOf(id string) string {
	if t.finder != nil {
		if def, ok := t.finder.FindByID(id); ok {
			return def.Role
		}
	}
	if c, ok := t.characters.ByID(id); ok {
		return c.Role
	}
	return ""
}

func (t *Tracker) nameOf(id string) string {
	if t.finder != nil {
		if def, ok := t.finder.FindByID(id); ok && def.Name != "" {
			return def.Name
		}
	}
	if c, ok := t.characters.ByID(id); ok {
		return c.Name
	}
	return "unknown"
}

// UpdateThemes shifts the thematic accumulators for the action's choice
// type and the acted-upon NPC's role.
func (t *Tracker) UpdateThemes(action ledger.Action) {
	th := &t.state.Themes
	i := math.Abs(float64(action.PopularityChange)) / 10

	switch action.Choice.Type {
	case catalog.ChoiceHarsh:
		th.Justice -= i
		th.Military += 0.5 * i
	case catalog.ChoiceMerciful:
		th.Justice += i
		th.Diplomacy += 0.3 * i
	case catalog.ChoiceDiplomatic:
		th.Diplomacy += i
	case catalog.ChoiceThreatening:
		th.Military += i
		th.Diplomacy -= 0.5 * i
	case catalog.ChoiceGenerous:
		th.Tradition += 0.5 * i
		th.Economy -= 0.3 * i
	case catalog.ChoiceProtective:
		th.Military += 0.3 * i
		th.Diplomacy += 0.2 * i
	}

	switch t.roleOf(action.NPC) {
	case catalog.RoleMerchant, catalog.RoleBurgher:
		th.Economy += 0.5 * i
	case catalog.RoleClergy:
		th.Tradition += 0.4 * i
	}
}

// relationshipBetween looks in both characters' definitions for an entry
// naming the other.
func (t *Tracker) relationshipBetween(a, b string) (catalog.Relationship, bool) {
	if t.finder == nil {
		return catalog.Relationship{}, false
	}
	if def, ok := t.finder.FindByID(a); ok {
		if rel, ok := def.RelationshipWith(b); ok {
			return rel, true
		}
	}
	if def, ok := t.finder.FindByID(b); ok {
		if rel, ok := def.RelationshipWith(a); ok {
			return rel, true
		}
	}
	return catalog.Relationship{}, false
}

// PropagateRelationships shifts the affinity of every tracked character
// related to the acted-upon NPC.
func (t *Tracker) PropagateRelationships(action ledger.Action, turn int) {
	targetName := t.nameOf(action.NPC)

	t.characters.Each(func(observer *ledger.Character) {
		if observer.ID == action.NPC {
			return
		}
		rel, ok := t.relationshipBetween(observer.ID, action.NPC)
		if !ok {
			return
		}

		change := float64(action.PopularityChange) * RelationMultiplier(rel.Type)
		observer.Affinity = ledger.ClampAffinity(observer.Affinity + change)

		if math.Abs(change) > reactionRecordThreshold {
			relType := rel.Type
			if relType == "" {
				relType = "general"
			}
			observer.Interactions = append(observer.Interactions, ledger.Interaction{
				Turn:                turn,
				Choice:              fmt.Sprintf("Reacted to treatment of %s", targetName),
				AffinityChange:      change,
				RelationshipContext: relType,
				Timestamp:           t.now(),
			})
		}
	})
}

// CheckArcTriggers creates any arc whose trigger threshold history now
// meets. Each arc type is created at most once.
func (t *Tracker) CheckArcTriggers(action ledger.Action, history []ledger.Action) []Arc {
	var harsh, diplomatic, devout int
	for _, a := range history {
		switch a.Choice.Type {
		case catalog.ChoiceHarsh, catalog.ChoiceThreatening:
			harsh++
		case catalog.ChoiceDiplomatic, catalog.ChoiceMerciful:
			diplomatic++
		case catalog.ChoiceGenerous:
			if t.roleOf(a.NPC) == catalog.RoleClergy {
				devout++
			}
		}
	}

	var created []Arc
	add := func(arcType, description string, characters []string) {
		arc := Arc{
			Type:        arcType,
			TriggeredBy: action,
			Description: description,
			Characters:  characters,
		}
		t.state.Arcs = append(t.state.Arcs, arc)
		created = append(created, arc)
		if t.logger != nil {
			t.logger.Info("Story arc triggered",
				"arc", arcType,
				"npc_id", action.NPC,
				"characters", len(characters))
		}
	}

	if harsh >= rebellionThreshold && !t.state.HasArc(ArcRebellion) {
		add(ArcRebellion, "Growing unrest among the people", t.DiscontentedCharacters())
	}
	if diplomatic >= allianceThreshold && !t.state.HasArc(ArcAlliance) {
		add(ArcAlliance, "Building strong alliances", t.LoyalCharacters())
	}
	if devout >= divineFavorThreshold && !t.state.HasArc(ArcDivineFavor) {
		add(ArcDivineFavor, "The gods smile upon your reign", t.ReligiousCharacters())
	}
	return created
}

// DiscontentedCharacters returns living characters with affinity below 30.
func (t *Tracker) DiscontentedCharacters() []string {
	return t.characters.IDs(func(c *ledger.Character) bool {
		return c.IsAlive() && c.Affinity < unhappyAffinity
	})
}

// LoyalCharacters returns living characters with affinity above 70.
func (t *Tracker) LoyalCharacters() []string {
	return t.characters.IDs(func(c *ledger.Character) bool {
		return c.IsAlive() && c.Affinity > loyalAffinity
	})
}

// ReligiousCharacters returns living Clergy.
func (t *Tracker) ReligiousCharacters() []string {
	return t.characters.IDs(func(c *ledger.Character) bool {
		return c.IsAlive() && c.Role == catalog.RoleClergy
	})
}

// UpdateConflicts escalates or relaxes conflicts involving the acted-upon
// NPC, prunes spent ones, and opens a new one after a sharp loss.
func (t *Tracker) UpdateConflicts(action ledger.Action) []Conflict {
	kept := t.state.Conflicts[:0]
	for _, c := range t.state.Conflicts {
		if c.Involves(action.NPC) {
			c.LastAction = action
			if action.Choice.Type == catalog.ChoiceHarsh {
				c.Intensity += conflictHarshEscalation
			} else {
				c.Intensity += conflictOtherDeescalates
			}
			if c.Intensity <= 0 {
				continue
			}
		}
		kept = append(kept, c)
	}
	t.state.Conflicts = kept

	if action.PopularityChange > conflictCreateThreshold {
		return nil
	}
	for _, c := range t.state.Conflicts {
		if c.Involves(action.NPC) {
			return nil
		}
	}

	intensity := action.PopularityChange
	if intensity < 0 {
		intensity = -intensity
	}
	c := Conflict{
		Type:               ConflictDiscontent,
		InvolvedCharacters: []string{action.NPC},
		Intensity:          intensity,
		LastAction:         action,
		Description:        fmt.Sprintf("Growing tension with %s", t.nameOf(action.NPC)),
	}
	t.state.Conflicts = append(t.state.Conflicts, c)
	return []Conflict{c}
}

// GenerateWorldEvents rolls for kingdom-wide events. The dice are only
// rolled when an event's precondition holds.
func (t *Tracker) GenerateWorldEvents(turn int) []WorldEvent {
	dead := t.characters.Count(func(c *ledger.Character) bool { return c.Status == ledger.StatusDead })
	unhappy := t.characters.Count(func(c *ledger.Character) bool { return c.Affinity < unhappyAffinity })

	var fired []WorldEvent
	fire := func(ev WorldEvent) {
		if t.state.HasEvent(ev.Type, ev.Turn) {
			return
		}
		t.state.Events = append(t.state.Events, ev)
		fired = append(fired, ev)
		if t.logger != nil {
			t.logger.Info("World event",
				"event", ev.Type,
				"turn", ev.Turn,
				"popularity_modifier", ev.Effects.PopularityModifier)
		}
	}

	if dead >= unrestDeadThreshold && dice.Chance(t.roller, t.unrestP) {
		fire(WorldEvent{
			Type:        EventUnrest,
			Description: "The people grow fearful of their king's harsh rule",
			Turn:        turn,
			Effects:     Effects{PopularityModifier: -10},
		})
	}
	if unhappy >= discontentUnhappyCount && dice.Chance(t.roller, t.discontentP) {
		fire(WorldEvent{
			Type:        EventDiscontent,
			Description: "Whispers of rebellion spread through the kingdom",
			Turn:        turn,
			Effects:     Effects{PopularityModifier: -5},
		})
	}
	return fired
}
