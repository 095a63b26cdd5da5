package state

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/dice"
	"github.com/jwebster45206/royal-court/pkg/ledger"
	"github.com/jwebster45206/royal-court/pkg/story"
)

const (
	MaxPopularityChange = 20

	consistencyModifier   = 2
	unpopularThreshold    = 30
	unpopularHarshPenalty = 5
)

// affinityBonus is added to popularityChange*2 when the acted-upon NPC's
// affinity is updated.
var affinityBonus = map[string]float64{
	catalog.ChoiceMerciful:    10,
	catalog.ChoiceHarsh:       -15,
	catalog.ChoiceThreatening: -20,
	catalog.ChoiceDiplomatic:  5,
	catalog.ChoiceProtective:  8,
	catalog.ChoiceDismissive:  -12,
}

// AffinityChange returns the affinity shift felt by the NPC a choice was
// made about.
func AffinityChange(popularityChange int, choiceType string) float64 {
	return float64(popularityChange)*2 + affinityBonus[choiceType]
}

// ActionResult describes everything one choice changed.
type ActionResult struct {
	Action           ledger.Action   `json:"action"`
	Popularity       int             `json:"popularity"`
	Turn             int             `json:"turn"` // the turn after the choice
	AffinityChange   float64         `json:"affinity_change"`
	Affinity         float64         `json:"affinity"`
	CharacterDied    bool            `json:"character_died"`
	Story            story.Result    `json:"story"`
	CharacterActions []ActionSummary `json:"character_actions,omitempty"`
	Consequence      string          `json:"consequence"`
	NarratorResponse string          `json:"narrator_response,omitempty"`
	CanContinue      bool            `json:"can_continue"`
}

// Preview is the outcome of a choice computed without mutating state.
type Preview struct {
	PopularityChange int    `json:"popularity_change"`
	Consequence      string `json:"consequence"`
}

// Processor is the only writer of the ledger and story state. It applies a
// player's choice through every downstream system in a fixed order.
type Processor struct {
	gs       *GameState
	finder   catalog.Finder
	logger   *slog.Logger
	roller   dice.Roller
	now      func() time.Time
	idSuffix func() string
}

// NewProcessor creates a processor. The finder should resolve static NPCs;
// generated characters are resolved through the game's ledger.
func NewProcessor(gs *GameState, finder catalog.Finder, logger *slog.Logger) *Processor {
	return &Processor{
		gs:       gs,
		finder:   directory{catalog: finder, characters: gs.Characters},
		logger:   logger,
		roller:   dice.NewRandom(),
		now:      time.Now,
		idSuffix: ledger.RandomSuffix,
	}
}

// WithRoller sets the random source for deaths and world events.
// Returns the Processor for method chaining
func (p *Processor) WithRoller(r dice.Roller) *Processor {
	p.roller = r
	return p
}

// WithClock sets the time source for action timestamps.
// Returns the Processor for method chaining
func (p *Processor) WithClock(now func() time.Time) *Processor {
	if now != nil {
		p.now = now
	}
	return p
}

// WithIDSuffix sets the suffix generator for created characters.
// Returns the Processor for method chaining
func (p *Processor) WithIDSuffix(fn func() string) *Processor {
	if fn != nil {
		p.idSuffix = fn
	}
	return p
}

// ContextModifiedChange applies the consistency and unpopularity modifiers
// to a choice's base popularity change, clamped to [-20, 20].
func (p *Processor) ContextModifiedChange(npc catalog.NPCDefinition, choice catalog.Choice) int {
	modifier := 0
	for _, past := range p.gs.ActionHistory {
		if !npc.IsAffectedBy(past.NPC) {
			continue
		}
		if past.Choice.Type != choice.Type {
			continue
		}
		if choice.Type == catalog.ChoiceHarsh {
			modifier -= consistencyModifier
		} else {
			modifier += consistencyModifier
		}
	}
	if p.gs.Popularity < unpopularThreshold && choice.Type == catalog.ChoiceHarsh {
		modifier -= unpopularHarshPenalty
	}
	return max(-MaxPopularityChange, min(MaxPopularityChange, choice.PopularityChange+modifier))
}

// Preview returns what choosing choiceIndex would do to popularity.
func (p *Processor) Preview(npc catalog.NPCDefinition, choiceIndex int) (Preview, error) {
	if choiceIndex < 0 || choiceIndex >= len(npc.Choices) {
		return Preview{}, fmt.Errorf("%w: %d", ErrInvalidChoice, choiceIndex)
	}
	choice := npc.Choices[choiceIndex]
	return Preview{
		PopularityChange: p.ContextModifiedChange(npc, choice),
		Consequence:      choice.Consequence,
	}, nil
}

// ApplyChoice records the player's decision about npc and propagates it.
func (p *Processor) ApplyChoice(npc catalog.NPCDefinition, choiceIndex int) (*ActionResult, error) {
	if choiceIndex < 0 || choiceIndex >= len(npc.Choices) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChoice, choiceIndex)
	}
	gs := p.gs
	choice := npc.Choices[choiceIndex]
	turn := gs.Turn

	change := p.ContextModifiedChange(npc, choice)
	before := gs.Popularity
	after := ClampPopularity(before + change)

	action := ledger.Action{
		NPC:              npc.ID,
		Choice:           choice,
		ChoiceIndex:      choiceIndex,
		PopularityChange: change,
		PopularityBefore: before,
		PopularityAfter:  after,
		Turn:             turn,
		Timestamp:        p.now(),
	}
	gs.ActionHistory = append(gs.ActionHistory, action)
	gs.Popularity = after

	gs.Characters.EnsureTracked(npc.ID, p.finder)

	storyResult := story.NewTracker(gs.Story, gs.Characters, p.finder, p.logger).
		WithRoller(p.roller).
		WithProbabilities(gs.Options.UnrestProbability, gs.Options.DiscontentProbability).
		WithClock(p.now).
		Apply(action, gs.ActionHistory, turn)

	delta := AffinityChange(change, choice.Type)
	affinity, err := gs.Characters.ApplyAffinityDelta(npc.ID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to update affinity: %w", err)
	}
	if err := gs.Characters.RecordInteraction(npc.ID, ledger.Interaction{
		Turn:           turn,
		Choice:         choice.Text,
		AffinityChange: delta,
		Timestamp:      p.now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record interaction: %w", err)
	}

	died := gs.Characters.MaybeKill(npc.ID, choice.Type, gs.Options.DeathProbability, p.roller)
	if died {
		if c, ok := gs.Characters.ByID(npc.ID); ok {
			c.DeathReason = fmt.Sprintf("Did not survive the crown's %s judgement", choice.Type)
		}
		if p.logger != nil {
			p.logger.Info("Character died after harsh treatment",
				"npc_id", npc.ID,
				"turn", turn,
				"choice_type", choice.Type)
		}
	}

	if !gs.IsCompleted(npc.ID) {
		gs.Completed = append(gs.Completed, npc.ID)
	}
	gs.Turn++
	gs.UpdatedAt = p.now()

	var chosenActions []catalog.CharacterAction
	for _, a := range npc.CharacterActions {
		if a.TriggerChoice == choiceIndex {
			chosenActions = append(chosenActions, a)
		}
	}
	summaries := NewActionInterpreter(gs, p.logger).
		WithIDSuffix(p.idSuffix).
		WithClock(p.now).
		Apply(chosenActions, choiceIndex)

	return &ActionResult{
		Action:           action,
		Popularity:       gs.Popularity,
		Turn:             gs.Turn,
		AffinityChange:   delta,
		Affinity:         affinity,
		CharacterDied:    died,
		Story:            storyResult,
		CharacterActions: summaries,
		Consequence:      choice.Consequence,
		NarratorResponse: choice.NarratorResponse,
		CanContinue:      gs.CanContinue(),
	}, nil
}
