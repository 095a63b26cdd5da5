package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/dice"
	"github.com/jwebster45206/royal-court/pkg/generation"
	"github.com/jwebster45206/royal-court/pkg/ledger"
)

// Engine drives one reign: it presents NPCs, applies choices and owns the
// injected dependencies every turn needs. It holds no locks; callers
// serialize access to a game.
type Engine struct {
	gs       *GameState
	source   Source
	logger   *slog.Logger
	roller   dice.Roller
	now      func() time.Time
	idSuffix func() string
}

// NewEngine wraps gs. A nil gs starts a new reign with default options.
func NewEngine(gs *GameState, source Source, logger *slog.Logger) *Engine {
	if gs == nil {
		gs = NewGameState(DefaultOptions())
	}
	return &Engine{
		gs:       gs,
		source:   source,
		logger:   logger,
		roller:   dice.NewRandom(),
		now:      time.Now,
		idSuffix: ledger.RandomSuffix,
	}
}

// WithRoller sets the random source for deaths and world events.
// Returns the Engine for method chaining
func (e *Engine) WithRoller(r dice.Roller) *Engine {
	e.roller = r
	return e
}

// WithClock sets the time source.
// Returns the Engine for method chaining
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// WithIDSuffix sets the suffix generator for created characters.
// Returns the Engine for method chaining
func (e *Engine) WithIDSuffix(fn func() string) *Engine {
	if fn != nil {
		e.idSuffix = fn
	}
	return e
}

// State returns the engine's game state.
func (e *Engine) State() *GameState {
	return e.gs
}

func (e *Engine) processor() *Processor {
	return NewProcessor(e.gs, e.source, e.logger).
		WithRoller(e.roller).
		WithClock(e.now).
		WithIDSuffix(e.idSuffix)
}

func (e *Engine) interpreter() *ActionInterpreter {
	return NewActionInterpreter(e.gs, e.logger).
		WithIDSuffix(e.idSuffix).
		WithClock(e.now)
}

// PresentEncounter selects the next NPC, optionally enriches it through gen,
// runs its immediate character actions and stores it as the current
// encounter. If an encounter is already pending it is returned unchanged.
// It returns ErrGameOver when the reign cannot continue or nobody is left.
func (e *Engine) PresentEncounter(ctx context.Context, gen generation.Generator) (*Encounter, error) {
	if e.gs.Encounter != nil {
		return e.gs.Encounter, nil
	}
	if !e.gs.CanContinue() {
		return nil, ErrGameOver
	}

	npc, ok := NewSelector(e.gs, e.source, e.logger).SelectNext(e.gs.Turn)
	if !ok {
		return nil, fmt.Errorf("%w: no eligible npc remains", ErrGameOver)
	}

	outcome := generation.Enrich(ctx, gen, generation.Request{
		NPC:             npc,
		RelevantActions: generation.RelevantActions(npc, e.gs.ActionHistory),
		Popularity:      e.gs.Popularity,
		Characters:      e.gs.Characters.All(),
	}, e.logger)

	enc := &Encounter{
		NPC:       outcome.NPC,
		Turn:      e.gs.Turn,
		Generated: outcome.Generated,
	}
	if outcome.Err != nil {
		enc.GenerationError = outcome.Err.Error()
	}
	enc.ImmediateActions = e.interpreter().Apply(outcome.NPC.CharacterActions, catalog.TriggerImmediate)

	e.gs.Encounter = enc
	e.gs.UpdatedAt = e.now()
	return enc, nil
}

// Choose applies the player's choice to the current encounter.
func (e *Engine) Choose(choiceIndex int) (*ActionResult, error) {
	enc := e.gs.Encounter
	if enc == nil {
		return nil, ErrNoEncounter
	}
	result, err := e.processor().ApplyChoice(enc.NPC, choiceIndex)
	if err != nil {
		return nil, err
	}
	e.gs.Encounter = nil
	return result, nil
}

// PreviewChoice reports the popularity change a choice on the current
// encounter would cause, without changing anything.
func (e *Engine) PreviewChoice(choiceIndex int) (Preview, error) {
	enc := e.gs.Encounter
	if enc == nil {
		return Preview{}, ErrNoEncounter
	}
	return e.processor().Preview(enc.NPC, choiceIndex)
}

// Reset starts the reign over, keeping the game id and options.
func (e *Engine) Reset() {
	id, opts := e.gs.ID, e.gs.Options
	opts.MaxTurns = e.gs.MaxTurns
	fresh := NewGameState(opts)
	fresh.ID = id
	fresh.CreatedAt = e.now()
	fresh.UpdatedAt = fresh.CreatedAt
	*e.gs = *fresh
}
