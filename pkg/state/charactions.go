package state

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/ledger"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ActionDeath  = "death"
	ActionCreate = "create"
	ActionModify = "modify"
	ActionExile  = "exile"

	externalModification = "External modification"
)

// ActionSummary reports the outcome of one character action for display.
type ActionSummary struct {
	Type           string `json:"type"`
	CharacterID    string `json:"character_id,omitempty"`
	CharacterName  string `json:"character_name,omitempty"`
	CharacterRole  string `json:"character_role,omitempty"`
	AffinityChange int    `json:"affinity_change,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Applied        bool   `json:"applied"`
	Note           string `json:"note,omitempty"` // why an action was not applied
}

// ActionInterpreter applies character actions from generated content to the
// ledger. Unresolved targets are reported and skipped, never fatal.
type ActionInterpreter struct {
	gs       *GameState
	logger   *slog.Logger
	idSuffix func() string
	now      func() time.Time
	titler   cases.Caser
}

// NewActionInterpreter creates an interpreter for the given game state.
func NewActionInterpreter(gs *GameState, logger *slog.Logger) *ActionInterpreter {
	return &ActionInterpreter{
		gs:       gs,
		logger:   logger,
		idSuffix: ledger.RandomSuffix,
		now:      time.Now,
		titler:   cases.Title(language.English),
	}
}

// WithIDSuffix sets the random suffix generator for created characters.
// Returns the ActionInterpreter for method chaining
func (ai *ActionInterpreter) WithIDSuffix(fn func() string) *ActionInterpreter {
	if fn != nil {
		ai.idSuffix = fn
	}
	return ai
}

// WithClock sets the time source for interaction timestamps.
// Returns the ActionInterpreter for method chaining
func (ai *ActionInterpreter) WithClock(now func() time.Time) *ActionInterpreter {
	if now != nil {
		ai.now = now
	}
	return ai
}

// Fires reports whether the action is gated on chosenIndex or is immediate.
func Fires(action catalog.CharacterAction, chosenIndex int) bool {
	return action.TriggerChoice == catalog.TriggerImmediate || action.TriggerChoice == chosenIndex
}

// Apply runs every action that fires for chosenIndex, in order. Pass
// catalog.TriggerImmediate to run only the immediate actions.
func (ai *ActionInterpreter) Apply(actions []catalog.CharacterAction, chosenIndex int) []ActionSummary {
	summaries := make([]ActionSummary, 0, len(actions))
	for _, a := range actions {
		if !Fires(a, chosenIndex) {
			continue
		}
		summaries = append(summaries, ai.applyOne(a))
	}
	return summaries
}

func (ai *ActionInterpreter) applyOne(a catalog.CharacterAction) ActionSummary {
	switch strings.ToLower(a.Type) {
	case ActionDeath:
		return ai.death(a)
	case ActionCreate:
		return ai.create(a)
	case ActionModify:
		return ai.modify(a)
	case ActionExile:
		return ai.exile(a)
	}
	return ai.skip(ActionSummary{Type: a.Type, CharacterID: a.CharacterID, Reason: a.Reason},
		fmt.Sprintf("unknown action type %q", a.Type))
}

func (ai *ActionInterpreter) skip(s ActionSummary, note string) ActionSummary {
	s.Applied = false
	s.Note = note
	if ai.logger != nil {
		ai.logger.Warn("Character action skipped",
			"type", s.Type,
			"character_id", s.CharacterID,
			"character_name", s.CharacterName,
			"note", note)
	}
	return s
}

func (ai *ActionInterpreter) death(a catalog.CharacterAction) ActionSummary {
	sum := ActionSummary{Type: ActionDeath, CharacterID: a.CharacterID, CharacterName: a.CharacterName, Reason: a.Reason}

	target, ok := ai.gs.Characters.ByID(a.CharacterID)
	if !ok && a.CharacterName != "" {
		target, ok = ai.gs.Characters.FindByName(a.CharacterName)
	}
	if !ok {
		return ai.skip(sum, "character not found")
	}

	sum.CharacterID = target.ID
	sum.CharacterName = target.Name
	sum.CharacterRole = target.Role
	if !ai.gs.Characters.Kill(target.ID, a.Reason) {
		return ai.skip(sum, fmt.Sprintf("character is already %s", target.Status))
	}
	sum.Applied = true
	if ai.logger != nil {
		ai.logger.Info("Character died",
			"character_id", target.ID,
			"reason", a.Reason)
	}
	return sum
}

func (ai *ActionInterpreter) create(a catalog.CharacterAction) ActionSummary {
	name := strings.TrimSpace(a.CharacterName)
	if name == "" {
		name = ledger.UnknownName
	}
	role := strings.TrimSpace(a.CharacterRole)
	if role == "" {
		role = ledger.GeneratedRole
	}
	image := a.CharacterImage
	if image == "" {
		image = ledger.DefaultImage
	}

	c, err := ai.gs.Characters.AddGenerated(ledger.Character{
		ID:             ai.gs.Characters.MintID(ai.idSuffix),
		Name:           name,
		Image:          image,
		Role:           ai.titler.String(role),
		Affinity:       ledger.DefaultAffinity,
		Status:         ledger.StatusAlive,
		Encountered:    true,
		CreationReason: a.Reason,
	})
	sum := ActionSummary{Type: ActionCreate, CharacterName: name, Reason: a.Reason}
	if err != nil {
		return ai.skip(sum, err.Error())
	}

	sum.CharacterID = c.ID
	sum.CharacterRole = c.Role
	sum.Applied = true
	if ai.logger != nil {
		ai.logger.Info("Character created",
			"character_id", c.ID,
			"name", c.Name,
			"role", c.Role)
	}
	return sum
}

func (ai *ActionInterpreter) modify(a catalog.CharacterAction) ActionSummary {
	sum := ActionSummary{Type: ActionModify, CharacterID: a.CharacterID, Reason: a.Reason, AffinityChange: a.AffinityChange}

	c, ok := ai.gs.Characters.ByID(a.CharacterID)
	if !ok {
		return ai.skip(sum, "character not found")
	}

	if role := strings.TrimSpace(a.NewRole); role != "" {
		c.Role = ai.titler.String(role)
	}
	if a.AffinityChange != 0 {
		c.Affinity = ledger.ClampAffinity(c.Affinity + float64(a.AffinityChange))
	}
	c.Interactions = append(c.Interactions, ledger.Interaction{
		Turn:           ai.gs.Turn,
		Action:         externalModification,
		Change:         a.Reason,
		AffinityChange: float64(a.AffinityChange),
		Timestamp:      ai.now(),
	})

	sum.CharacterName = c.Name
	sum.CharacterRole = c.Role
	sum.Applied = true
	return sum
}

func (ai *ActionInterpreter) exile(a catalog.CharacterAction) ActionSummary {
	sum := ActionSummary{Type: ActionExile, CharacterID: a.CharacterID, Reason: a.Reason}

	c, ok := ai.gs.Characters.ByID(a.CharacterID)
	if !ok {
		return ai.skip(sum, "character not found")
	}
	sum.CharacterName = c.Name
	sum.CharacterRole = c.Role
	if !ai.gs.Characters.Exile(c.ID, a.Reason) {
		return ai.skip(sum, fmt.Sprintf("character is already %s", c.Status))
	}
	sum.Applied = true
	if ai.logger != nil {
		ai.logger.Info("Character exiled",
			"character_id", c.ID,
			"reason", a.Reason)
	}
	return sum
}
