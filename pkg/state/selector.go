package state

import (
	"log/slog"
	"math"
	"slices"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/story"
)

// Scoring weights for NPC selection.
const (
	preferredTurnBonus     = 20
	relatedRecentBonus     = 8
	arcMemberBonus         = 12
	arcRoleBonus           = 8
	divineFavorClergyBonus = 10
	varietyBonus           = 5
	recentWindow           = 3
)

// Source is a catalog the selector can enumerate.
type Source interface {
	catalog.Finder
	All() []catalog.NPCDefinition
}

// Selector picks the next NPC to present.
type Selector struct {
	gs     *GameState
	source Source
	finder catalog.Finder
	logger *slog.Logger
}

func NewSelector(gs *GameState, source Source, logger *slog.Logger) *Selector {
	return &Selector{
		gs:     gs,
		source: source,
		finder: directory{catalog: source, characters: gs.Characters},
		logger: logger,
	}
}

// Eligible returns, in catalog order, the NPCs that may appear on turn.
func (s *Selector) Eligible(turn int) []catalog.NPCDefinition {
	var out []catalog.NPCDefinition
	for _, npc := range s.source.All() {
		if s.gs.IsCompleted(npc.ID) {
			continue
		}
		if !s.prerequisitesMet(npc) {
			continue
		}
		if !npc.InTurnWindow(turn) {
			continue
		}
		if c, ok := s.gs.Characters.ByID(npc.ID); ok && !c.IsAlive() {
			continue
		}
		out = append(out, npc)
	}
	return out
}

func (s *Selector) prerequisitesMet(npc catalog.NPCDefinition) bool {
	for _, req := range npc.Prerequisites {
		if !s.gs.HasActedOn(req) {
			return false
		}
	}
	return true
}

// Score rates how well the NPC fits the current story on the given turn.
func (s *Selector) Score(npc catalog.NPCDefinition, turn int) int {
	score := 0
	if npc.PreferredTurn > 0 && npc.PreferredTurn == turn {
		score += preferredTurnBonus
	}
	score += s.storyRelevance(npc)
	score += s.relationshipRelevance(npc)
	score += s.arcRelevance(npc)
	score += s.varietyBonus(npc)
	return score
}

func (s *Selector) storyRelevance(npc catalog.NPCDefinition) int {
	th := s.gs.Story.Themes
	switch {
	case npc.Role == catalog.RoleMilitary && math.Abs(th.Military) > 10:
		return 15
	case npc.Role == catalog.RoleNoble && th.Diplomacy > 5:
		return 10
	case npc.Role == catalog.RoleBurgher && th.Economy > 5:
		return 12
	case npc.Role == catalog.RoleClergy && th.Tradition > 5:
		return 10
	case npc.Role == catalog.RolePeasant && math.Abs(th.Justice) > 8:
		return 12
	}
	return 0
}

func (s *Selector) relationshipRelevance(npc catalog.NPCDefinition) int {
	score := 0
	for _, a := range s.gs.RecentActions(recentWindow) {
		if npc.IsAffectedBy(a.NPC) {
			score += relatedRecentBonus
		}
	}
	return score
}

func (s *Selector) arcRelevance(npc catalog.NPCDefinition) int {
	score := 0
	for _, arc := range s.gs.Story.Arcs {
		if slices.Contains(arc.Characters, npc.ID) {
			score += arcMemberBonus
		}
		switch arc.Type {
		case story.ArcRebellion:
			if npc.Role == catalog.RoleMilitary || npc.Role == catalog.RoleNoble {
				score += arcRoleBonus
			}
		case story.ArcAlliance:
			if npc.Role == catalog.RoleNoble || npc.Role == catalog.RoleBurgher {
				score += arcRoleBonus
			}
		case story.ArcDivineFavor:
			if npc.Role == catalog.RoleClergy {
				score += divineFavorClergyBonus
			}
		}
	}
	return score
}

func (s *Selector) varietyBonus(npc catalog.NPCDefinition) int {
	for _, a := range s.gs.RecentActions(recentWindow) {
		def, ok := s.finder.FindByID(a.NPC)
		if !ok || def.Role == "" {
			continue
		}
		if def.Role == npc.Role {
			return -varietyBonus
		}
	}
	return varietyBonus
}

// SelectNext returns the best-scoring eligible NPC for turn and starts
// tracking it in the ledger. It returns false when nobody is left, which
// ends the reign.
func (s *Selector) SelectNext(turn int) (catalog.NPCDefinition, bool) {
	candidates := s.Eligible(turn)
	if len(candidates) == 0 {
		return catalog.NPCDefinition{}, false
	}

	best := candidates[0]
	bestScore := s.Score(best, turn)
	for _, npc := range candidates[1:] {
		if sc := s.Score(npc, turn); sc > bestScore {
			best, bestScore = npc, sc
		}
	}

	s.gs.Characters.EnsureTracked(best.ID, s.finder)
	if s.logger != nil {
		s.logger.Debug("Selected next NPC",
			"npc_id", best.ID,
			"turn", turn,
			"score", bestScore,
			"candidates", len(candidates))
	}
	return best, true
}
