package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/state"
)

// CatalogValidator collects every problem in a catalog file instead of
// stopping at the first one.
type CatalogValidator struct {
	errors []string
}

func (v *CatalogValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("catalog file must have .json extension: %s", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	if err := v.validateBytes(data); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return nil
}

func (v *CatalogValidator) validateBytes(data []byte) error {
	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file contains invalid JSON")
	}

	var raw catalog.Catalog
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("failed strict JSON unmarshaling: %w", err)
	}

	// Parse rejects missing and duplicate ids.
	c, err := catalog.Parse(data)
	if err != nil {
		return err
	}

	v.validateCatalog(c)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *CatalogValidator) validateCatalog(c *catalog.Catalog) {
	if c.Len() == 0 {
		v.addError("catalog has no npcs")
		return
	}
	for _, npc := range c.All() {
		v.validateNPC(c, npc)
	}
	v.validatePrerequisiteCycles(c)
}

func (v *CatalogValidator) validateNPC(c *catalog.Catalog, npc catalog.NPCDefinition) {
	v.validateIDFormat("npc id", npc.ID)

	if strings.TrimSpace(npc.Name) == "" {
		v.addError(fmt.Sprintf("npc '%s' has no name", npc.ID))
	}
	if strings.TrimSpace(npc.Role) == "" {
		v.addError(fmt.Sprintf("npc '%s' has no role", npc.ID))
	}
	if strings.TrimSpace(npc.Dialogue) == "" {
		v.addError(fmt.Sprintf("npc '%s' has no dialogue", npc.ID))
	}

	if len(npc.Choices) == 0 {
		v.addError(fmt.Sprintf("npc '%s' has no choices", npc.ID))
	}
	for i, choice := range npc.Choices {
		if strings.TrimSpace(choice.Text) == "" {
			v.addError(fmt.Sprintf("npc '%s' choice %d has no text", npc.ID, i))
		}
		if choice.PopularityChange < -state.MaxPopularityChange || choice.PopularityChange > state.MaxPopularityChange {
			v.addError(fmt.Sprintf("npc '%s' choice %d popularity_change %d is outside ±%d and will be clamped",
				npc.ID, i, choice.PopularityChange, state.MaxPopularityChange))
		}
	}

	if npc.MinTurn < 0 || npc.MaxTurn < 0 || npc.PreferredTurn < 0 {
		v.addError(fmt.Sprintf("npc '%s' has a negative turn bound", npc.ID))
	}
	if npc.MinTurn > 0 && npc.MaxTurn > 0 && npc.MinTurn > npc.MaxTurn {
		v.addError(fmt.Sprintf("npc '%s' min_turn %d is after max_turn %d", npc.ID, npc.MinTurn, npc.MaxTurn))
	}
	if npc.PreferredTurn > 0 && !npc.InTurnWindow(npc.PreferredTurn) {
		v.addError(fmt.Sprintf("npc '%s' preferred_turn %d is outside its turn window", npc.ID, npc.PreferredTurn))
	}

	for _, req := range npc.Prerequisites {
		if req == npc.ID {
			v.addError(fmt.Sprintf("npc '%s' lists itself as a prerequisite", npc.ID))
			continue
		}
		if _, ok := c.FindByID(req); !ok {
			v.addError(fmt.Sprintf("npc '%s' prerequisite '%s' does not exist", npc.ID, req))
		}
	}

	for i, rel := range npc.Relationships {
		v.validateRelationship(c, npc.ID, i, rel)
	}
	for i, action := range npc.CharacterActions {
		v.validateCharacterAction(npc, i, action)
	}
}

var validRelationTypes = []string{
	catalog.RelationFamily,
	catalog.RelationFriend,
	catalog.RelationAlly,
	catalog.RelationRival,
	catalog.RelationEnemy,
	catalog.RelationMentor,
	catalog.RelationStudent,
}

func (v *CatalogValidator) validateRelationship(c *catalog.Catalog, npcID string, i int, rel catalog.Relationship) {
	if len(rel.AffectedBy) == 0 && rel.CharacterID == "" {
		v.addError(fmt.Sprintf("npc '%s' relationship %d names no characters", npcID, i))
	}
	for _, id := range rel.AffectedBy {
		if _, ok := c.FindByID(id); !ok {
			v.addError(fmt.Sprintf("npc '%s' relationship %d affected_by '%s' does not exist", npcID, i, id))
		}
	}
	if rel.CharacterID != "" {
		if _, ok := c.FindByID(rel.CharacterID); !ok {
			v.addError(fmt.Sprintf("npc '%s' relationship %d character_id '%s' does not exist", npcID, i, rel.CharacterID))
		}
	}
	if rel.Type != "" && !slices.Contains(validRelationTypes, rel.Type) {
		v.addError(fmt.Sprintf("npc '%s' relationship %d has unknown type '%s'", npcID, i, rel.Type))
	}
}

func (v *CatalogValidator) validateCharacterAction(npc catalog.NPCDefinition, i int, action catalog.CharacterAction) {
	context := fmt.Sprintf("npc '%s' character_action %d", npc.ID, i)

	if action.TriggerChoice != catalog.TriggerImmediate &&
		(action.TriggerChoice < 0 || action.TriggerChoice >= len(npc.Choices)) {
		v.addError(fmt.Sprintf("%s trigger_choice %d does not match a choice", context, action.TriggerChoice))
	}

	switch action.Type {
	case state.ActionDeath, state.ActionExile:
		if action.CharacterID == "" && action.CharacterName == "" {
			v.addError(fmt.Sprintf("%s (%s) needs character_id or character_name", context, action.Type))
		}
	case state.ActionModify:
		if action.CharacterID == "" {
			v.addError(fmt.Sprintf("%s (modify) needs character_id", context))
		}
		if action.NewRole == "" && action.AffinityChange == 0 {
			v.addError(fmt.Sprintf("%s (modify) changes nothing", context))
		}
	case state.ActionCreate:
		if action.CharacterName == "" {
			v.addError(fmt.Sprintf("%s (create) has no character_name", context))
		}
	default:
		v.addError(fmt.Sprintf("%s has unknown type '%s'", context, action.Type))
	}
}

// validatePrerequisiteCycles reports NPCs that can never be presented
// because their prerequisites loop back to them.
func (v *CatalogValidator) validatePrerequisiteCycles(c *catalog.Catalog) {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, c.Len())
	reported := make(map[string]bool)

	var visit func(id string, path []string)
	visit = func(id string, path []string) {
		switch marks[id] {
		case done:
			return
		case visiting:
			start := slices.Index(path, id)
			cycle := append(slices.Clone(path[start:]), id)
			if !reported[id] {
				reported[id] = true
				v.addError(fmt.Sprintf("prerequisite cycle: %s", strings.Join(cycle, " -> ")))
			}
			return
		}
		npc, ok := c.FindByID(id)
		if !ok {
			return
		}
		marks[id] = visiting
		for _, req := range npc.Prerequisites {
			if req != id {
				visit(req, append(path, id))
			}
		}
		marks[id] = done
	}

	for _, npc := range c.All() {
		visit(npc.ID, nil)
	}
}

func (v *CatalogValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *CatalogValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
