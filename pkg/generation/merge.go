package generation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/royal-court/pkg/catalog"
)

// Merge overlays generated content on a static NPC. Identity, role,
// relationships and turn constraints always come from the static record.
func Merge(npc catalog.NPCDefinition, content *Content) catalog.NPCDefinition {
	if content == nil {
		return npc
	}
	merged := npc
	if content.Dialogue != "" {
		merged.Dialogue = content.Dialogue
	}

	merged.Choices = make([]catalog.Choice, 0, len(content.Choices))
	for _, ch := range content.Choices {
		if ch.Type == "" {
			ch.Type = catalog.ChoiceNeutral
		}
		if ch.NarratorResponse == "" {
			ch.NarratorResponse = FallbackNarrator(ch, npc)
		}
		merged.Choices = append(merged.Choices, ch)
	}
	if len(merged.Choices) == 0 {
		merged.Choices = npc.Choices
	}

	merged.CharacterActions = append(slices.Clone(npc.CharacterActions), content.CharacterActions...)
	return merged
}

// FallbackNarrator writes a narrator line for a choice that came without one,
// keyed off the wording of its consequence.
func FallbackNarrator(choice catalog.Choice, npc catalog.NPCDefinition) string {
	consequence := strings.ToLower(choice.Consequence)
	switch {
	case strings.Contains(consequence, "approve"), strings.Contains(consequence, "cheer"):
		return fmt.Sprintf("The %s leaves satisfied with your decision.", strings.ToLower(npc.Role))
	case strings.Contains(consequence, "disappoint"), strings.Contains(consequence, "angry"):
		return "You sense growing discontent among the people."
	default:
		return "Your choice ripples through the kingdom's halls."
	}
}
