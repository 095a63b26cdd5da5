package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/ledger"
)

// MaxCharactersInPrompt bounds the character roster sent to the generator.
const MaxCharactersInPrompt = 20

// Request is everything the generator is told about an encounter.
type Request struct {
	NPC             catalog.NPCDefinition
	RelevantActions []ledger.Action
	Popularity      int
	Characters      []ledger.Character // optional roster of known characters
}

// RelevantActions returns the past actions whose NPC appears in one of the
// npc's affected_by lists.
func RelevantActions(npc catalog.NPCDefinition, history []ledger.Action) []ledger.Action {
	var out []ledger.Action
	for _, a := range history {
		if npc.IsAffectedBy(a.NPC) {
			out = append(out, a)
		}
	}
	return out
}

type promptAction struct {
	NPC              string `json:"npc"`
	Choice           string `json:"choice"`
	Type             string `json:"type"`
	PopularityChange int    `json:"popularityChange"`
	Turn             int    `json:"turn"`
}

type promptCharacter struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Status   string  `json:"status"`
	Affinity float64 `json:"affinity"`
}

const promptTemplate = `You are generating content for a medieval fantasy game where a new king must handle complaints from his subjects.

NPC Information:
- ID: %s
- Name: %s
- Role: %s
- Base Complaint: %s

Game Context:
- Current King's Popularity: %d%%
- Relevant Past Actions: %s
- Known Characters: %s

STRICT REQUIREMENTS:
USE SIMPLE LANGUAGE
1. Generate a dialogue that reflects the NPC's personality and their complaint.
2. Consider how past royal decisions might have affected this character.
3. Choice text: MAXIMUM 10 words each, short and clear.
4. Create 3 distinct choice options for the king, each with different consequences.
5. Each choice should have a popularity impact (-15 to +15) and a type
   (harsh, merciful, diplomatic, threatening, generous, protective, dismissive).
6. Character actions are optional. Use characterId values from Known Characters.
   triggerChoice is the index of the choice that causes the action, or -1 to
   apply it as soon as the NPC appears.
7. Keep the tone medieval but accessible.

Format your response as JSON:
{
  "dialogue": "Character's complaint in 50 words or less",
  "choices": [
    {
      "text": "Choice text (10 words max)",
      "consequence": "Brief description of what happens without spoilers (10 words max)",
      "popularityChange": 0,
      "type": "merciful",
      "narratorResponse": "Narrator description of what happened (15 words max), dark humor."
    }
  ],
  "characterActions": [
    {
      "type": "death|create|modify|exile",
      "characterId": "existing id, for death, modify or exile",
      "characterName": "name, for create or death",
      "characterRole": "role, for create",
      "newRole": "role, for modify",
      "affinityChange": 0,
      "reason": "why it happens",
      "triggerChoice": 0
    }
  ]
}

Count words carefully. Medieval tone but easy to understand.`

// BuildPrompt renders the generation prompt for a request.
func BuildPrompt(req Request) string {
	actions := make([]promptAction, 0, len(req.RelevantActions))
	for _, a := range req.RelevantActions {
		actions = append(actions, promptAction{
			NPC:              a.NPC,
			Choice:           a.Choice.Text,
			Type:             a.Choice.Type,
			PopularityChange: a.PopularityChange,
			Turn:             a.Turn,
		})
	}

	roster := make([]promptCharacter, 0, min(len(req.Characters), MaxCharactersInPrompt))
	for _, c := range req.Characters {
		if len(roster) == MaxCharactersInPrompt {
			break
		}
		roster = append(roster, promptCharacter{
			ID:       c.ID,
			Name:     c.Name,
			Role:     c.Role,
			Status:   string(c.Status),
			Affinity: c.Affinity,
		})
	}

	return strings.TrimSpace(fmt.Sprintf(promptTemplate,
		req.NPC.ID,
		req.NPC.Name,
		req.NPC.Role,
		req.NPC.BaseComplaint,
		req.Popularity,
		compactJSON(actions),
		compactJSON(roster),
	))
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
