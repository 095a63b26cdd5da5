// Package generation turns text returned by a content generator into NPC
// content the engine can use. Decoding is best effort: generated text is
// often fenced in markdown, truncated mid-object, or sprinkled with
// non-standard numbers, and all of that is repaired before validation.
package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jwebster45206/royal-court/pkg/catalog"
)

var (
	ErrNoJSON         = errors.New("no JSON object found in generated content")
	ErrInvalidContent = errors.New("generated content is invalid")
)

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	openFence     = regexp.MustCompile("^\\s*```(?:json|JSON)?")
	leadingPlus   = regexp.MustCompile(`([:\[,]\s*)\+(\d)`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// Content is validated generated content for one NPC encounter.
type Content struct {
	Dialogue         string                    `json:"dialogue"`
	Choices          []catalog.Choice          `json:"choices"`
	CharacterActions []catalog.CharacterAction `json:"character_actions,omitempty"`
}

type wireChoice struct {
	Text             string  `json:"text"`
	Consequence      string  `json:"consequence"`
	PopularityChange float64 `json:"popularityChange"`
	Type             string  `json:"type"`
	NarratorResponse string  `json:"narratorResponse"`
}

type wireAction struct {
	Type           string  `json:"type"`
	CharacterID    string  `json:"characterId"`
	CharacterName  string  `json:"characterName"`
	CharacterRole  string  `json:"characterRole"`
	CharacterImage string  `json:"characterImage"`
	NewRole        string  `json:"newRole"`
	AffinityChange float64 `json:"affinityChange"`
	Reason         string  `json:"reason"`
	TriggerChoice  *int    `json:"triggerChoice"`
}

type wireContent struct {
	Dialogue         string       `json:"dialogue"`
	Choices          []wireChoice `json:"choices"`
	CharacterActions []wireAction `json:"characterActions"`
}

// Decode repairs and parses generated text, then validates its structure.
func Decode(raw string) (*Content, error) {
	body, err := Extract(raw)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, candidate := range candidates(body) {
		var wc wireContent
		if err := json.Unmarshal([]byte(candidate), &wc); err != nil {
			lastErr = err
			continue
		}
		return validate(wc)
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidContent, lastErr)
}

// Extract strips control characters and markdown fences and returns the
// text from the first '{' onward, with leading '+' signs removed from
// numbers.
func Extract(raw string) (string, error) {
	s := StripControl(raw)

	if m := fencedBlock.FindStringSubmatch(s); len(m) > 1 && strings.Contains(m[1], "{") {
		s = m[1]
	} else if loc := openFence.FindStringIndex(s); loc != nil {
		// an opening fence whose closing fence was truncated away
		s = s[loc[1]:]
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return "", ErrNoJSON
	}
	s = strings.TrimSpace(s[start:])
	s = strings.TrimSuffix(s, "```")
	return leadingPlus.ReplaceAllString(s, "${1}${2}"), nil
}

// StripControl removes C0 and C1 control characters.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, s)
}

// candidates returns parse attempts in order of preference: the text up to
// the last closing brace, the whole tail auto-closed, and the text up to the
// last brace auto-closed.
func candidates(body string) []string {
	var out []string
	last := strings.LastIndex(body, "}")
	if last >= 0 {
		out = append(out, cleanCommas(body[:last+1]))
	}
	out = append(out, Balance(body))
	if last >= 0 {
		out = append(out, Balance(body[:last+1]))
	}
	return out
}

func cleanCommas(s string) string {
	return trailingComma.ReplaceAllString(s, "$1")
}

// Balance closes an unterminated string and any unclosed objects or arrays,
// in nesting order. Braces inside strings are ignored.
func Balance(s string) string {
	var stack []rune
	inString, escaped := false, false

	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1] == r {
				stack = stack[:n-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		if escaped {
			// drop a dangling backslash so the closing quote is not escaped
			trimmed := strings.TrimSuffix(b.String(), "\\")
			b.Reset()
			b.WriteString(trimmed)
		}
		b.WriteByte('"')
	}

	out := strings.TrimRight(b.String(), " \t")
	switch {
	case strings.HasSuffix(out, ","):
		out = strings.TrimSuffix(out, ",")
	case strings.HasSuffix(out, ":"):
		out += "null"
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return cleanCommas(out)
}

func validate(wc wireContent) (*Content, error) {
	dialogue := strings.TrimSpace(wc.Dialogue)
	if dialogue == "" {
		return nil, fmt.Errorf("%w: missing dialogue", ErrInvalidContent)
	}
	if len(wc.Choices) == 0 {
		return nil, fmt.Errorf("%w: missing choices", ErrInvalidContent)
	}

	c := &Content{Dialogue: dialogue}
	for _, wch := range wc.Choices {
		text := strings.TrimSpace(wch.Text)
		if text == "" {
			continue
		}
		c.Choices = append(c.Choices, catalog.Choice{
			Text:             text,
			Consequence:      strings.TrimSpace(wch.Consequence),
			PopularityChange: int(math.Round(wch.PopularityChange)),
			Type:             strings.ToLower(strings.TrimSpace(wch.Type)),
			NarratorResponse: strings.TrimSpace(wch.NarratorResponse),
		})
	}
	if len(c.Choices) == 0 {
		return nil, fmt.Errorf("%w: no usable choices", ErrInvalidContent)
	}

	for _, wa := range wc.CharacterActions {
		if wa.TriggerChoice == nil || wa.Type == "" {
			continue
		}
		c.CharacterActions = append(c.CharacterActions, catalog.CharacterAction{
			Type:           strings.ToLower(wa.Type),
			CharacterID:    wa.CharacterID,
			CharacterName:  wa.CharacterName,
			CharacterRole:  wa.CharacterRole,
			CharacterImage: wa.CharacterImage,
			NewRole:        wa.NewRole,
			AffinityChange: int(math.Round(wa.AffinityChange)),
			Reason:         wa.Reason,
			TriggerChoice:  *wa.TriggerChoice,
		})
	}
	return c, nil
}
