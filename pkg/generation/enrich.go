package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/royal-court/pkg/catalog"
)

// ErrNoCredential is returned by a Generator that has no API credential.
// It selects static content and is not reported as a failure.
var ErrNoCredential = errors.New("no generation credential configured")

// Generator produces raw text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Outcome is the NPC to present and how it was produced.
type Outcome struct {
	NPC       catalog.NPCDefinition
	Generated bool
	Err       error // advisory; NPC is always usable
}

// Enrich asks the generator for fresh content and merges it onto the static
// NPC. Any failure falls back to the static NPC unchanged.
func Enrich(ctx context.Context, gen Generator, req Request, logger *slog.Logger) Outcome {
	static := Outcome{NPC: req.NPC}
	if gen == nil {
		return static
	}

	raw, err := gen.Generate(ctx, BuildPrompt(req))
	if errors.Is(err, ErrNoCredential) {
		return static
	}
	if err != nil {
		if logger != nil {
			logger.Warn("Content generation failed, using static content",
				"npc_id", req.NPC.ID,
				"error", err)
		}
		static.Err = fmt.Errorf("failed to generate content: %w", err)
		return static
	}

	content, err := Decode(raw)
	if err != nil {
		if logger != nil {
			logger.Warn("Generated content rejected, using static content",
				"npc_id", req.NPC.ID,
				"error", err)
		}
		static.Err = fmt.Errorf("failed to decode generated content: %w", err)
		return static
	}

	return Outcome{NPC: Merge(req.NPC, content), Generated: true}
}
