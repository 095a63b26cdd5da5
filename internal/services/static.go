package services

import (
	"context"

	"github.com/jwebster45206/royal-court/pkg/generation"
)

// StaticGenerator never generates; the court plays its catalog as written.
type StaticGenerator struct{}

var _ generation.Generator = StaticGenerator{}

func (StaticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", generation.ErrNoCredential
}
