// Package evolve implements self-evolution: a prompt is answered by
// several variants, each variant is critiqued and revised, and the
// survivors are merged into one superior text.
package evolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/prompt"
	"github.com/researchd/researchd/internal/provider"
	"github.com/researchd/researchd/pkg/errors"
	"github.com/researchd/researchd/pkg/logger"
)

const revisedTextMarker = "REVISED_TEXT:"

// Evolver runs the variant/critique/merge loop.
type Evolver struct {
	client      provider.Client
	numVariants int
	steps       int
}

// New builds an Evolver from research config.
func New(client provider.Client, cfg config.ResearchConfig) *Evolver {
	numVariants := cfg.NumVariants
	if numVariants <= 0 {
		numVariants = 2
	}
	steps := cfg.EvolutionSteps
	if steps <= 0 {
		steps = 1
	}
	return &Evolver{client: client, numVariants: numVariants, steps: steps}
}

// Evolve generates variants for initialPrompt, refines each through
// critique rounds, and merges them. Failed variant generations are
// dropped; a failed critique keeps the variant as-is. It fails only
// when no variant could be generated at all or the merge call fails.
func (e *Evolver) Evolve(ctx context.Context, initialPrompt, systemPrompt string) (string, error) {
	variants := make([]string, 0, e.numVariants)
	for i := 0; i < e.numVariants; i++ {
		v, err := e.client.Complete(ctx, provider.Request{
			Prompt:       initialPrompt,
			SystemPrompt: systemPrompt,
		})
		if err != nil {
			logger.Warn("variant generation failed",
				zap.Int("variant", i),
				zap.Error(err))
			continue
		}
		variants = append(variants, v)
	}
	if len(variants) == 0 {
		return "", errors.New(errors.ErrCodePipelineFailed, "all variant generations failed")
	}

	for step := 0; step < e.steps; step++ {
		for i, v := range variants {
			variants[i] = e.critique(ctx, initialPrompt, v)
		}
	}

	if len(variants) == 1 {
		return variants[0], nil
	}
	return e.merge(ctx, initialPrompt, variants)
}

// critique runs one review round on a variant. The model responds with
// CRITIQUE/SCORE/REVISED_TEXT sections; only the revised text is kept.
// Any failure leaves the variant unchanged.
func (e *Evolver) critique(ctx context.Context, initialPrompt, variant string) string {
	resp, err := e.client.Complete(ctx, provider.Request{
		Prompt: prompt.Render(prompt.CritiquePrompt, map[string]string{
			"initial_prompt": initialPrompt,
			"variant":        variant,
		}),
		SystemPrompt: prompt.SystemCriticalReviewer,
	})
	if err != nil {
		logger.Warn("critique round failed, keeping variant", zap.Error(err))
		return variant
	}
	revised, ok := parseRevisedText(resp)
	if !ok {
		logger.Warn("critique response missing revised text, keeping variant")
		return variant
	}
	return revised
}

func (e *Evolver) merge(ctx context.Context, initialPrompt string, variants []string) (string, error) {
	merged, err := e.client.Complete(ctx, provider.Request{
		Prompt: prompt.Render(prompt.MergePrompt, map[string]string{
			"initial_prompt": initialPrompt,
			"variants":       strings.Join(variants, "\n---\n"),
		}),
		SystemPrompt: prompt.SystemResearchAssistant,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodePipelineFailed, "variant merge failed", err)
	}
	return merged, nil
}

// parseRevisedText extracts everything after the last REVISED_TEXT:
// marker, so a critique that quotes the marker in its commentary does
// not truncate the revision.
func parseRevisedText(resp string) (string, bool) {
	idx := strings.LastIndex(resp, revisedTextMarker)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(resp[idx+len(revisedTextMarker):]), true
}
