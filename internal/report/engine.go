package report

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/provider"
	"github.com/researchd/researchd/pkg/logger"
	"github.com/researchd/researchd/pkg/telemetry"
)

// ProgressFunc receives human-readable step descriptions as report
// generation advances. A nil ProgressFunc disables progress reporting.
type ProgressFunc func(step string)

// Engine orchestrates structured report generation: outline, executive
// summary, quality-validated sections, conclusion, assembly.
type Engine struct {
	structGen  *StructureGenerator
	sectionGen *SectionGenerator
	contextMgr *ContextManager
	validator  *QualityValidator
	assembler  *Assembler
}

// NewEngine builds a report engine from report config.
func NewEngine(client provider.Client, cfg config.ReportConfig) *Engine {
	return &Engine{
		structGen:  NewStructureGenerator(client),
		sectionGen: NewSectionGenerator(client),
		contextMgr: NewContextManager(client, cfg.Context),
		validator:  NewQualityValidator(cfg.Quality),
		assembler:  NewAssembler(),
	}
}

// Generate produces the complete structured markdown report. Section
// generation is resilient: provider failures yield placeholder content
// and quality issues trigger bounded regeneration, so Generate only
// errs when the context is canceled.
func (e *Engine) Generate(ctx context.Context, query, plan, researchData string, progress ProgressFunc) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "report.generate")
	defer span.End()

	emit := func(step string) {
		if progress != nil {
			progress(step)
		}
	}

	emit("Generating report structure...")
	structure := e.structGen.GenerateOutline(ctx, query, plan, researchData)
	telemetry.SetSpanAttributes(span, telemetry.AttrChapterCount.Int(len(structure.Chapters)))

	var sections []*GeneratedSection

	if err := ctx.Err(); err != nil {
		return "", err
	}
	emit("**Generating:** Executive Summary")
	exec := e.sectionGen.GenerateExecutiveSummary(ctx, structure, query, researchData)
	sections = append(sections, exec)

	for _, chapter := range structure.Chapters {
		for _, spec := range chapter.Sections {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			emit(fmt.Sprintf("**Generating Section %s:** %s", spec.FullID(), spec.Title))
			section := e.generateValidated(ctx, spec, sections, researchData)
			sections = append(sections, section)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	emit("**Generating:** Conclusion")
	conclusion := e.sectionGen.GenerateConclusion(ctx, structure, sections, query)
	sections = append(sections, conclusion)

	emit("Assembling final report...")
	final := e.assembler.Assemble(structure, sections)

	totalWords := 0
	for _, s := range sections {
		totalWords += s.WordCount
	}
	telemetry.SetSpanAttributes(span, telemetry.AttrWordCount.Int(totalWords))
	telemetry.SetSpanOK(span)
	return final, nil
}

// generateValidated writes one section, validating and regenerating up
// to the configured attempt limit before accepting the result.
func (e *Engine) generateValidated(ctx context.Context, spec SectionSpec, previous []*GeneratedSection, researchData string) *GeneratedSection {
	cs := e.contextMgr.BuildContext(ctx, previous, researchData)

	guidance := ""
	var section *GeneratedSection
	for attempt := 1; ; attempt++ {
		section = e.sectionGen.Generate(ctx, spec, cs, researchData, guidance)
		result := e.validator.Validate(section, previous)

		regenerate, g := e.validator.ShouldRegenerate(result, attempt)
		if !regenerate {
			if !result.IsValid {
				logger.Warn("Accepting section despite quality issues",
					zap.String("section_id", spec.FullID()),
					zap.Strings("issues", result.Issues))
			}
			telemetry.GetMetrics().RecordSectionGenerated(ctx, result.IsValid)
			return section
		}
		guidance = g
	}
}
