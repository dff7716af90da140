package report

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/prompt"
	"github.com/researchd/researchd/internal/provider"
	"github.com/researchd/researchd/pkg/logger"
)

const (
	// Research data passed into a section prompt is truncated to this
	// many characters.
	researchDataMaxChars = 3000

	// Per-section output ceiling.
	sectionMaxOutputTokens = 2048
)

// citationRe matches inline [Source N] or [N] citation markers.
var citationRe = regexp.MustCompile(`\[(?:Source\s+)?(\d+)\]`)

// SectionGenerator writes individual report sections with context from
// previous work. Generation never fails the report: provider errors
// produce a placeholder section instead.
type SectionGenerator struct {
	client provider.Client
}

// NewSectionGenerator creates a section generator.
func NewSectionGenerator(client provider.Client) *SectionGenerator {
	return &SectionGenerator{client: client}
}

// Generate writes one section per its spec. regenerationGuidance, when
// non-empty, is appended to the section guidance for retry attempts.
func (g *SectionGenerator) Generate(ctx context.Context, spec SectionSpec, cs *ContextSummary, researchData, regenerationGuidance string) *GeneratedSection {
	start := time.Now()

	logger.Info("Generating section",
		zap.String("section_id", spec.FullID()),
		zap.String("title", spec.Title),
		zap.Int("target_words", spec.TargetWordCount))

	guidance := spec.Guidance
	if regenerationGuidance != "" {
		guidance += "\n\nREGENERATION GUIDANCE:\n" + regenerationGuidance
	}
	maxTokens := spec.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = sectionMaxOutputTokens
	}

	p := prompt.Render(prompt.SectionGenerationPrompt, map[string]string{
		"section_title":     spec.Title,
		"section_id":        spec.FullID(),
		"chapter_title":     fmt.Sprintf("Chapter %d", spec.ChapterNumber),
		"perspective":       spec.Perspective,
		"target_word_count": strconv.Itoa(spec.TargetWordCount),
		"guidance":          guidance,
		"context_summary":   FormatContext(cs),
		"research_data":     truncateChars(researchData, researchDataMaxChars),
		"max_output_tokens": strconv.Itoa(maxTokens),
	})

	content, err := g.client.Complete(ctx, provider.Request{
		Prompt:          p,
		SystemPrompt:    prompt.SystemSectionWriter,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		logger.Error("Failed to generate section",
			zap.String("section_id", spec.FullID()),
			zap.Error(err))
		fallback := fmt.Sprintf("# %s\n\n[Content generation failed for this section. Error: %v]\n\nThis section was intended to cover: %s",
			spec.Title, err, spec.Guidance)
		return newGeneratedSection(spec, fallback, nil, time.Since(start))
	}

	section := newGeneratedSection(spec, content, extractCitationMarkers(content), time.Since(start))
	logger.Info("Generated section",
		zap.String("section_id", spec.FullID()),
		zap.Int("words", section.WordCount),
		zap.Int("citations", len(section.CitationsUsed)),
		zap.Duration("elapsed", section.GenerationTime))
	return section
}

// GenerateExecutiveSummary writes the executive summary from the report
// outline and research data.
func (g *SectionGenerator) GenerateExecutiveSummary(ctx context.Context, structure *Structure, query, researchData string) *GeneratedSection {
	start := time.Now()
	logger.Info("Generating Executive Summary")

	p := prompt.Render(prompt.ExecutiveSummaryPrompt, map[string]string{
		"query":          query,
		"report_outline": formatReportOutline(structure),
		"research_data":  truncateChars(researchData, researchDataMaxChars),
	})

	content, err := g.client.Complete(ctx, provider.Request{
		Prompt:       p,
		SystemPrompt: prompt.SystemSummaryWriter,
	})
	if err != nil {
		logger.Error("Failed to generate Executive Summary", zap.Error(err))
		fallback := fmt.Sprintf("# Executive Summary\n\n[Executive summary generation failed. Error: %v]", err)
		return newGeneratedSection(structure.ExecutiveSummary, fallback, nil, time.Since(start))
	}
	return newGeneratedSection(structure.ExecutiveSummary, content, extractCitationMarkers(content), time.Since(start))
}

// GenerateConclusion writes the conclusion from summaries of all
// generated sections.
func (g *SectionGenerator) GenerateConclusion(ctx context.Context, structure *Structure, sections []*GeneratedSection, query string) *GeneratedSection {
	start := time.Now()
	logger.Info("Generating Conclusion")

	p := prompt.Render(prompt.ConclusionPrompt, map[string]string{
		"query":            query,
		"sections_summary": buildSectionsSummary(sections),
	})

	content, err := g.client.Complete(ctx, provider.Request{
		Prompt:       p,
		SystemPrompt: prompt.SystemConclusionWriter,
	})
	if err != nil {
		logger.Error("Failed to generate Conclusion", zap.Error(err))
		fallback := fmt.Sprintf("# Conclusion\n\n[Conclusion generation failed. Error: %v]", err)
		return newGeneratedSection(structure.Conclusion, fallback, nil, time.Since(start))
	}
	return newGeneratedSection(structure.Conclusion, content, extractCitationMarkers(content), time.Since(start))
}

func newGeneratedSection(spec SectionSpec, content string, citations []string, elapsed time.Duration) *GeneratedSection {
	return &GeneratedSection{
		Spec:           spec,
		Content:        content,
		WordCount:      len(strings.Fields(content)),
		CitationsUsed:  citations,
		GenerationTime: elapsed,
	}
}

// extractCitationMarkers returns the unique citation markers in
// content as "Source N" strings, lexicographically sorted.
func extractCitationMarkers(content string) []string {
	matches := citationRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		seen["Source "+m[1]] = struct{}{}
	}
	citations := make([]string, 0, len(seen))
	for c := range seen {
		citations = append(citations, c)
	}
	sort.Strings(citations)
	return citations
}

// formatReportOutline renders the structure as a plain-text outline for
// the executive summary prompt.
func formatReportOutline(structure *Structure) string {
	lines := []string{fmt.Sprintf("Total Sections: %d\n", structure.TotalSections())}
	for _, ch := range structure.Chapters {
		lines = append(lines, fmt.Sprintf("\nChapter %d: %s (%s)", ch.ChapterNumber, ch.Title, ch.Perspective))
		for _, sec := range ch.Sections {
			lines = append(lines, fmt.Sprintf("  - Section %s: %s", sec.FullID(), sec.Title))
		}
	}
	return strings.Join(lines, "\n")
}

// buildSectionsSummary joins per-section summaries (or leading content)
// for the conclusion prompt.
func buildSectionsSummary(sections []*GeneratedSection) string {
	summaries := make([]string, 0, len(sections))
	for _, s := range sections {
		text := s.Summary
		if text == "" {
			words := strings.Fields(s.Content)
			if len(words) > 100 {
				words = words[:100]
			}
			text = strings.Join(words, " ")
		}
		summaries = append(summaries, fmt.Sprintf("[%s] %s:\n%s", s.SectionID(), s.Spec.Title, text))
	}
	return strings.Join(summaries, "\n\n")
}
