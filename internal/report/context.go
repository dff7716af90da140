package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/prompt"
	"github.com/researchd/researchd/internal/provider"
	"github.com/researchd/researchd/pkg/logger"
)

// TokensPerWord is the average for English text.
const TokensPerWord = 1.3

const (
	maxInsights          = 10
	insightInputMaxWords = 3000
	fallbackSummaryWords = 150
)

// ContextManager keeps section-generation context inside the token
// budget: recent sections stay in full, older ones are compressed, and
// a capped list of key insights spans everything.
type ContextManager struct {
	client        provider.Client
	windowSize    int
	tokenBudget   int
	summaryTokens int
	highlightsMax int
}

// NewContextManager creates a context manager from context config.
func NewContextManager(client provider.Client, cfg config.ContextConfig) *ContextManager {
	m := &ContextManager{
		client:        client,
		windowSize:    cfg.WindowSize,
		tokenBudget:   cfg.TokenBudget,
		summaryTokens: cfg.CompressionTokens,
		highlightsMax: cfg.HighlightsMaxChars,
	}
	if m.windowSize <= 0 {
		m.windowSize = 5
	}
	if m.tokenBudget <= 0 {
		m.tokenBudget = 8000
	}
	if m.summaryTokens <= 0 {
		m.summaryTokens = 200
	}
	if m.highlightsMax <= 0 {
		m.highlightsMax = 2000
	}
	return m
}

// CompressSection reduces a section to a summary of roughly 200
// tokens. On failure it truncates the content to the first 150 words.
func (m *ContextManager) CompressSection(ctx context.Context, section *GeneratedSection) string {
	summary, err := m.client.Complete(ctx, provider.Request{
		Prompt: prompt.Render(prompt.CompressionPrompt, map[string]string{
			"section_title": section.Spec.Title,
			"section_id":    section.SectionID(),
			"perspective":   section.Spec.Perspective,
			"word_count":    strconv.Itoa(section.WordCount),
			"content":       section.Content,
		}),
		SystemPrompt: prompt.SystemSummarizer,
	})
	if err != nil {
		logger.Warn("Section compression failed, truncating",
			zap.String("section_id", section.SectionID()),
			zap.Error(err))
		words := strings.Fields(section.Content)
		if len(words) > fallbackSummaryWords {
			words = words[:fallbackSummaryWords]
		}
		return strings.Join(words, " ") + "..."
	}

	if tokens := estimateTokens(summary); tokens > m.summaryTokens {
		logger.Debug("Compressed summary exceeds token target",
			zap.String("section_id", section.SectionID()),
			zap.Int("tokens", tokens),
			zap.Int("target", m.summaryTokens))
	}
	return summary
}

// BuildContext assembles the context for the next section: older
// sections as summaries, the most recent windowSize sections in full,
// key insights across all of them, and truncated research highlights.
func (m *ContextManager) BuildContext(ctx context.Context, sections []*GeneratedSection, researchHighlights string) *ContextSummary {
	if len(sections) == 0 {
		truncated := truncateChars(researchHighlights, m.highlightsMax/2)
		return &ContextSummary{
			KeyInsights:        []string{},
			PreviousSections:   []string{},
			ResearchHighlights: truncated,
			TotalTokens:        estimateTokens(truncated),
		}
	}

	split := len(sections) - m.windowSize
	if split < 0 {
		split = 0
	}
	older, recent := sections[:split], sections[split:]

	var previous []string
	for _, s := range older {
		if s.Summary == "" {
			// Cache the compressed form so later contexts reuse it.
			s.Summary = m.CompressSection(ctx, s)
		}
		previous = append(previous, fmt.Sprintf("[%s] %s: %s", s.SectionID(), s.Spec.Title, s.Summary))
	}
	for _, s := range recent {
		previous = append(previous, fmt.Sprintf("[%s] %s (Full):\n%s", s.SectionID(), s.Spec.Title, s.Content))
	}

	insights := m.extractKeyInsights(ctx, sections)
	highlights := truncateChars(researchHighlights, m.highlightsMax)

	cs := &ContextSummary{
		KeyInsights:        insights,
		PreviousSections:   previous,
		ResearchHighlights: highlights,
	}
	for _, insight := range insights {
		cs.TotalTokens += estimateTokens(insight)
	}
	for _, p := range previous {
		cs.TotalTokens += estimateTokens(p)
	}
	cs.TotalTokens += estimateTokens(highlights)

	logger.Info("Context built",
		zap.Int("compressed", len(older)),
		zap.Int("full", len(recent)),
		zap.Int("insights", len(insights)),
		zap.Int("tokens", cs.TotalTokens))
	if !cs.WithinBudget(m.tokenBudget) {
		logger.Warn("Context exceeds budget",
			zap.Int("tokens", cs.TotalTokens),
			zap.Int("budget", m.tokenBudget))
	}
	return cs
}

// extractKeyInsights asks the model for the top insights across all
// sections, parsing a numbered list. Failures return no insights.
func (m *ContextManager) extractKeyInsights(ctx context.Context, sections []*GeneratedSection) []string {
	if len(sections) == 0 {
		return nil
	}

	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		text := s.Summary
		if text == "" {
			words := strings.Fields(s.Content)
			if len(words) > 200 {
				words = words[:200]
			}
			text = strings.Join(words, " ")
		}
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", s.SectionID(), s.Spec.Title, text))
	}
	combined := strings.Join(parts, "\n\n")
	if words := strings.Fields(combined); len(words) > insightInputMaxWords {
		combined = strings.Join(words[:insightInputMaxWords], " ") + "..."
	}

	resp, err := m.client.Complete(ctx, provider.Request{
		Prompt:       prompt.Render(prompt.KeyInsightsExtractionPrompt, map[string]string{"sections_text": combined}),
		SystemPrompt: prompt.SystemInsightExtractor,
	})
	if err != nil {
		logger.Warn("Failed to extract key insights", zap.Error(err))
		return nil
	}

	insights := parseNumberedList(resp)
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// parseNumberedList extracts items from "1. ..." or "- ..." lines.
func parseNumberedList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := line[0]
		if !(first >= '0' && first <= '9') && !strings.HasPrefix(line, "-") {
			continue
		}
		item := line
		if idx := strings.Index(line, "."); idx >= 0 {
			item = line[idx+1:]
		}
		item = strings.TrimSpace(strings.TrimLeft(item, "- "))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// FormatContext renders a ContextSummary for inclusion in a section
// generation prompt.
func FormatContext(cs *ContextSummary) string {
	var parts []string

	if len(cs.KeyInsights) > 0 {
		parts = append(parts, "**Key Insights from Previous Sections:**")
		for i, insight := range cs.KeyInsights {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, insight))
		}
		parts = append(parts, "")
	}

	if len(cs.PreviousSections) > 0 {
		parts = append(parts, "**Previous Sections:**")
		for _, section := range cs.PreviousSections {
			parts = append(parts, section, "")
		}
	}

	if cs.ResearchHighlights != "" {
		parts = append(parts, "**Research Findings:**", cs.ResearchHighlights)
	}

	return strings.Join(parts, "\n")
}

func estimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * TokensPerWord)
}

func truncateChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
