package report

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchd/researchd/internal/provider"
)

func TestExtractCitationMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			"bare and prefixed markers deduped",
			"See [1] and [Source 2], then [1] again and [10].",
			[]string{"Source 1", "Source 10", "Source 2"},
		},
		{"no markers", "Plain text without references.", []string{}},
		{"non-numeric brackets ignored", "See [ibid] and [Source A].", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCitationMarkers(tt.in))
		})
	}
}

func TestGenerateSection(t *testing.T) {
	var captured provider.Request
	client := &scriptedClient{
		completeFn: func(req provider.Request) (string, error) {
			captured = req
			return "The merger closed in March. [Source 1]\n\nRegulators approved it. [2]", nil
		},
	}
	g := NewSectionGenerator(client)
	spec := SectionSpec{
		Title:           "Deal Timeline",
		ChapterNumber:   2,
		SectionNumber:   1,
		Perspective:     "Regulatory/Legal",
		Guidance:        "Cover the approval process",
		TargetWordCount: 350,
	}

	section := g.Generate(context.Background(), spec, &ContextSummary{}, "research data", "")
	assert.Equal(t, "2.1", section.SectionID())
	assert.Equal(t, []string{"Source 1", "Source 2"}, section.CitationsUsed)
	assert.Equal(t, len(strings.Fields(section.Content)), section.WordCount)

	assert.Contains(t, captured.Prompt, "Deal Timeline")
	assert.Contains(t, captured.Prompt, "Chapter 2")
	assert.Contains(t, captured.Prompt, "Cover the approval process")
	assert.NotContains(t, captured.Prompt, "REGENERATION GUIDANCE:")
	assert.Equal(t, sectionMaxOutputTokens, captured.MaxOutputTokens)
}

func TestGenerateSectionWithRegenerationGuidance(t *testing.T) {
	var captured provider.Request
	client := &scriptedClient{
		completeFn: func(req provider.Request) (string, error) {
			captured = req
			return "Better content this time. [Source 1]", nil
		},
	}
	g := NewSectionGenerator(client)
	spec := SectionSpec{Title: "Retry", ChapterNumber: 1, SectionNumber: 1, Guidance: "base guidance"}

	g.Generate(context.Background(), spec, &ContextSummary{}, "", "Address the following issues in regeneration:\n- Insufficient depth")
	assert.Contains(t, captured.Prompt, "REGENERATION GUIDANCE:")
	assert.Contains(t, captured.Prompt, "Insufficient depth")
	assert.Contains(t, captured.Prompt, "base guidance")
}

func TestGenerateSectionFallback(t *testing.T) {
	client := &scriptedClient{
		completeFn: func(provider.Request) (string, error) {
			return "", stderrors.New("quota exceeded")
		},
	}
	g := NewSectionGenerator(client)
	spec := SectionSpec{Title: "Deal Timeline", ChapterNumber: 2, SectionNumber: 1, Guidance: "Cover the approval process"}

	section := g.Generate(context.Background(), spec, &ContextSummary{}, "", "")
	assert.Contains(t, section.Content, "# Deal Timeline")
	assert.Contains(t, section.Content, "[Content generation failed for this section. Error: quota exceeded]")
	assert.Contains(t, section.Content, "This section was intended to cover: Cover the approval process")
	assert.Empty(t, section.CitationsUsed)
}

func TestGenerateExecutiveSummaryFallback(t *testing.T) {
	client := &scriptedClient{
		completeFn: func(provider.Request) (string, error) {
			return "", stderrors.New("boom")
		},
	}
	g := NewSectionGenerator(client)
	structure := defaultStructure()

	section := g.GenerateExecutiveSummary(context.Background(), structure, "q", "r")
	assert.Equal(t, "0.1", section.SectionID())
	assert.Contains(t, section.Content, "# Executive Summary\n\n[Executive summary generation failed. Error: boom]")
}

func TestGenerateConclusionFallback(t *testing.T) {
	client := &scriptedClient{
		completeFn: func(provider.Request) (string, error) {
			return "", stderrors.New("boom")
		},
	}
	g := NewSectionGenerator(client)
	structure := defaultStructure()

	section := g.GenerateConclusion(context.Background(), structure, nil, "q")
	assert.Equal(t, "4.1", section.SectionID())
	assert.Contains(t, section.Content, "# Conclusion\n\n[Conclusion generation failed. Error: boom]")
}

func TestFormatReportOutline(t *testing.T) {
	out := formatReportOutline(defaultStructure())
	assert.Contains(t, out, "Total Sections: 8\n")
	assert.Contains(t, out, "\nChapter 1: Background and Context (General Analysis)")
	assert.Contains(t, out, "  - Section 1.1: Overview")
	assert.Contains(t, out, "\nChapter 3: Future Outlook (Forward-Looking)")
	assert.Contains(t, out, "  - Section 3.2: Potential Scenarios")
}

func TestBuildSectionsSummary(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 150))
	sections := []*GeneratedSection{
		{Spec: SectionSpec{Title: "First", ChapterNumber: 1, SectionNumber: 1}, Content: long},
		{Spec: SectionSpec{Title: "Second", ChapterNumber: 1, SectionNumber: 2}, Summary: "cached summary"},
	}

	out := buildSectionsSummary(sections)
	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 2)

	assert.True(t, strings.HasPrefix(parts[0], "[1.1] First:\n"))
	body := strings.TrimPrefix(parts[0], "[1.1] First:\n")
	assert.Len(t, strings.Fields(body), 100, "long content truncated to 100 words")

	assert.Equal(t, "[1.2] Second:\ncached summary", parts[1])
}
