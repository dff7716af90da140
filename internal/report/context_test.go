package report

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/prompt"
	"github.com/researchd/researchd/internal/provider"
)

// dispatchClient answers Complete calls by system prompt so one fake
// can serve compression and insight extraction in the same test.
func dispatchClient(t *testing.T, bySystem map[string]string) *scriptedClient {
	t.Helper()
	return &scriptedClient{
		completeFn: func(req provider.Request) (string, error) {
			resp, ok := bySystem[req.SystemPrompt]
			if !ok {
				t.Fatalf("unexpected system prompt: %q", req.SystemPrompt)
			}
			return resp, nil
		},
	}
}

func TestParseNumberedList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			"numbered",
			"1. First insight\n2. Second insight",
			[]string{"First insight", "Second insight"},
		},
		{
			"bullets",
			"- bullet one\n- bullet two",
			[]string{"bullet one", "bullet two"},
		},
		{
			"prose lines skipped",
			"Here are the insights:\n1. Only this one",
			[]string{"Only this one"},
		},
		{
			"empty items dropped",
			"1. \n2. Kept",
			[]string{"Kept"},
		},
		{"blank input", "\n\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseNumberedList(tt.in))
		})
	}
}

func TestFormatContext(t *testing.T) {
	cs := &ContextSummary{
		KeyInsights:        []string{"alpha", "beta"},
		PreviousSections:   []string{"[1.1] Overview: summary text"},
		ResearchHighlights: "highlight text",
	}
	out := FormatContext(cs)
	assert.Contains(t, out, "**Key Insights from Previous Sections:**")
	assert.Contains(t, out, "1. alpha")
	assert.Contains(t, out, "2. beta")
	assert.Contains(t, out, "**Previous Sections:**")
	assert.Contains(t, out, "[1.1] Overview: summary text")
	assert.Contains(t, out, "**Research Findings:**")
	assert.Contains(t, out, "highlight text")

	assert.Empty(t, FormatContext(&ContextSummary{}))
}

func TestBuildContextEmptySections(t *testing.T) {
	m := NewContextManager(&scriptedClient{}, config.ContextConfig{})

	highlights := strings.Repeat("x", 3000)
	cs := m.BuildContext(context.Background(), nil, highlights)
	assert.Empty(t, cs.KeyInsights)
	assert.Empty(t, cs.PreviousSections)
	assert.Len(t, cs.ResearchHighlights, 1000, "empty context halves the highlights allowance")
	assert.Positive(t, cs.TotalTokens)
}

func TestBuildContextWindowing(t *testing.T) {
	client := dispatchClient(t, map[string]string{
		prompt.SystemSummarizer:       "COMPRESSED",
		prompt.SystemInsightExtractor: "1. First insight\n2. Second insight",
	})
	m := NewContextManager(client, config.ContextConfig{WindowSize: 2})

	var sections []*GeneratedSection
	for i := 1; i <= 4; i++ {
		sections = append(sections, makeSection("1."+string(rune('0'+i)), 1, i,
			"Detailed analysis content for this section. It spans several sentences.", nil))
	}

	cs := m.BuildContext(context.Background(), sections, "findings")
	require.Len(t, cs.PreviousSections, 4)

	// The two oldest sections are compressed, the last two stay full.
	assert.Equal(t, "[1.1] Section 1.1: COMPRESSED", cs.PreviousSections[0])
	assert.Equal(t, "[1.2] Section 1.2: COMPRESSED", cs.PreviousSections[1])
	assert.Contains(t, cs.PreviousSections[2], "(Full):")
	assert.Contains(t, cs.PreviousSections[3], "Detailed analysis content")

	assert.Equal(t, []string{"First insight", "Second insight"}, cs.KeyInsights)

	// Compression results are cached on the section for reuse.
	assert.Equal(t, "COMPRESSED", sections[0].Summary)
	assert.Equal(t, "COMPRESSED", sections[1].Summary)
	assert.Empty(t, sections[2].Summary)
}

func TestCompressSectionFallback(t *testing.T) {
	client := &scriptedClient{
		completeFn: func(provider.Request) (string, error) {
			return "", stderrors.New("provider down")
		},
	}
	m := NewContextManager(client, config.ContextConfig{})

	words := make([]string, 200)
	for i := range words {
		words[i] = "w"
	}
	section := makeSection("1.1", 1, 1, strings.Join(words, " "), nil)

	summary := m.CompressSection(context.Background(), section)
	assert.True(t, strings.HasSuffix(summary, "..."))
	assert.Len(t, strings.Fields(summary), 150)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 13, estimateTokens("one two three four five six seven eight nine ten"))
	assert.Zero(t, estimateTokens(""))
}

func TestTruncateChars(t *testing.T) {
	assert.Equal(t, "abc", truncateChars("abc", 10))
	assert.Equal(t, "abcde", truncateChars("abcdefgh", 5))
}
