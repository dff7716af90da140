package report

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/prompt"
	"github.com/researchd/researchd/internal/provider"
	"github.com/researchd/researchd/pkg/logger"
)

// StandardPerspectives are the analytical lenses offered to the model
// when structuring a report.
var StandardPerspectives = []string{
	"Financial/Economic",
	"Technical/Operational",
	"Regulatory/Legal",
	"Strategic/Competitive",
	"Risk/Challenge",
	"Market/Industry",
}

const (
	summaryTargetWords    = 400
	conclusionTargetWords = 400
	sectionTargetWords    = 350
)

// StructureGenerator produces the report outline from the research
// artifacts.
type StructureGenerator struct {
	client provider.Client
}

// NewStructureGenerator creates a structure generator.
func NewStructureGenerator(client provider.Client) *StructureGenerator {
	return &StructureGenerator{client: client}
}

// structureWire mirrors the JSON contract the model is asked to emit.
type structureWire struct {
	ExecutiveSummary struct {
		Title    string `json:"title"`
		Guidance string `json:"guidance"`
	} `json:"executive_summary"`
	Chapters []struct {
		Title       string `json:"title"`
		Perspective string `json:"perspective"`
		Sections    []struct {
			Title           string `json:"title"`
			Guidance        string `json:"guidance"`
			TargetWordCount int    `json:"target_word_count"`
		} `json:"sections"`
	} `json:"chapters"`
	Conclusion struct {
		Title    string `json:"title"`
		Guidance string `json:"guidance"`
	} `json:"conclusion"`
}

// AnalyzePerspectives ranks analytical perspectives for the query,
// most relevant first. Parse failures fall back to the first four
// standard perspectives with equal weight.
func (g *StructureGenerator) AnalyzePerspectives(ctx context.Context, query string) []Perspective {
	resp, err := g.client.Complete(ctx, provider.Request{
		Prompt:       prompt.Render(prompt.PerspectiveAnalysisPrompt, map[string]string{"query": query}),
		SystemPrompt: prompt.SystemJSONPlanner,
	})
	if err == nil {
		var wire struct {
			Perspectives []Perspective `json:"perspectives"`
		}
		if jerr := json.Unmarshal([]byte(extractJSON(resp)), &wire); jerr == nil && len(wire.Perspectives) > 0 {
			sort.SliceStable(wire.Perspectives, func(i, j int) bool {
				return wire.Perspectives[i].RelevanceScore > wire.Perspectives[j].RelevanceScore
			})
			logger.Info("Identified relevant perspectives",
				zap.Int("count", len(wire.Perspectives)))
			return wire.Perspectives
		}
		logger.Warn("Failed to parse perspective analysis, using defaults")
	} else {
		logger.Warn("Perspective analysis call failed, using defaults", zap.Error(err))
	}

	defaults := make([]Perspective, 0, 4)
	for _, name := range StandardPerspectives[:4] {
		defaults = append(defaults, Perspective{
			Name:           name,
			RelevanceScore: 5,
			Rationale:      "Default perspective for comprehensive analysis",
		})
	}
	return defaults
}

// GenerateOutline asks the model for a complete chapter outline. Any
// call or parse failure falls back to the default three-chapter
// structure so report generation can always proceed.
func (g *StructureGenerator) GenerateOutline(ctx context.Context, query, plan, researchSummary string) *Structure {
	logger.Info("Generating report structure")

	resp, err := g.client.Complete(ctx, provider.Request{
		Prompt: prompt.Render(prompt.StructureGenerationPrompt, map[string]string{
			"query":            query,
			"plan":             plan,
			"research_summary": researchSummary,
		}),
		SystemPrompt: prompt.SystemJSONStructurer,
	})
	if err != nil {
		logger.Error("Structure generation call failed, using default structure", zap.Error(err))
		return defaultStructure()
	}

	var wire structureWire
	if err := json.Unmarshal([]byte(extractJSON(resp)), &wire); err != nil || len(wire.Chapters) == 0 {
		logger.Warn("Failed to parse structure generation, using default structure",
			zap.Error(err))
		return defaultStructure()
	}

	structure := buildStructure(wire)
	logger.Info("Generated report structure",
		zap.Int("chapters", len(structure.Chapters)),
		zap.Int("sections", structure.TotalSections()),
		zap.Int("estimated_words", structure.EstimatedWordCount))
	return structure
}

func buildStructure(wire structureWire) *Structure {
	execTitle := wire.ExecutiveSummary.Title
	if execTitle == "" {
		execTitle = "Executive Summary"
	}
	executiveSummary := SectionSpec{
		Title:           execTitle,
		ChapterNumber:   0,
		SectionNumber:   1,
		Perspective:     "Executive Summary",
		Guidance:        wire.ExecutiveSummary.Guidance,
		TargetWordCount: summaryTargetWords,
	}

	chapters := make([]Chapter, 0, len(wire.Chapters))
	for chIdx, ch := range wire.Chapters {
		sections := make([]SectionSpec, 0, len(ch.Sections))
		for secIdx, sec := range ch.Sections {
			target := sec.TargetWordCount
			if target <= 0 {
				target = sectionTargetWords
			}
			sections = append(sections, SectionSpec{
				Title:           sec.Title,
				ChapterNumber:   chIdx + 1,
				SectionNumber:   secIdx + 1,
				Perspective:     ch.Perspective,
				Guidance:        sec.Guidance,
				TargetWordCount: target,
			})
		}
		chapters = append(chapters, Chapter{
			Title:         ch.Title,
			Perspective:   ch.Perspective,
			Sections:      sections,
			ChapterNumber: chIdx + 1,
		})
	}

	conclTitle := wire.Conclusion.Title
	if conclTitle == "" {
		conclTitle = "Conclusion"
	}
	conclusion := SectionSpec{
		Title:           conclTitle,
		ChapterNumber:   len(chapters) + 1,
		SectionNumber:   1,
		Perspective:     "Conclusion",
		Guidance:        wire.Conclusion.Guidance,
		TargetWordCount: conclusionTargetWords,
	}

	estimatedWords := summaryTargetWords + conclusionTargetWords
	for _, ch := range chapters {
		estimatedWords += ch.TotalTargetWords()
	}

	return &Structure{
		ExecutiveSummary:   executiveSummary,
		Chapters:           chapters,
		Conclusion:         conclusion,
		EstimatedWordCount: estimatedWords,
		EstimatedSections:  2 + countSections(chapters),
		CreatedAt:          time.Now().UTC(),
	}
}

func countSections(chapters []Chapter) int {
	n := 0
	for _, ch := range chapters {
		n += len(ch.Sections)
	}
	return n
}

// defaultStructure is the three-chapter fallback outline used when the
// model's structure cannot be parsed.
func defaultStructure() *Structure {
	logger.Warn("Using default 3-chapter report structure")

	section := func(chapter, number int, perspective, title, guidance string) SectionSpec {
		return SectionSpec{
			Title:           title,
			ChapterNumber:   chapter,
			SectionNumber:   number,
			Perspective:     perspective,
			Guidance:        guidance,
			TargetWordCount: sectionTargetWords,
		}
	}

	chapters := []Chapter{
		{
			Title:         "Background and Context",
			Perspective:   "General Analysis",
			ChapterNumber: 1,
			Sections: []SectionSpec{
				section(1, 1, "General Analysis", "Overview", "Provide context and background"),
				section(1, 2, "General Analysis", "Key Details", "Present essential facts and details"),
			},
		},
		{
			Title:         "Analysis and Implications",
			Perspective:   "Strategic Analysis",
			ChapterNumber: 2,
			Sections: []SectionSpec{
				section(2, 1, "Strategic Analysis", "Primary Analysis", "Analyze main implications"),
				section(2, 2, "Strategic Analysis", "Secondary Considerations", "Explore additional factors"),
			},
		},
		{
			Title:         "Future Outlook",
			Perspective:   "Forward-Looking",
			ChapterNumber: 3,
			Sections: []SectionSpec{
				section(3, 1, "Forward-Looking", "Expected Developments", "Discuss future trajectories"),
				section(3, 2, "Forward-Looking", "Potential Scenarios", "Consider alternative outcomes"),
			},
		},
	}

	estimatedWords := summaryTargetWords + conclusionTargetWords
	for _, ch := range chapters {
		estimatedWords += ch.TotalTargetWords()
	}

	return &Structure{
		ExecutiveSummary: SectionSpec{
			Title:           "Executive Summary",
			ChapterNumber:   0,
			SectionNumber:   1,
			Perspective:     "Executive Summary",
			Guidance:        "Provide high-level synthesis of key findings",
			TargetWordCount: summaryTargetWords,
		},
		Chapters: chapters,
		Conclusion: SectionSpec{
			Title:           "Conclusion",
			ChapterNumber:   4,
			SectionNumber:   1,
			Perspective:     "Conclusion",
			Guidance:        "Synthesize findings and provide recommendations",
			TargetWordCount: conclusionTargetWords,
		},
		EstimatedWordCount: estimatedWords,
		EstimatedSections:  2 + countSections(chapters),
		CreatedAt:          time.Now().UTC(),
	}
}

// extractJSON strips markdown code fences from a model response before
// JSON parsing.
func extractJSON(response string) string {
	if strings.Contains(response, "```json") {
		parts := strings.SplitN(response, "```json", 2)
		response = strings.SplitN(parts[1], "```", 2)[0]
	} else if strings.Contains(response, "```") {
		parts := strings.Split(response, "```")
		if len(parts) >= 2 {
			response = parts[1]
		}
	}
	return strings.TrimSpace(response)
}
