// Package report builds structured multi-chapter research reports:
// outline generation, context-aware section writing, quality
// validation, and final markdown assembly.
package report

import (
	"fmt"
	"time"
)

// SectionSpec is the plan for one section before generation.
type SectionSpec struct {
	Title           string `json:"title"`
	ChapterNumber   int    `json:"chapter_number"`
	SectionNumber   int    `json:"section_number"`
	Perspective     string `json:"perspective"`
	Guidance        string `json:"guidance"`
	TargetWordCount int    `json:"target_word_count"`
	MaxOutputTokens int    `json:"max_output_tokens"`
}

// FullID returns the section's position identifier, e.g. "2.3".
func (s SectionSpec) FullID() string {
	return fmt.Sprintf("%d.%d", s.ChapterNumber, s.SectionNumber)
}

// Chapter groups sections under one analytical perspective.
type Chapter struct {
	Title         string        `json:"title"`
	Perspective   string        `json:"perspective"`
	Sections      []SectionSpec `json:"sections"`
	ChapterNumber int           `json:"chapter_number"`
}

// TotalTargetWords sums the target word counts of the chapter's sections.
func (c Chapter) TotalTargetWords() int {
	total := 0
	for _, s := range c.Sections {
		total += s.TargetWordCount
	}
	return total
}

// Structure is the complete report outline: executive summary, main
// chapters, conclusion.
type Structure struct {
	ExecutiveSummary   SectionSpec `json:"executive_summary"`
	Chapters           []Chapter   `json:"chapters"`
	Conclusion         SectionSpec `json:"conclusion"`
	EstimatedWordCount int         `json:"estimated_word_count"`
	EstimatedSections  int         `json:"estimated_sections"`
	CreatedAt          time.Time   `json:"created_at"`
}

// TotalSections counts all sections including summary and conclusion.
func (r *Structure) TotalSections() int {
	n := 2
	for _, ch := range r.Chapters {
		n += len(ch.Sections)
	}
	return n
}

// AllSections returns every section spec in generation order.
func (r *Structure) AllSections() []SectionSpec {
	sections := []SectionSpec{r.ExecutiveSummary}
	for _, ch := range r.Chapters {
		sections = append(sections, ch.Sections...)
	}
	return append(sections, r.Conclusion)
}

// Perspective is one analytical lens ranked for relevance to a query.
type Perspective struct {
	Name           string `json:"name"`
	RelevanceScore int    `json:"relevance_score"`
	Rationale      string `json:"rationale"`
}

// GeneratedSection is a section's content plus generation metadata.
type GeneratedSection struct {
	Spec           SectionSpec   `json:"spec"`
	Content        string        `json:"content"`
	WordCount      int           `json:"word_count"`
	CitationsUsed  []string      `json:"citations_used"`
	GenerationTime time.Duration `json:"generation_time"`

	// Summary is the compressed form used as context for later sections.
	Summary string `json:"summary,omitempty"`
}

// SectionID returns the position identifier of the generated section.
func (g *GeneratedSection) SectionID() string {
	return g.Spec.FullID()
}

// CitationDensity returns citations per 150 words.
func (g *GeneratedSection) CitationDensity() float64 {
	if g.WordCount == 0 {
		return 0.0
	}
	return float64(len(g.CitationsUsed)) / float64(g.WordCount) * 150
}

// ContextSummary is the compressed context handed to each section
// generation: capped insights, recent section summaries, and research
// highlights.
type ContextSummary struct {
	KeyInsights        []string `json:"key_insights"`
	PreviousSections   []string `json:"previous_sections"`
	ResearchHighlights string   `json:"research_highlights"`
	TotalTokens        int      `json:"total_tokens"`
}

// WithinBudget reports whether the context fits the token budget.
func (c *ContextSummary) WithinBudget(budgetTokens int) bool {
	return c.TotalTokens <= budgetTokens
}

// ValidationResult captures quality checks for one generated section.
type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	SectionID       string   `json:"section_id"`
	Issues          []string `json:"issues,omitempty"`
	DepthScore      float64  `json:"depth_score"`
	CitationScore   float64  `json:"citation_score"`
	RedundancyScore float64  `json:"redundancy_score"`
	CoherenceScore  float64  `json:"coherence_score"`
}

// ShouldRegenerate reports whether a failed section gets another
// attempt.
func (v *ValidationResult) ShouldRegenerate(attempt, maxAttempts int) bool {
	if attempt >= maxAttempts {
		return false
	}
	return !v.IsValid
}

// RegenerationGuidance renders the issues as instructions for the next
// generation attempt.
func (v *ValidationResult) RegenerationGuidance() string {
	if len(v.Issues) == 0 {
		return ""
	}
	guidance := "Address the following issues in regeneration:"
	for _, issue := range v.Issues {
		guidance += "\n- " + issue
	}
	return guidance
}
