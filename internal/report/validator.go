package report

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/pkg/logger"
)

const minCoherenceScore = 0.8

// errorIndicators mark a section as placeholder or failed content.
var errorIndicators = []string{
	"generation failed",
	"error:",
	"[content generation failed",
	"not implemented",
	"placeholder",
}

// QualityValidator checks generated sections for depth, citation
// density, redundancy against previous sections, and coherence.
type QualityValidator struct {
	minWordCount       int
	targetWordCount    int
	maxRedundancy      float64
	minCitationDensity float64
	maxAttempts        int
}

// NewQualityValidator builds a validator from quality config.
func NewQualityValidator(cfg config.QualityConfig) *QualityValidator {
	v := &QualityValidator{
		minWordCount:    cfg.MinWordCount,
		targetWordCount: cfg.TargetWordCount,
		maxRedundancy:   cfg.MaxRedundancy,
		maxAttempts:     cfg.MaxAttempts,
	}
	if v.minWordCount <= 0 {
		v.minWordCount = 300
	}
	if v.targetWordCount <= 0 {
		v.targetWordCount = 350
	}
	if v.maxRedundancy <= 0 || v.maxRedundancy > 1 {
		v.maxRedundancy = 0.70
	}
	if v.maxAttempts <= 0 {
		v.maxAttempts = 2
	}
	wordsPerCitation := cfg.WordsPerCitation
	if wordsPerCitation <= 0 {
		wordsPerCitation = 150
	}
	v.minCitationDensity = 1.0 / float64(wordsPerCitation)
	return v
}

// MaxAttempts returns the configured generation attempt ceiling.
func (v *QualityValidator) MaxAttempts() int {
	return v.maxAttempts
}

// Validate scores a section against all quality metrics and collects
// the issues that would drive a regeneration attempt.
func (v *QualityValidator) Validate(section *GeneratedSection, previous []*GeneratedSection) *ValidationResult {
	var issues []string

	depthScore := float64(section.WordCount) / float64(v.targetWordCount)
	if section.WordCount < v.minWordCount {
		issues = append(issues, fmt.Sprintf("Insufficient depth: %d words (minimum: %d)",
			section.WordCount, v.minWordCount))
	}

	citationScore := section.CitationDensity()
	if citationScore < v.minCitationDensity {
		issues = append(issues, fmt.Sprintf("Insufficient citations: %d citations for %d words (target: ≥%.1f)",
			len(section.CitationsUsed), section.WordCount,
			v.minCitationDensity*float64(section.WordCount)))
	}

	redundancyScore := 0.0
	if len(previous) > 0 {
		redundancyScore = maxJaccardSimilarity(section, previous)
		if redundancyScore > v.maxRedundancy {
			issues = append(issues, fmt.Sprintf("High redundancy: %.0f%% similarity with previous sections (threshold: %.0f%%)",
				redundancyScore*100, v.maxRedundancy*100))
		}
	}

	coherenceScore := coherence(section)
	if coherenceScore < minCoherenceScore {
		issues = append(issues, "Poor coherence: Section appears to be placeholder or error content")
	}

	result := &ValidationResult{
		IsValid:         len(issues) == 0,
		SectionID:       section.SectionID(),
		Issues:          issues,
		DepthScore:      depthScore,
		CitationScore:   citationScore,
		RedundancyScore: redundancyScore,
		CoherenceScore:  coherenceScore,
	}

	if result.IsValid {
		logger.Info("Section passed validation",
			zap.String("section_id", result.SectionID),
			zap.Float64("depth", depthScore),
			zap.Float64("citations", citationScore),
			zap.Float64("redundancy", redundancyScore),
			zap.Float64("coherence", coherenceScore))
	} else {
		logger.Warn("Section failed validation",
			zap.String("section_id", result.SectionID),
			zap.Int("issues", len(issues)))
	}
	return result
}

// ShouldRegenerate decides whether a failed section gets another
// attempt and returns the guidance for it. Once max attempts are
// reached the section is accepted as-is.
func (v *QualityValidator) ShouldRegenerate(result *ValidationResult, attempt int) (bool, string) {
	if attempt >= v.maxAttempts {
		logger.Info("Max attempts reached, accepting section",
			zap.String("section_id", result.SectionID),
			zap.Int("max_attempts", v.maxAttempts))
		return false, ""
	}
	if result.IsValid {
		return false, ""
	}
	logger.Info("Regeneration needed",
		zap.String("section_id", result.SectionID),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", v.maxAttempts))
	return true, result.RegenerationGuidance()
}

// maxJaccardSimilarity returns the highest word-set overlap between the
// section and any previous one.
func maxJaccardSimilarity(section *GeneratedSection, previous []*GeneratedSection) float64 {
	current := wordSet(section.Content)

	maxOverlap := 0.0
	for _, prev := range previous {
		prevWords := wordSet(prev.Content)
		intersection := 0
		for w := range current {
			if _, ok := prevWords[w]; ok {
				intersection++
			}
		}
		union := len(current) + len(prevWords) - intersection
		if union > 0 {
			if sim := float64(intersection) / float64(union); sim > maxOverlap {
				maxOverlap = sim
			}
		}
	}
	return maxOverlap
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// coherence detects placeholder or malformed content: 0.0 for error
// indicators, 0.5 for text without paragraph and sentence structure,
// 1.0 otherwise.
func coherence(section *GeneratedSection) float64 {
	lower := strings.ToLower(section.Content)
	for _, indicator := range errorIndicators {
		if strings.Contains(lower, indicator) {
			return 0.0
		}
	}

	hasParagraphs := strings.Contains(section.Content, "\n\n") || strings.Contains(section.Content, "\n")
	hasSentences := strings.Contains(section.Content, ". ") || strings.Contains(section.Content, ".\n")
	if !hasParagraphs || !hasSentences {
		return 0.5
	}
	return 1.0
}
