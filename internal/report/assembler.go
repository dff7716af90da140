package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/researchd/researchd/pkg/logger"
)

// Assembler joins generated sections into the final markdown report:
// executive summary, chapters with sections, conclusion, citations
// grouped by chapter, and a metadata footer.
type Assembler struct{}

// NewAssembler creates a report assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble renders the complete markdown report.
func (a *Assembler) Assemble(structure *Structure, sections []*GeneratedSection) string {
	logger.Info("Assembling final report",
		zap.Int("sections", len(sections)),
		zap.Int("chapters", len(structure.Chapters)))

	var sb strings.Builder

	sectionMap := make(map[string]*GeneratedSection, len(sections))
	for _, s := range sections {
		sectionMap[s.SectionID()] = s
	}

	if exec, ok := sectionMap["0.1"]; ok {
		sb.WriteString("# Executive Summary\n")
		sb.WriteString(exec.Content)
		sb.WriteString("\n\n---\n")
	}

	for _, chapter := range structure.Chapters {
		sb.WriteString(fmt.Sprintf("\n# Chapter %d: %s\n", chapter.ChapterNumber, chapter.Title))
		sb.WriteString(fmt.Sprintf("*Perspective: %s*\n", chapter.Perspective))

		for _, spec := range chapter.Sections {
			if section, ok := sectionMap[spec.FullID()]; ok {
				sb.WriteString(fmt.Sprintf("\n## %s %s\n", section.SectionID(), section.Spec.Title))
				sb.WriteString(section.Content)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n---\n")
	}

	if concl, ok := sectionMap[structure.Conclusion.FullID()]; ok {
		sb.WriteString("\n# Conclusion\n")
		sb.WriteString(concl.Content)
		sb.WriteString("\n\n---\n")
	}

	sb.WriteString(a.citationsByChapter(structure, sections))
	sb.WriteString(a.metadata(structure, sections))

	report := sb.String()
	logger.Info("Final report assembled",
		zap.Int("chars", len(report)),
		zap.Int("words", len(strings.Fields(report))))
	return report
}

// citationsByChapter renders the citations section grouped by chapter,
// deduplicated in first-seen order.
func (a *Assembler) citationsByChapter(structure *Structure, sections []*GeneratedSection) string {
	total := 0
	for _, s := range sections {
		total += len(s.CitationsUsed)
	}
	if total == 0 {
		return "\n# Citations\n\nNo citations available for this report.\n"
	}

	byChapter := make(map[int][]string)
	for _, s := range sections {
		if len(s.CitationsUsed) > 0 {
			byChapter[s.Spec.ChapterNumber] = append(byChapter[s.Spec.ChapterNumber], s.CitationsUsed...)
		}
	}

	chapterNums := make([]int, 0, len(byChapter))
	for n := range byChapter {
		chapterNums = append(chapterNums, n)
	}
	sort.Ints(chapterNums)

	var sb strings.Builder
	sb.WriteString("\n# Citations\n")
	for _, num := range chapterNums {
		switch {
		case num == 0:
			sb.WriteString("\n## Executive Summary\n")
		case num == len(structure.Chapters)+1:
			sb.WriteString("\n## Conclusion\n")
		default:
			sb.WriteString(fmt.Sprintf("\n## Chapter %d: %s\n", num, structure.Chapters[num-1].Title))
		}

		seen := make(map[string]struct{})
		for _, citation := range byChapter[num] {
			if _, ok := seen[citation]; ok {
				continue
			}
			seen[citation] = struct{}{}
			sb.WriteString(fmt.Sprintf("- [%s]\n", citation))
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// metadata renders the report statistics footer.
func (a *Assembler) metadata(structure *Structure, sections []*GeneratedSection) string {
	totalWords := 0
	totalCitations := 0
	totalSeconds := 0.0
	wordCounts := make([]float64, 0, len(sections))
	for _, s := range sections {
		totalWords += s.WordCount
		totalCitations += len(s.CitationsUsed)
		totalSeconds += s.GenerationTime.Seconds()
		wordCounts = append(wordCounts, float64(s.WordCount))
	}

	avgWords := 0.0
	if len(wordCounts) > 0 {
		avgWords, _ = stats.Mean(wordCounts)
	}
	citationDensity := 0.0
	if totalWords > 0 {
		citationDensity = float64(totalCitations) / float64(totalWords) * 150
	}

	return fmt.Sprintf(`

---

## Report Metadata

**Generated Report Statistics:**
- **Total Word Count:** %s words
- **Total Sections:** %d sections (%d chapters)
- **Total Citations:** %d sources
- **Average Section Length:** %.0f words
- **Citation Density:** %.2f citations per 150 words
- **Total Generation Time:** %.1f seconds (%.1f minutes)

**Report Structure:**
- Executive Summary: 1 section
- Main Chapters: %d chapters
- Conclusion: 1 section

*Generated by TTD-DR Structured Report Generation System*
`,
		formatThousands(totalWords), len(sections), len(structure.Chapters),
		totalCitations, avgWords, citationDensity,
		totalSeconds, totalSeconds/60,
		len(structure.Chapters))
}

// formatThousands renders an integer with comma separators.
func formatThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		sb.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}
