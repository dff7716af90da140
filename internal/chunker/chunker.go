// Package chunker splits retrieved documents into token-bounded chunks
// suitable for relevance reranking.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// TokenEstimator converts text to an approximate token count.
type TokenEstimator func(text string) int

// EstimateTokens is the default estimator: one token per four characters.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Chunk is one token-bounded slice of a source document.
type Chunk struct {
	ChunkID       string  `json:"chunk_id"`
	Text          string  `json:"text"`
	TokenCount    int     `json:"token_count"`
	CharStart     int     `json:"char_start"`
	CharEnd       int     `json:"char_end"`
	SentenceCount int     `json:"sentence_count"`
	DocID         string  `json:"doc_id"`
	URL           string  `json:"url"`
	RerankScore   float64 `json:"rerank_score,omitempty"`
}

// Config controls chunk sizing. Zero values fall back to defaults.
type Config struct {
	MaxTokens int `yaml:"max_tokens"`
	Overlap   int `yaml:"overlap"`
	MinTokens int `yaml:"min_tokens"`
}

const (
	DefaultMaxTokens = 500
	DefaultOverlap   = 50
	DefaultMinTokens = 500
)

// Chunker packs cleaned sentences into overlapping chunks.
type Chunker struct {
	maxTokens int
	overlap   int
	minTokens int
	estimate  TokenEstimator
}

// New returns a Chunker with the given sizing config and the default
// token estimator.
func New(cfg Config) *Chunker {
	return NewWithEstimator(cfg, EstimateTokens)
}

// NewWithEstimator returns a Chunker using a custom token estimator.
func NewWithEstimator(cfg Config, estimate TokenEstimator) *Chunker {
	c := &Chunker{
		maxTokens: cfg.MaxTokens,
		overlap:   cfg.Overlap,
		minTokens: cfg.MinTokens,
		estimate:  estimate,
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.overlap < 0 {
		c.overlap = DefaultOverlap
	}
	if c.minTokens <= 0 {
		c.minTokens = DefaultMinTokens
	}
	if c.estimate == nil {
		c.estimate = EstimateTokens
	}
	return c
}

var (
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)

	abbrevTail    = regexp.MustCompile(`\w\.\w.$`)
	honorificTail = regexp.MustCompile(`[A-Z][a-z]\.$`)
)

// Clean normalizes whitespace: runs of spaces and tabs collapse to one
// space, three or more newlines collapse to two, and each line plus the
// whole text is trimmed.
func Clean(text string) string {
	s := spaceRun.ReplaceAllString(text, " ")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SplitSentences breaks text on sentence-ending punctuation followed by
// whitespace, skipping dotted abbreviations ("e.g.") and honorifics
// ("Dr.").
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		r := runes[i]
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		next := runes[i+1]
		if next != ' ' && next != '\t' && next != '\n' {
			continue
		}
		head := string(runes[:i+1])
		if r == '.' && (abbrevTail.MatchString(head) || honorificTail.MatchString(head)) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

type pendingSentence struct {
	text   string
	tokens int
	start  int
	end    int
}

// ChunkDocument cleans text and greedily packs its sentences into chunks
// of at most the configured token count, carrying an overlap suffix of
// sentences into each subsequent chunk. A final chunk below the minimum
// token count is merged into the previous one.
func (c *Chunker) ChunkDocument(text, docID, url string) []Chunk {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}

	sentences := SplitSentences(cleaned)
	pending := make([]pendingSentence, 0, len(sentences))
	pos := 0
	for _, s := range sentences {
		pending = append(pending, pendingSentence{
			text:   s,
			tokens: c.estimate(s),
			start:  pos,
			end:    pos + len(s),
		})
		pos += len(s) + 1
	}

	var chunks []Chunk
	var current []pendingSentence
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, c.buildChunk(current, docID, url, len(chunks)))
		// Seed the next chunk with a token-bounded suffix of the one
		// just emitted.
		var carry []pendingSentence
		carryTokens := 0
		for i := len(current) - 1; i >= 0; i-- {
			if carryTokens+current[i].tokens > c.overlap {
				break
			}
			carryTokens += current[i].tokens
			carry = append([]pendingSentence{current[i]}, carry...)
		}
		current = carry
		currentTokens = carryTokens
	}

	for _, s := range pending {
		if currentTokens+s.tokens > c.maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, s)
		currentTokens += s.tokens
	}

	if len(current) > 0 {
		last := c.buildChunk(current, docID, url, len(chunks))
		if last.TokenCount < c.minTokens && len(chunks) > 0 {
			prev := &chunks[len(chunks)-1]
			prev.Text = prev.Text + " " + last.Text
			prev.TokenCount = c.estimate(prev.Text)
			prev.SentenceCount += last.SentenceCount
			if last.CharEnd > prev.CharEnd {
				prev.CharEnd = last.CharEnd
			}
		} else {
			chunks = append(chunks, last)
		}
	}

	return chunks
}

func (c *Chunker) buildChunk(sentences []pendingSentence, docID, url string, index int) Chunk {
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.text
	}
	text := strings.Join(parts, " ")
	return Chunk{
		ChunkID:       fmt.Sprintf("%s_chunk_%d", docID, index),
		Text:          text,
		TokenCount:    c.estimate(text),
		CharStart:     sentences[0].start,
		CharEnd:       sentences[len(sentences)-1].end,
		SentenceCount: len(sentences),
		DocID:         docID,
		URL:           url,
	}
}
