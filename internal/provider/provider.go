// Package provider wraps the Gemini API behind a small client interface:
// plain completion, search-grounded completion with citations, legacy
// web search, and chunk reranking.
package provider

import (
	"context"

	"github.com/researchd/researchd/internal/chunker"
)

// Citation is a grounded web source attached to a completion.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SearchResult is one document returned by the legacy search path.
type SearchResult struct {
	URL      string            `json:"url"`
	Text     string            `json:"text"`
	Title    string            `json:"title"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Request carries one completion call. Zero-valued fields fall back to
// the client's configured defaults.
type Request struct {
	Prompt          string
	SystemPrompt    string
	Temperature     *float64
	MaxOutputTokens int
}

// Client is the model-provider surface the pipeline depends on.
type Client interface {
	// Complete returns the model's text for the request.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteWithSearch answers with web grounding enabled and returns
	// the citations extracted from the grounding metadata.
	CompleteWithSearch(ctx context.Context, req Request) (string, []Citation, error)

	// Search returns up to topK web documents for the query.
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)

	// RerankChunks scores each chunk's relevance to the query and
	// returns the topK chunks ordered by descending score.
	RerankChunks(ctx context.Context, query string, chunks []chunker.Chunk, topK int) ([]chunker.Chunk, error)
}
