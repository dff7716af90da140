// Package retriever turns a search query into grounded research
// material. The grounded path asks the model to answer with web search
// enabled; the legacy path searches, chunks, and reranks documents.
package retriever

import (
	"context"

	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/chunker"
	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/prompt"
	"github.com/researchd/researchd/internal/provider"
	"github.com/researchd/researchd/pkg/logger"
)

// GroundedAnswer is the result of a search-grounded retrieval: a
// synthesized answer plus the web sources backing it.
type GroundedAnswer struct {
	Answer    string             `json:"answer"`
	Citations []provider.Citation `json:"citations"`
}

// Retriever fetches research material for pipeline queries.
type Retriever struct {
	client     provider.Client
	chunker    *chunker.Chunker
	topK       int
	searchTopK int
}

// New builds a Retriever from research config.
func New(client provider.Client, cfg config.ResearchConfig) *Retriever {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	searchTopK := cfg.SearchTopK
	if searchTopK <= 0 {
		searchTopK = 50
	}
	return &Retriever{
		client:     client,
		chunker:    chunker.New(cfg.Chunk),
		topK:       topK,
		searchTopK: searchTopK,
	}
}

// RetrieveGrounded answers the query with web grounding. An optional
// context prompt (e.g. the research plan so far) is prepended to the
// query.
func (r *Retriever) RetrieveGrounded(ctx context.Context, query, contextPrompt string) (*GroundedAnswer, error) {
	p := query
	if contextPrompt != "" {
		p = contextPrompt + "\n\n" + query
	}
	answer, citations, err := r.client.CompleteWithSearch(ctx, provider.Request{
		Prompt:       p,
		SystemPrompt: prompt.SystemGroundedAnalyst,
	})
	if err != nil {
		return nil, err
	}
	return &GroundedAnswer{Answer: answer, Citations: citations}, nil
}

// RetrieveChunks runs the legacy search→chunk→rerank path. It never
// fails: rerank errors fall back to unranked order, and outer failures
// return an empty slice so the pipeline can continue on model
// knowledge alone.
func (r *Retriever) RetrieveChunks(ctx context.Context, query string) []chunker.Chunk {
	results, err := r.client.Search(ctx, query, r.searchTopK)
	if err != nil {
		logger.Warn("document search failed, continuing without retrieval",
			zap.String("query", query),
			zap.Error(err))
		return []chunker.Chunk{}
	}

	var chunks []chunker.Chunk
	for _, doc := range results {
		docID := doc.URL
		if docID == "" {
			docID = "doc"
		}
		chunks = append(chunks, r.chunker.ChunkDocument(doc.Text, docID, doc.URL)...)
	}
	if len(chunks) == 0 {
		return []chunker.Chunk{}
	}

	ranked, err := r.client.RerankChunks(ctx, query, chunks, r.topK)
	if err != nil {
		logger.Warn("rerank failed, returning unranked chunks",
			zap.String("query", query),
			zap.Error(err))
		if len(chunks) > r.topK {
			return chunks[:r.topK]
		}
		return chunks
	}
	return ranked
}
