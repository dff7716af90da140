package provider

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/researchd/researchd/internal/chunker"
	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/prompt"
	"github.com/researchd/researchd/pkg/errors"
	"github.com/researchd/researchd/pkg/logger"
	"github.com/researchd/researchd/pkg/telemetry"
)

const (
	// Output cap for search-grounded answers.
	searchMaxOutputTokens = 2048

	// Chunk text is truncated to this many characters for scoring.
	rerankChunkChars = 1000
)

// Gemini implements Client against the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    config.ProviderConfig
	sleep  sleepFunc
}

// NewGemini builds a Gemini client from provider config.
func NewGemini(ctx context.Context, cfg config.ProviderConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "provider API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFatal, "create provider client", err)
	}
	return &Gemini{client: client, cfg: cfg, sleep: sleepContext}, nil
}

func (g *Gemini) timeout() time.Duration {
	if g.cfg.Timeout <= 0 {
		return 120 * time.Second
	}
	return time.Duration(g.cfg.Timeout) * time.Second
}

// contents prepends the system prompt to the user prompt. The API also
// accepts a dedicated system instruction; keeping both in one turn
// matches how prompts were tuned.
func contents(req Request) []*genai.Content {
	text := req.Prompt
	if req.SystemPrompt != "" {
		text = req.SystemPrompt + "\n\n" + req.Prompt
	}
	return genai.Text(text)
}

func (g *Gemini) genConfig(req Request, tools []*genai.Tool) *genai.GenerateContentConfig {
	temperature := g.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = g.cfg.MaxOutputTokens
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(maxTokens),
		Tools:           tools,
	}
}

func (g *Gemini) generate(ctx context.Context, op string, req Request, tools []*genai.Tool) (*genai.GenerateContentResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "provider."+op)
	defer span.End()
	telemetry.SetSpanAttributes(span, telemetry.AttrProviderModel.String(g.cfg.Model))

	var resp *genai.GenerateContentResponse
	attempt := 0
	err := withRetry(ctx, op, g.cfg.MaxRetries, g.sleep, func() error {
		attempt++
		span.SetAttributes(telemetry.AttrProviderAttempt.Int(attempt))

		callCtx, cancel := context.WithTimeout(ctx, g.timeout())
		defer cancel()

		r, callErr := g.client.Models.GenerateContent(callCtx, g.cfg.Model, contents(req), g.genConfig(req, tools))
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		telemetry.SetSpanError(span, err)
		return nil, err
	}
	if resp == nil || resp.Text() == "" {
		err := errors.New(errors.ErrCodeProviderEmpty, fmt.Sprintf("%s returned an empty response", op))
		telemetry.SetSpanError(span, err)
		return nil, err
	}
	telemetry.SetSpanOK(span)
	return resp, nil
}

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := g.generate(ctx, "complete", req, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// CompleteWithSearch implements Client. Grounding runs through the
// GoogleSearch tool; citations come from the response grounding
// metadata.
func (g *Gemini) CompleteWithSearch(ctx context.Context, req Request) (string, []Citation, error) {
	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = searchMaxOutputTokens
	}
	tools := []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	resp, err := g.generate(ctx, "complete_with_search", req, tools)
	if err != nil {
		return "", nil, err
	}
	return resp.Text(), extractCitations(resp), nil
}

func extractCitations(resp *genai.GenerateContentResponse) []Citation {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var citations []Citation
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		citations = append(citations, Citation{URL: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return citations
}

// Search implements Client: a grounded call whose citations become the
// result documents. Text carries the source title; the synthesized
// answer itself flows through the retriever's chunking stage.
func (g *Gemini) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	_, citations, err := g.CompleteWithSearch(ctx, Request{
		Prompt:       query,
		SystemPrompt: prompt.SystemGroundedAnalyst,
	})
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(citations))
	for i, c := range citations {
		if topK > 0 && i >= topK {
			break
		}
		results = append(results, SearchResult{
			URL:   c.URL,
			Text:  c.Title,
			Title: c.Title,
			Metadata: map[string]string{
				"source": "google_search",
				"rank":   strconv.Itoa(i + 1),
			},
		})
	}
	return results, nil
}

var leadingNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parseRelevanceScore pulls the first number out of a scoring response
// and normalizes it from a 0-10 scale to [0, 1]. Unparseable responses
// score zero.
func parseRelevanceScore(text string) float64 {
	m := leadingNumberRe.FindString(text)
	if m == "" {
		return 0.0
	}
	score, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0.0
	}
	score /= 10.0
	if score < 0 {
		return 0.0
	}
	if score > 1 {
		return 1.0
	}
	return score
}

// RerankChunks implements Client. Each chunk is scored 0-10 by the
// model at temperature zero; failures score 0 rather than aborting the
// pass.
func (g *Gemini) RerankChunks(ctx context.Context, query string, chunks []chunker.Chunk, topK int) ([]chunker.Chunk, error) {
	zero := 0.0
	scored := make([]chunker.Chunk, len(chunks))
	for i, ch := range chunks {
		text := ch.Text
		if len(text) > rerankChunkChars {
			text = text[:rerankChunkChars]
		}
		resp, err := g.Complete(ctx, Request{
			Prompt: prompt.Render(prompt.RerankScoringPrompt, map[string]string{
				"query": query,
				"chunk": text,
			}),
			SystemPrompt:    prompt.SystemRelevanceScorer,
			Temperature:     &zero,
			MaxOutputTokens: 10,
		})
		score := 0.0
		if err != nil {
			logger.Warn("chunk scoring failed",
				zap.String("chunk_id", ch.ChunkID),
				zap.Error(err))
		} else {
			score = parseRelevanceScore(resp)
		}
		ch.RerankScore = score
		scored[i] = ch
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
