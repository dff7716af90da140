// Package pipeline runs the TTD-DR research loop: plan, initial draft,
// then iterative denoising cycles of query formulation, grounded
// retrieval, and draft revision, ending in final report generation.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/researchd/researchd/consts"
	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/evolve"
	"github.com/researchd/researchd/internal/prompt"
	"github.com/researchd/researchd/internal/provider"
	"github.com/researchd/researchd/internal/report"
	"github.com/researchd/researchd/internal/retriever"
	"github.com/researchd/researchd/pkg/errors"
	"github.com/researchd/researchd/pkg/idgen"
	"github.com/researchd/researchd/pkg/logger"
	"github.com/researchd/researchd/pkg/telemetry"
)

// firstIterationUsesRawQuery keeps iteration 0 anchored to the user's
// original question instead of a model-formulated query. The initial
// draft is still noisy at that point and tends to bias query
// formulation toward its own gaps. Replacing the initial draft with a
// cheaper planning artifact would make this unnecessary.
const firstIterationUsesRawQuery = true

const draftPreviewChars = 200

// HistoryEntry is one step in the research record. Entries with both
// Query and Answer set form the Q&A history used in later prompts;
// entries with only a Description are narrative breadcrumbs.
type HistoryEntry struct {
	Description string
	Query       string
	Answer      string
}

// ResearchState is the per-request state owned by one pipeline run.
type ResearchState struct {
	Plan      string
	Draft     string
	History   []HistoryEntry
	Citations []string
}

// Update is one progress event emitted by the pipeline. It maps
// directly onto the streaming wire shape.
type Update struct {
	IntermediateSteps string   `json:"intermediate_steps"`
	FinalReport       string   `json:"final_report"`
	IsIntermediate    bool     `json:"is_intermediate"`
	Citations         []string `json:"citations"`
	Complete          bool     `json:"complete"`
	Error             string   `json:"error,omitempty"`
}

// Sink receives pipeline updates in emission order.
type Sink func(Update)

// Pipeline coordinates one research run. The provider client is shared
// and read-only; everything else is constructed per call to Run.
type Pipeline struct {
	client        provider.Client
	evolver       *evolve.Evolver
	retriever     *retriever.Retriever
	reportEngine  *report.Engine
	maxIterations int
	legacy        bool
	structured    bool
}

// New builds a pipeline from the application configuration.
func New(client provider.Client, cfg *config.Config) *Pipeline {
	maxIterations := cfg.Research.MaxIterations
	if maxIterations < 0 {
		maxIterations = 0
	}
	return &Pipeline{
		client:        client,
		evolver:       evolve.New(client, cfg.Research),
		retriever:     retriever.New(client, cfg.Research),
		reportEngine:  report.NewEngine(client, cfg.Report),
		maxIterations: maxIterations,
		legacy:        cfg.Research.LegacyRetrieval,
		structured:    cfg.Report.Structured,
	}
}

// Run executes the full research loop for the query, emitting progress
// updates to the sink. On success the last emitted update carries the
// final report and Complete=true. Provider failures outside grounded
// retrieval abort the run; the caller is responsible for surfacing the
// returned error to the client.
func (p *Pipeline) Run(ctx context.Context, query string, sink Sink) error {
	researchID := idgen.NewResearchID()
	mode := "grounded"
	if p.legacy {
		mode = "legacy"
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.run",
		telemetry.WithResearchAttributes(researchID, query))
	defer span.End()
	telemetry.SetSpanAttributes(span, telemetry.AttrIteration.Int(p.maxIterations))

	logger.Info("research run started",
		zap.String("research_id", researchID),
		zap.String("mode", mode),
		zap.Int("max_iterations", p.maxIterations))

	metrics := telemetry.GetMetrics()
	metrics.RecordResearchStarted(ctx, mode)
	start := time.Now()
	fail := func(err error) error {
		telemetry.SetSpanError(span, err)
		metrics.RecordResearchCompleted(ctx, "failed", time.Since(start).Seconds())
		return err
	}

	state := &ResearchState{}
	send := func(step string, u Update) {
		steps := make([]string, 0, len(state.History)+1)
		for _, h := range state.History {
			steps = append(steps, h.Description)
		}
		if step != "" {
			steps = append(steps, step)
		}
		u.IntermediateSteps = strings.Join(steps, consts.IntermediateStepSeparator)
		u.IsIntermediate = !u.Complete
		sink(u)
	}

	if err := p.plan(ctx, query, state, send); err != nil {
		return fail(err)
	}
	if err := p.initialDraft(ctx, query, state, send); err != nil {
		return fail(err)
	}

	for i := 0; i < p.maxIterations; i++ {
		ictx, ispan := telemetry.StartSpan(ctx, "pipeline.iteration",
			telemetry.WithIterationAttributes(researchID, i+1))
		err := p.iterate(ictx, i, query, state, send)
		if err != nil {
			telemetry.SetSpanError(ispan, err)
			ispan.End()
			return fail(err)
		}
		ispan.End()
		metrics.RecordIteration(ctx)
	}

	final, err := p.finalReport(ctx, query, state, send)
	if err != nil {
		return fail(err)
	}

	citations := dedupeOrdered(state.Citations)
	send("Final report generated.", Update{
		FinalReport: final,
		Citations:   citations,
		Complete:    true,
	})
	telemetry.SetSpanAttributes(span, telemetry.AttrCitationCount.Int(len(citations)))
	telemetry.SetSpanOK(span)
	metrics.RecordResearchCompleted(ctx, "completed", time.Since(start).Seconds())
	return nil
}

// plan generates the research plan through self-evolution.
func (p *Pipeline) plan(ctx context.Context, query string, state *ResearchState, send func(string, Update)) error {
	send("Generating initial research plan...", Update{})

	plan, err := p.evolver.Evolve(ctx,
		prompt.Render(prompt.PlanPrompt, map[string]string{"query": query}),
		prompt.SystemResearchPlanner)
	if err != nil {
		return errors.Wrap(errors.ErrCodePipelineFailed, "research plan generation failed", err)
	}

	state.Plan = plan
	state.History = append(state.History, HistoryEntry{Description: "**Research Plan:**\n" + plan})
	send("", Update{})
	return nil
}

// initialDraft writes the noisy first draft from model knowledge alone.
func (p *Pipeline) initialDraft(ctx context.Context, query string, state *ResearchState, send func(string, Update)) error {
	send("Generating initial draft from internal knowledge...", Update{})

	draft, err := p.client.Complete(ctx, provider.Request{
		Prompt:       prompt.Render(prompt.InitialDraftPrompt, map[string]string{"query": query}),
		SystemPrompt: prompt.SystemResearchAssistant,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodePipelineFailed, "initial draft generation failed", err)
	}

	state.Draft = draft
	state.History = append(state.History, HistoryEntry{
		Description: "**Initial Draft:**\n" + truncate(draft, draftPreviewChars) + "...",
	})
	send("", Update{})
	return nil
}

// iterate runs one denoising cycle: formulate a query, retrieve and
// synthesize an answer, revise the draft. An empty formulated query
// skips the cycle; a grounded retrieval failure is recovered locally
// with a placeholder answer so the run keeps advancing.
func (p *Pipeline) iterate(ctx context.Context, i int, query string, state *ResearchState, send func(string, Update)) error {
	send(fmt.Sprintf("**Iteration %d/%d:** Generating next search query...", i+1, p.maxIterations), Update{})

	searchQuery, err := p.formulateQuery(ctx, i, query, state)
	if err != nil {
		return err
	}
	if strings.TrimSpace(searchQuery) == "" {
		logger.Warn("empty search query, skipping iteration", zap.Int("iteration", i+1))
		return nil
	}
	searchQuery = strings.TrimSpace(searchQuery)
	send("**Searching for:** `"+searchQuery+"`", Update{})

	var answer string
	var iterationCitations []string
	if p.legacy {
		answer, err = p.synthesizeFromChunks(ctx, searchQuery, state)
		if err != nil {
			return err
		}
	} else {
		grounded, gerr := p.retriever.RetrieveGrounded(ctx, searchQuery, "")
		if gerr != nil {
			logger.Warn("grounded retrieval failed, continuing with placeholder",
				zap.String("query", searchQuery),
				zap.Error(gerr))
			answer = "Unable to retrieve web information for this query: " + gerr.Error()
		} else {
			answer = grounded.Answer
			for _, c := range grounded.Citations {
				iterationCitations = append(iterationCitations, c.URL)
			}
		}
	}

	state.History = append(state.History, HistoryEntry{
		Description: "**Synthesized Answer for `" + searchQuery + "`:**\n" + answer,
		Query:       searchQuery,
		Answer:      answer,
	})
	state.Citations = append(state.Citations, iterationCitations...)
	send("", Update{Citations: iterationCitations})

	send("Revising draft with new information...", Update{})
	revised, err := p.client.Complete(ctx, provider.Request{
		Prompt: prompt.Render(prompt.DraftRevisionPrompt, map[string]string{
			"query":        query,
			"draft":        state.Draft,
			"search_query": searchQuery,
			"new_answer":   answer,
		}),
		SystemPrompt: prompt.SystemResearchAssistant,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeRevisionFailed, "draft revision failed", err)
	}
	state.Draft = revised
	state.History = append(state.History, HistoryEntry{
		Description: fmt.Sprintf("**Revised Draft %d:**\n%s...", i+1, truncate(revised, draftPreviewChars)),
	})
	send("", Update{})
	return nil
}

// formulateQuery picks the search query for an iteration.
func (p *Pipeline) formulateQuery(ctx context.Context, i int, query string, state *ResearchState) (string, error) {
	if i == 0 && firstIterationUsesRawQuery {
		return query, nil
	}
	searchQuery, err := p.client.Complete(ctx, provider.Request{
		Prompt: prompt.Render(prompt.SearchQueryGenPrompt, map[string]string{
			"query":   query,
			"plan":    state.Plan,
			"draft":   state.Draft,
			"history": qaHistory(state, "Q: %s\nA: %s", "\n"),
		}),
		SystemPrompt: prompt.SystemResearchAssistant,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeQueryGeneration, "search query generation failed", err)
	}
	return searchQuery, nil
}

// synthesizeFromChunks is the legacy retrieval path: search, chunk,
// rerank, then self-evolve an answer over the top chunks.
func (p *Pipeline) synthesizeFromChunks(ctx context.Context, searchQuery string, state *ResearchState) (string, error) {
	chunks := p.retriever.RetrieveChunks(ctx, searchQuery)

	docs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, fmt.Sprintf("ID: %s\nText: %s", c.ChunkID, c.Text))
		if c.URL != "" {
			state.Citations = append(state.Citations, c.URL)
		}
	}

	answer, err := p.evolver.Evolve(ctx,
		prompt.Render(prompt.AnswerSynthesisPrompt, map[string]string{
			"search_query": searchQuery,
			"documents":    strings.Join(docs, "\n\n"),
		}),
		prompt.SystemResearchAnalyst)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeRetrievalFailed, "answer synthesis failed", err)
	}
	return answer, nil
}

// finalReport produces the final document, structured or legacy.
func (p *Pipeline) finalReport(ctx context.Context, query string, state *ResearchState, send func(string, Update)) (string, error) {
	send("All research steps complete. Generating final report...", Update{})

	if p.structured {
		researchData := qaHistory(state, "**Question:** %s\n**Answer:** %s", "\n\n")
		return p.reportEngine.Generate(ctx, query, state.Plan, researchData, func(step string) {
			send(step, Update{})
		})
	}

	final, err := p.client.Complete(ctx, provider.Request{
		Prompt: prompt.Render(prompt.FinalReportPrompt, map[string]string{
			"query":   query,
			"plan":    state.Plan,
			"draft":   state.Draft,
			"history": qaHistory(state, "**Question:** %s\n**Answer:** %s", "\n\n"),
		}),
		SystemPrompt: prompt.SystemResearchAssistant,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodePipelineFailed, "final report generation failed", err)
	}
	return final, nil
}

// qaHistory renders the Q&A entries of the history with the given
// per-entry format and separator.
func qaHistory(state *ResearchState, entryFormat, sep string) string {
	var parts []string
	for _, h := range state.History {
		if h.Query != "" {
			parts = append(parts, fmt.Sprintf(entryFormat, h.Query, h.Answer))
		}
	}
	return strings.Join(parts, sep)
}

func dedupeOrdered(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
