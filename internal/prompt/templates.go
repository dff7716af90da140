package prompt

// System prompts used across the pipeline.
const (
	SystemResearchAssistant = "You are a world-class research assistant."
	SystemResearchPlanner   = "You are a strategic research planner."
	SystemResearchAnalyst   = "You are a research analyst."
	SystemGroundedAnalyst   = "You are a world-class research analyst. Provide comprehensive, well-researched answers with specific facts and details from web sources."
	SystemCriticalReviewer  = "You are a critical and constructive reviewer."
	SystemRelevanceScorer   = "You are a relevance scoring system. Provide only numeric scores."
	SystemJSONStructurer    = "You are a research report structuring expert. Output valid JSON only."
	SystemJSONPlanner       = "You are a research planning expert. Output valid JSON only."
	SystemSectionWriter     = "You are a detailed research report writer. Write comprehensive, well-cited sections."
	SystemSummaryWriter     = "You are an executive summary writer. Provide clear, high-level syntheses."
	SystemConclusionWriter  = "You are a report conclusion writer. Synthesize findings and provide forward-looking analysis."
	SystemSummarizer        = "You are a concise summarization expert. Output summaries only."
	SystemInsightExtractor  = "You are an insight extraction expert. Output numbered lists only."
)

// PlanPrompt generates the structured research plan. Placeholders: {query}.
const PlanPrompt = `
Based on the user's query, create a structured research plan.
This plan should outline the key areas, questions, and topics to investigate to provide a comprehensive answer.
The plan will serve as a scaffold for the entire research process.
Break it down into a list of concise points.

User Query: "{query}"
`

// InitialDraftPrompt generates the first noisy draft. Placeholders: {query}.
const InitialDraftPrompt = `
Based on your internal knowledge and the user's query, write a preliminary, high-level draft report.
This draft will be refined later with retrieved information. It serves as a starting point and a "noisy" skeleton.

User Query: "{query}"
`

// SearchQueryGenPrompt formulates the next search query.
// Placeholders: {query}, {plan}, {draft}, {history}.
const SearchQueryGenPrompt = `
You are a researcher in an iterative process. Your goal is to formulate the next best search query to gather information to refine an evolving research report.

**User's Original Query:**
{query}

**Overall Research Plan:**
{plan}

**Current Draft Report (State to be improved):**
{draft}

**History of Previous Searches (Queries and Answers):**
{history}

Based on all the above information, what is the single most important search query to execute right now?
The query should be concise, targeted, and aimed at filling gaps or verifying information in the current draft.
Do not ask a question that has already been answered in the history.
Output only the search query, with no preamble.
`

// AnswerSynthesisPrompt synthesizes retrieved documents into an answer.
// Placeholders: {search_query}, {documents}.
const AnswerSynthesisPrompt = `
You are a research analyst. You have been given a search query and a list of retrieved documents.
Your task is to synthesize the information from these documents to provide a direct and comprehensive answer to the search query.
Focus only on the information present in the documents. Cite which document urls are relevant.

**Search Query:**
{search_query}

**Retrieved Documents:**
{documents}

Synthesized Answer:
`

// DraftRevisionPrompt integrates new findings into the draft.
// Placeholders: {query}, {draft}, {search_query}, {new_answer}.
const DraftRevisionPrompt = `
You are refining a research report. You have a previous version of the draft and new information from a recent search.
Your task is to integrate the new information into the draft to "denoise" it, making it more accurate, detailed, and comprehensive.
You can add new sections, expand existing points, or correct inaccuracies.

**User's Original Query:**
{query}

**Previous Draft Report:**
---
{draft}
---

**Newly Synthesized Information (from query: "{search_query}"):**
---
{new_answer}
---

Produce the new, revised draft report.
`

// FinalReportPrompt writes the legacy single-shot final report.
// Placeholders: {query}, {plan}, {draft}, {history}.
const FinalReportPrompt = `
You are a research assistant tasked with writing a final, comprehensive report.
All the necessary research, including planning, iterative searching, and information synthesis, has been completed.
Use all the provided information to construct a well-structured, coherent, and detailed final report that directly addresses the user's original query.

**User's Original Query:**
{query}

**Initial Research Plan:**
{plan}

**Final Revised Draft (Skeleton for the report):**
{draft}

**Full History of Questions and Synthesized Answers:**
{history}

Now, write the final, polished report.
`

// CritiquePrompt drives one self-evolution round.
// Placeholders: {initial_prompt}, {variant}.
const CritiquePrompt = `
Critique the following text based on the original request. Provide a concise critique and a fitness score from 1 to 10.
Then, rewrite the text to address the critique.

Original Request: {initial_prompt}

Text to Critique:
---
{variant}
---

Provide your response in the following format, and nothing else:
CRITIQUE: [Your critique here]
SCORE: [Your score here]
REVISED_TEXT: [Your improved version of the text]
`

// MergePrompt merges refined variants into one final text.
// Placeholders: {initial_prompt}, {variants} (joined by "---").
const MergePrompt = `
You are given several refined texts that all attempt to answer an original request.
Synthesize them into a single, comprehensive, and superior final text.

Original Request: {initial_prompt}

Refined Texts to Merge:
---
{variants}
---

Produce the final, merged text.
`

// RerankScoringPrompt asks for a 0-10 relevance score for one chunk.
// Placeholders: {query}, {chunk}.
const RerankScoringPrompt = `
Rate the relevance of the following text chunk to the query on a scale of 0-10.

Query: {query}

Text Chunk:
{chunk}

Provide ONLY a numeric score (0-10) where:
- 0 = Completely irrelevant
- 5 = Somewhat relevant
- 10 = Highly relevant and directly answers the query

Score:`

// StructureGenerationPrompt produces the multi-chapter report outline as JSON.
// Placeholders: {query}, {plan}, {research_summary}.
const StructureGenerationPrompt = `You are a research report structuring expert. Your task is to analyze a user query and create a comprehensive report structure with multiple analytical perspectives.

**User Query:**
{query}

**Research Plan:**
{plan}

**Research Summary:**
{research_summary}

Based on the query complexity and research scope, create a structured report outline that:

1. **Executive Summary**: High-level synthesis (1 section, ~400 words)

2. **Main Chapters** (4-6 chapters):
   - Each chapter should address ONE major analytical perspective
   - Relevant perspectives: Financial/Economic, Technical/Operational, Regulatory/Legal, Strategic/Competitive, Risk/Challenge, Market/Industry
   - Choose 4-6 most relevant perspectives based on query focus

3. **Chapter Sections** (3-5 sections per chapter):
   - Each section should drill into a specific aspect within the chapter's perspective
   - Target: 300-500 words per section for detailed analysis
   - Provide clear guidance on what each section should cover

4. **Conclusion**: Forward-looking synthesis and implications (1 section, ~400 words)

**Guidelines:**
- Simple queries (single aspect): 2-3 chapters
- Moderate queries (2-3 aspects): 4-5 chapters
- Complex queries (4+ aspects): 5-7 chapters
- Each section must add unique value (no redundancy)
- Sections should build logically within chapters
- Total report target: 2,500-4,000 words

**Output Format (JSON):**
{{
  "executive_summary": {{
    "title": "Executive Summary",
    "guidance": "High-level synthesis covering all key perspectives and findings"
  }},
  "chapters": [
    {{
      "title": "Chapter Title",
      "perspective": "Primary Perspective (e.g., Financial/Economic)",
      "sections": [
        {{
          "title": "Section Title",
          "guidance": "Specific focus and key points to cover",
          "target_word_count": 350
        }}
      ]
    }}
  ],
  "conclusion": {{
    "title": "Conclusion and Implications",
    "guidance": "Forward-looking synthesis, recommendations, future outlook"
  }}
}}

Generate the report structure now.`

// PerspectiveAnalysisPrompt ranks analytical perspectives for a query as JSON.
// Placeholders: {query}.
const PerspectiveAnalysisPrompt = `Analyze the following user query and identify the most relevant analytical perspectives for a comprehensive research report.

**User Query:**
{query}

**Available Perspectives:**
- Financial/Economic: Deal structure, valuation, revenue impact, financial metrics
- Technical/Operational: Technology, implementation, operational details, capabilities
- Regulatory/Legal: Compliance, legal issues, regulatory approval, antitrust
- Strategic/Competitive: Market positioning, competitive dynamics, strategic rationale
- Risk/Challenge: Implementation risks, market risks, execution challenges
- Market/Industry: Industry trends, market landscape, broader implications

**Instructions:**
1. Identify 4-6 most relevant perspectives based on query focus
2. Rank them by importance to answering the query
3. Explain why each perspective is relevant

**Output Format (JSON):**
{{
  "perspectives": [
    {{
      "name": "Perspective Name",
      "relevance_score": 9,
      "rationale": "Why this perspective is important for this query"
    }}
  ]
}}

Generate the perspective analysis now.`

// SectionGenerationPrompt writes one report section.
// Placeholders: {section_title}, {section_id}, {chapter_title}, {perspective},
// {target_word_count}, {guidance}, {context_summary}, {research_data},
// {max_output_tokens}.
const SectionGenerationPrompt = `You are writing a specific section of a comprehensive research report.

**Current Section:** {section_title} (Section {section_id})
**Chapter:** {chapter_title}
**Perspective:** {perspective}
**Target Length:** {target_word_count} words

**Section Guidance:**
{guidance}

**Context from Previous Work:**
{context_summary}

**Research Data Available:**
{research_data}

**Instructions:**
1. Write a detailed, well-researched section of {target_word_count} words
2. Build on insights from previous sections (avoid redundancy)
3. Use inline citations in format [Source N] for all factual claims
4. Provide specific details, data, and analysis
5. Maintain coherent narrative flow with previous sections
6. Stay within {max_output_tokens} output tokens

**Write the section now:**`

// ExecutiveSummaryPrompt writes the executive summary section.
// Placeholders: {query}, {report_outline}, {research_data}.
const ExecutiveSummaryPrompt = `Write a comprehensive Executive Summary for the following research report.

**User Query:**
{query}

**Report Structure:**
{report_outline}

**Research Data:**
{research_data}

**Instructions:**
1. Provide high-level synthesis covering all major perspectives
2. Highlight 3-5 key findings across all chapters
3. Target length: 400 words
4. Include inline citations [Source N] for major claims
5. Set clear expectations for what the report covers

**Executive Summary:**`

// ConclusionPrompt writes the conclusion section.
// Placeholders: {query}, {sections_summary}.
const ConclusionPrompt = `Write a comprehensive Conclusion for the following research report.

**User Query:**
{query}

**Report Sections Summary:**
{sections_summary}

**Instructions:**
1. Synthesize findings from all previous sections
2. Provide forward-looking implications and recommendations
3. Discuss potential future developments or scenarios
4. Target length: 400 words
5. Include inline citations [Source N] where appropriate
6. End with clear takeaways

**Conclusion:**`

// CompressionPrompt compresses a finished section for context reuse.
// Placeholders: {section_title}, {section_id}, {perspective}, {word_count}, {content}.
const CompressionPrompt = `Compress the following report section into a concise summary of ≤200 tokens (~150 words).

**Section:** {section_title} ({section_id})
**Perspective:** {perspective}
**Word Count:** {word_count} words

**Full Content:**
{content}

**Instructions:**
1. Extract 3-5 key insights or findings
2. Preserve critical facts, numbers, and citations
3. Remove verbose explanations and redundant content
4. Maintain technical accuracy
5. Target length: 150 words (≤200 tokens)

**Compressed Summary:**`

// KeyInsightsExtractionPrompt extracts the top insights across sections.
// Placeholders: {sections_text}.
const KeyInsightsExtractionPrompt = `Extract the top 10 most important insights from the following report sections.

**Report Sections:**
{sections_text}

**Instructions:**
1. Identify the 10 most critical findings, facts, or insights
2. Each insight should be 1-2 sentences
3. Prioritize unique, actionable, or high-impact information
4. Avoid redundancy between insights
5. Maintain factual accuracy

**Output Format:**
1. [First key insight]
2. [Second key insight]
...
10. [Tenth key insight]

**Top 10 Key Insights:**`
