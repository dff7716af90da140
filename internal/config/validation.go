package config

import (
	"github.com/researchd/researchd/pkg/errors"
)

// Validate checks the configuration for startup-blocking problems and
// normalizes values that have sane fallbacks.
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		return errors.New(errors.ErrCodeConfigInvalid,
			"provider api key is required: set provider.api_key or the GEMINI_API_KEY environment variable")
	}

	if c.Provider.Model == "" {
		c.Provider.Model = DefaultModel
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = defaultProviderTimeout
	}
	if c.Provider.MaxRetries <= 0 {
		c.Provider.MaxRetries = defaultProviderMaxRetries
	}
	if c.Provider.MaxOutputTokens <= 0 {
		c.Provider.MaxOutputTokens = defaultMaxOutputTokens
	}

	if c.Research.MaxIterations < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "research.max_iterations must not be negative")
	}
	if c.Research.MaxIterations == 0 {
		// Legacy retrieval produces weaker evidence per pass and needs
		// more denoising rounds than grounded generation.
		if c.Research.LegacyRetrieval {
			c.Research.MaxIterations = defaultLegacyMaxIterations
		} else {
			c.Research.MaxIterations = defaultMaxIterations
		}
	}
	if c.Research.NumVariants <= 0 {
		c.Research.NumVariants = defaultNumVariants
	}
	if c.Research.EvolutionSteps < 0 {
		c.Research.EvolutionSteps = defaultEvolutionSteps
	}
	if c.Research.TopK <= 0 {
		c.Research.TopK = defaultTopK
	}
	if c.Research.SearchTopK <= 0 {
		c.Research.SearchTopK = defaultSearchTopK
	}
	if c.Research.Chunk.MaxTokens <= 0 {
		c.Research.Chunk.MaxTokens = defaultChunkMaxTokens
	}
	if c.Research.Chunk.Overlap < 0 {
		c.Research.Chunk.Overlap = defaultChunkOverlap
	}
	if c.Research.Chunk.MinTokens <= 0 {
		c.Research.Chunk.MinTokens = defaultChunkMinTokens
	}

	q := &c.Report.Quality
	if q.MinWordCount <= 0 {
		q.MinWordCount = defaultMinWordCount
	}
	if q.TargetWordCount <= 0 {
		q.TargetWordCount = defaultTargetWordCount
	}
	if q.MaxRedundancy <= 0 || q.MaxRedundancy > 1 {
		q.MaxRedundancy = defaultMaxRedundancy
	}
	if q.WordsPerCitation <= 0 {
		q.WordsPerCitation = defaultWordsPerCitation
	}
	if q.MaxAttempts <= 0 {
		q.MaxAttempts = defaultMaxAttempts
	}

	ctx := &c.Report.Context
	if ctx.WindowSize <= 0 {
		ctx.WindowSize = defaultWindowSize
	}
	if ctx.TokenBudget <= 0 {
		ctx.TokenBudget = defaultContextTokenBudget
	}
	if ctx.CompressionTokens <= 0 {
		ctx.CompressionTokens = defaultCompressionTokens
	}
	if ctx.HighlightsMaxChars <= 0 {
		ctx.HighlightsMaxChars = defaultHighlightsMaxChars
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New(errors.ErrCodeConfigInvalid, "server.port must be between 1 and 65535")
	}

	return nil
}
