// Package config provides configuration management for the application.
// It supports YAML configuration files with environment variable overrides.
package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/researchd/researchd/consts"
	"github.com/researchd/researchd/internal/chunker"
	"github.com/researchd/researchd/pkg/logger"
	"github.com/researchd/researchd/pkg/telemetry"
)

// Default configuration values
const (
	// DefaultModel is used when no model is configured
	DefaultModel = "gemini-flash-latest"

	defaultProviderTimeout    = 120
	defaultProviderMaxRetries = 3
	defaultTemperature        = 0.7
	defaultMaxOutputTokens    = 8192

	defaultMaxIterations       = 1 // grounded retrieval
	defaultLegacyMaxIterations = 3 // search->chunk->rerank retrieval
	defaultNumVariants         = 2
	defaultEvolutionSteps      = 1
	defaultTopK                = 5
	defaultSearchTopK          = 50

	defaultChunkMaxTokens = 500
	defaultChunkOverlap   = 50
	defaultChunkMinTokens = 500

	defaultMinWordCount     = 300
	defaultTargetWordCount  = 350
	defaultMaxRedundancy    = 0.70
	defaultWordsPerCitation = 150
	defaultMaxAttempts      = 2

	defaultWindowSize         = 5
	defaultContextTokenBudget = 8000
	defaultCompressionTokens  = 200
	defaultHighlightsMaxChars = 2000

	defaultOTLPEndpoint = "localhost:4317"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Provider  ProviderConfig   `yaml:"provider"`
	Research  ResearchConfig   `yaml:"research"`
	Report    ReportConfig     `yaml:"report"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"` // Allowed CORS origins whitelist
}

// ProviderConfig holds model provider configuration
type ProviderConfig struct {
	APIKey          string  `yaml:"api_key"`           // Gemini API key (required; GEMINI_API_KEY overrides)
	Model           string  `yaml:"model"`             // Model identifier (GEMINI_MODEL overrides)
	Timeout         int     `yaml:"timeout"`           // Per-call timeout in seconds
	MaxRetries      int     `yaml:"max_retries"`       // Maximum attempts per provider call
	Temperature     float64 `yaml:"temperature"`       // Default sampling temperature
	MaxOutputTokens int     `yaml:"max_output_tokens"` // Default output token ceiling
}

// ResearchConfig holds research loop configuration
type ResearchConfig struct {
	MaxIterations   int            `yaml:"max_iterations"`   // Denoising iterations (default 1 grounded, 3 legacy)
	NumVariants     int            `yaml:"num_variants"`     // Self-evolve variant count
	EvolutionSteps  int            `yaml:"evolution_steps"`  // Self-evolve critique rounds
	LegacyRetrieval bool           `yaml:"legacy_retrieval"` // Use search->chunk->rerank instead of grounded generation
	TopK            int            `yaml:"top_k"`            // Chunks kept after reranking (legacy mode)
	SearchTopK      int            `yaml:"search_top_k"`     // Search results fetched before chunking (legacy mode)
	Chunk           chunker.Config `yaml:"chunk"`
}

// ReportConfig holds structured report generation configuration
type ReportConfig struct {
	Structured bool          `yaml:"structured"` // Structured multi-chapter report (false = legacy single-shot)
	Quality    QualityConfig `yaml:"quality"`
	Context    ContextConfig `yaml:"context"`
}

// QualityConfig holds section quality thresholds.
// The defaults mirror the documented targets: 300-word minimum depth,
// one citation per 150 words, and a 70% redundancy ceiling.
type QualityConfig struct {
	MinWordCount     int     `yaml:"min_word_count"`     // Depth threshold
	TargetWordCount  int     `yaml:"target_word_count"`  // Depth target (denominator for depth score)
	MaxRedundancy    float64 `yaml:"max_redundancy"`     // Jaccard overlap ceiling with previous sections
	WordsPerCitation int     `yaml:"words_per_citation"` // One citation expected per this many words
	MaxAttempts      int     `yaml:"max_attempts"`       // Generation attempts before accepting with warnings
}

// ContextConfig holds context window management parameters
type ContextConfig struct {
	WindowSize         int `yaml:"window_size"`          // Recent sections kept in full detail
	TokenBudget        int `yaml:"token_budget"`         // Soft context token budget
	CompressionTokens  int `yaml:"compression_tokens"`   // Target tokens per compressed section summary
	HighlightsMaxChars int `yaml:"highlights_max_chars"` // Research highlights truncation length
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:  "0.0.0.0",
			Port:  8080,
			Debug: false,
			CORSOrigins: []string{
				"http://localhost:3000",
			},
		},
		Provider: ProviderConfig{
			APIKey:          "", // Must come from config file or GEMINI_API_KEY
			Model:           DefaultModel,
			Timeout:         defaultProviderTimeout,
			MaxRetries:      defaultProviderMaxRetries,
			Temperature:     defaultTemperature,
			MaxOutputTokens: defaultMaxOutputTokens,
		},
		Research: ResearchConfig{
			MaxIterations:   defaultMaxIterations,
			NumVariants:     defaultNumVariants,
			EvolutionSteps:  defaultEvolutionSteps,
			LegacyRetrieval: false,
			TopK:            defaultTopK,
			SearchTopK:      defaultSearchTopK,
			Chunk: chunker.Config{
				MaxTokens: defaultChunkMaxTokens,
				Overlap:   defaultChunkOverlap,
				MinTokens: defaultChunkMinTokens,
			},
		},
		Report: ReportConfig{
			Structured: true,
			Quality: QualityConfig{
				MinWordCount:     defaultMinWordCount,
				TargetWordCount:  defaultTargetWordCount,
				MaxRedundancy:    defaultMaxRedundancy,
				WordsPerCitation: defaultWordsPerCitation,
				MaxAttempts:      defaultMaxAttempts,
			},
			Context: ContextConfig{
				WindowSize:         defaultWindowSize,
				TokenBudget:        defaultContextTokenBudget,
				CompressionTokens:  defaultCompressionTokens,
				HighlightsMaxChars: defaultHighlightsMaxChars,
			},
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text", // Default to human-readable text format instead of JSON
			File:       "",
			MaxSize:    100, // Max 100MB per log file
			MaxAge:     7,   // Retain logs for 7 days
			MaxBackups: 5,   // Keep 5 backup files
			Compress:   false,
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Enabled:  false,
				Endpoint: defaultOTLPEndpoint,
				Insecure: true,
			},
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion.
// A missing file is not an error: defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			// Expand environment variables in the configuration
			expanded := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies well-known environment variables on top of the
// file configuration. GEMINI_API_KEY and GEMINI_MODEL take precedence over
// the YAML values so deployments can keep credentials out of config files.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if port := os.Getenv("RESEARCHD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// Only matches ${VAR_NAME} format (not $VAR_NAME) to avoid conflicts with
// literal dollar signs in prompt or URL values.
func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := match[2 : len(match)-1]

		// Support default values: ${VAR_NAME:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]

		if value := os.Getenv(varName); value != "" {
			return value
		}

		// Return default value if provided
		if len(parts) > 1 {
			return parts[1]
		}

		return ""
	})
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
