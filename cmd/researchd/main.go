// Package main is the entry point for the researchd application.
// Researchd is a deep-research orchestrator: it turns a natural-language
// question into a long, citation-bearing research report by iteratively
// denoising a draft with web-grounded retrieval.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/researchd/researchd/consts"
	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/pipeline"
	"github.com/researchd/researchd/internal/provider"
	"github.com/researchd/researchd/internal/server"
	"github.com/researchd/researchd/internal/stream"
	"github.com/researchd/researchd/pkg/logger"
	"github.com/researchd/researchd/pkg/telemetry"
)

// Build information - set via ldflags during build
// These variables are linked to consts package for global access
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// init synchronizes build info to consts package for global access
func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// configPath holds the path to the configuration file
var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "researchd",
	Short: "Researchd - Deep Research Report Orchestrator",
	Long: `Researchd coordinates an LLM provider and web-grounded retrieval to
produce long, multi-chapter, citation-bearing research reports through
test-time iterative draft denoising.`,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the researchd HTTP server",
	Long: `Start the HTTP server exposing the research API:

  GET  /health    liveness probe
  POST /evaluate  synchronous research run
  POST /run       research run streamed as Server-Sent Events`,
	Run: runServe,
}

// researchCmd runs one research request from the terminal
var researchCmd = &cobra.Command{
	Use:   "research [question]",
	Short: "Run a single research request and print the report",
	Args:  cobra.MinimumNArgs(1),
	Run:   runResearch,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Researchd %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	// Disable auto-generated completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: config.yaml)")

	// Add commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(versionCmd)

	// Serve command flags
	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")

	// Research command flags
	researchCmd.Flags().Int("iterations", 0, "research iterations (overrides config)")
	researchCmd.Flags().Bool("verbose", false, "print intermediate progress")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads .env, the config file, and initializes logging.
func bootstrap() *config.Config {
	// Best-effort .env loading so GEMINI_API_KEY can live next to the binary
	_ = godotenv.Load()

	path := configPath
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// buildConductor wires the provider client, pipeline, and conductor.
func buildConductor(ctx context.Context, cfg *config.Config) (*stream.Conductor, error) {
	client, err := provider.NewGemini(ctx, cfg.Provider)
	if err != nil {
		return nil, err
	}
	return stream.NewConductor(pipeline.New(client, cfg)), nil
}

// runServe starts the researchd server
func runServe(cmd *cobra.Command, args []string) {
	consts.SetStartedAt(time.Now())

	cfg := bootstrap()
	defer logger.Sync()

	// Override config with command line flags
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Warn("Failed to initialize telemetry, continuing without tracing", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(ctx); err != nil {
				logger.Warn("Telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	conductor, err := buildConductor(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize provider client: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting Researchd",
		zap.String("version", Version),
		zap.String("model", cfg.Provider.Model),
	)

	srv := server.New(cfg, conductor)
	srv.SetupRoutes()
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
	srv.WaitForShutdown()
}

// runResearch executes one research request and prints the report
func runResearch(cmd *cobra.Command, args []string) {
	cfg := bootstrap()
	defer logger.Sync()

	if iterations, _ := cmd.Flags().GetInt("iterations"); iterations > 0 {
		cfg.Research.MaxIterations = iterations
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	conductor, err := buildConductor(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize provider client: %v\n", err)
		os.Exit(1)
	}

	question := strings.Join(args, " ")
	heading := color.New(color.FgCyan, color.Bold)
	step := color.New(color.FgYellow)

	heading.Printf("Researching: %s\n\n", question)

	start := time.Now()
	events := conductor.Stream(context.Background(), question)
	for update := range events {
		if update.Error != "" {
			color.Red("Research failed: %s", update.Error)
			os.Exit(1)
		}
		if update.Complete {
			heading.Println("Final report")
			fmt.Println()
			fmt.Println(update.FinalReport)
			if len(update.Citations) > 0 {
				fmt.Println()
				heading.Println("Sources")
				for _, url := range update.Citations {
					fmt.Printf("  - %s\n", url)
				}
			}
			step.Printf("\nCompleted in %s\n", time.Since(start).Round(time.Second))
			continue
		}
		if verbose && update.IntermediateSteps != "" {
			steps := strings.Split(update.IntermediateSteps, consts.IntermediateStepSeparator)
			step.Printf("  %s\n", steps[len(steps)-1])
		}
	}
}
