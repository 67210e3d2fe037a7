// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-graph/internal/analyze"
	"github.com/pdiddy/paper-graph/internal/discover"
	"github.com/pdiddy/paper-graph/internal/export"
	"github.com/pdiddy/paper-graph/internal/mapper"
	"github.com/pdiddy/paper-graph/internal/tavily"
	"github.com/pdiddy/paper-graph/pkg/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [topic]",
	Short: "Discover research papers and build a knowledge graph",
	Long: `Discover searches for research papers on a topic, extracts their
metadata, and ranks them by credibility.

With --analyze, a language model infers typed relationships between the
papers (Cites, Builds_Upon, Validates, ...). With --map, discovery also
traverses academic domains breadth-first for papers a plain search
misses, with a minimum-paper floor met by broadened queries, never by
fabricated entries. When the model is unreachable the graph falls back
to metadata similarity and says so.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().Int("max-results", 10, "maximum number of papers in basic mode")
	discoverCmd.Flags().Bool("analyze", false, "infer relationships between papers")
	discoverCmd.Flags().Bool("map", false, "enhanced discovery across academic domains")
	discoverCmd.Flags().Bool("json", false, "output the response as JSON")
	discoverCmd.Flags().Bool("export", false, "write the run to the output directory (YAML, JSON, SQLite)")
	discoverCmd.Flags().String("output-dir", "output", "directory for exported runs")
	discoverCmd.Flags().String("model", "", "AI model identifier for analysis")
	discoverCmd.Flags().Duration("timeout", 5*time.Minute, "overall request deadline")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	mapping, _ := cmd.Flags().GetBool("map")
	analyzeFlag, _ := cmd.Flags().GetBool("analyze")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	exportFlag, _ := cmd.Flags().GetBool("export")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	engine, err := buildEngine(ctx, cmd, analyzeFlag || mapping)
	if err != nil {
		return err
	}

	switch {
	case mapping:
		resp, err := engine.DiscoverWithMapping(ctx, topic)
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := discover.FormatJSON(resp, os.Stdout); err != nil {
				return err
			}
		} else {
			discover.FormatTable(resp.Papers, os.Stdout)
			discover.FormatMappingStats(resp, os.Stdout)
		}
		if exportFlag {
			return exportRun(cmd, resp)
		}
		return nil

	case analyzeFlag:
		resp, err := engine.DiscoverWithAnalysis(ctx, topic)
		if err != nil {
			return err
		}
		if jsonOutput {
			return discover.FormatJSON(resp, os.Stdout)
		}
		discover.FormatTable(resp.Papers, os.Stdout)
		fmt.Fprintf(os.Stdout, "\n%d nodes, %d edges", len(resp.GraphData.Nodes), len(resp.GraphData.Edges))
		if resp.AnalysisUnavailable {
			fmt.Fprint(os.Stdout, " (analysis unavailable, similarity edges)")
		}
		fmt.Fprintln(os.Stdout)
		return nil

	default:
		resp, err := engine.Discover(ctx, topic)
		if err != nil {
			return err
		}
		if jsonOutput {
			return discover.FormatJSON(resp, os.Stdout)
		}
		discover.FormatTable(resp.Papers, os.Stdout)
		return nil
	}
}

// buildEngine assembles the pipeline from config, flags, and secrets.
func buildEngine(ctx context.Context, cmd *cobra.Command, withAnalysis bool) (*discover.Engine, error) {
	cfg := pipelineConfig(cmd)

	if cfg.Discovery.TavilyAPIKey == "" {
		return nil, fmt.Errorf("no Tavily API key: set .secrets/tavily-api-key or TAVILY_API_KEY")
	}

	timeout := cfg.Discovery.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &tavily.Client{
		HTTPClient: &http.Client{Timeout: timeout},
		APIKey:     cfg.Discovery.TavilyAPIKey,
		UserAgent:  cfg.Discovery.UserAgent,
	}

	engine := &discover.Engine{
		Search: &discover.TavilySearch{Client: client},
		Source: &discover.TavilySource{
			Client: client,
			Bounds: mapper.Bounds{
				MaxDepth:   cfg.Mapping.MaxDepth,
				MaxBreadth: cfg.Mapping.MaxBreadth,
				VisitLimit: cfg.Mapping.VisitLimit,
			},
		},
		Config: cfg,
		W:      os.Stderr,
	}

	// Analysis degrades rather than fails: no key means no backend,
	// and the graph falls back to metadata similarity.
	if withAnalysis {
		if cfg.Analysis.APIKey == "" {
			fmt.Fprintln(os.Stderr, "warning: no Google API key, analysis will be unavailable")
		} else {
			backend, err := analyze.NewGeminiBackend(ctx, cfg.Analysis.APIKey, cfg.Analysis.Model)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not create analysis backend: %v\n", err)
			} else {
				engine.Analyzer = &analyze.Analyzer{
					Backend:     backend,
					BatchSize:   cfg.Analysis.BatchSize,
					Concurrency: cfg.Analysis.BatchConcurrency,
					MaxRetries:  cfg.Analysis.MaxRetries,
					W:           os.Stderr,
				}
			}
		}
	}

	return engine, nil
}

// pipelineConfig merges viper config, flags, and secrets. Flags win
// over the config file; secrets fill whatever is still empty.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	var cfg types.PipelineConfig

	cfg.Discovery.MaxResults = viper.GetInt("discovery.max_results")
	if cmd.Flags().Changed("max-results") {
		cfg.Discovery.MaxResults, _ = cmd.Flags().GetInt("max-results")
	}
	cfg.Discovery.MinPapers = viper.GetInt("discovery.min_papers")
	cfg.Discovery.MaxFloorAttempts = viper.GetInt("discovery.max_floor_attempts")
	cfg.Discovery.BroadenSuffixes = viper.GetStringSlice("discovery.broaden_suffixes")
	cfg.Discovery.AcademicDomains = viper.GetStringSlice("discovery.academic_domains")
	cfg.Discovery.DomainConcurrency = viper.GetInt("discovery.domain_concurrency")
	cfg.Discovery.SeedPapers = viper.GetInt("discovery.seed_papers")
	cfg.Discovery.Timeout = viper.GetDuration("discovery.timeout")
	cfg.Discovery.UserAgent = viper.GetString("discovery.user_agent")
	cfg.Discovery.TavilyAPIKey = secretDefault("tavily-api-key", viper.GetString("discovery.tavily_api_key"))

	cfg.Mapping.MaxDepth = viper.GetInt("mapping.max_depth")
	cfg.Mapping.MaxBreadth = viper.GetInt("mapping.max_breadth")
	cfg.Mapping.VisitLimit = viper.GetInt("mapping.visit_limit")

	cfg.Analysis.Model = viper.GetString("analysis.model")
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Analysis.Model = model
	}
	cfg.Analysis.APIKey = secretDefault("google-api-key", viper.GetString("analysis.api_key"))
	cfg.Analysis.MaxRetries = viper.GetInt("analysis.max_retries")
	cfg.Analysis.BatchSize = viper.GetInt("analysis.batch_size")
	cfg.Analysis.BatchConcurrency = viper.GetInt("analysis.batch_concurrency")

	cfg.Graph.RelevanceThreshold = viper.GetFloat64("graph.relevance_threshold")
	cfg.Graph.MappingRelevanceThreshold = viper.GetFloat64("graph.mapping_relevance_threshold")
	cfg.Graph.SimilarityThreshold = viper.GetFloat64("graph.similarity_threshold")

	cfg.Export.OutputDir = viper.GetString("export.output_dir")

	return cfg
}

func exportRun(cmd *cobra.Command, resp *types.MappingResponse) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	if !cmd.Flags().Changed("output-dir") {
		if dir := viper.GetString("export.output_dir"); dir != "" {
			outputDir = dir
		}
	}

	yamlPath, err := export.WriteYAML(outputDir, resp)
	if err != nil {
		return err
	}
	jsonPath, err := export.WriteJSON(outputDir, resp)
	if err != nil {
		return err
	}
	dbPath, err := export.WriteSQLite(outputDir, resp)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported run to %s, %s and %s\n", yamlPath, jsonPath, dbPath)
	return nil
}
