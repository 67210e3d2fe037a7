package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-graph/0.1"). Per prd001-discovery R5.2.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// DiscoveryConfig holds settings for the discovery orchestrator.
// Per prd001-discovery R1.4, R5.1-R5.5.
type DiscoveryConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of papers to return (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MinPapers is the floor guarantee for enhanced discovery (default 15).
	// When the floor cannot be met the response carries a shortfall flag;
	// papers are never fabricated.
	MinPapers int `json:"min_papers" yaml:"min_papers"`

	// MaxFloorAttempts bounds the number of broadened queries issued when
	// discovery lands below MinPapers (default 3).
	MaxFloorAttempts int `json:"max_floor_attempts" yaml:"max_floor_attempts"`

	// BroadenSuffixes are appended to the topic, one per broadened
	// attempt, to relax the query (default: survey, review,
	// state of the art). The relaxation policy is deliberately a tunable
	// parameter set, not a fixed algorithm.
	BroadenSuffixes []string `json:"broaden_suffixes" yaml:"broaden_suffixes"`

	// AcademicDomains is the fixed domain list crawled in mapping mode.
	AcademicDomains []string `json:"academic_domains" yaml:"academic_domains"`

	// DomainConcurrency caps parallel domain traversals (default 3),
	// to respect external rate limits.
	DomainConcurrency int `json:"domain_concurrency" yaml:"domain_concurrency"`

	// SeedPapers is how many top search results seed secondary
	// traversals around their own domains (default 5).
	SeedPapers int `json:"seed_papers" yaml:"seed_papers"`

	// TavilyAPIKey authenticates against the search/map service.
	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty"`
}

// MappingConfig bounds a single domain traversal.
// Per prd002-mapping R2.1-R2.4.
type MappingConfig struct {
	// MaxDepth is the hop count from the seed page (default 2).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MaxBreadth is the number of links followed per page (default 30).
	MaxBreadth int `json:"max_breadth" yaml:"max_breadth"`

	// VisitLimit is the total number of URLs visited per traversal
	// (default 75).
	VisitLimit int `json:"visit_limit" yaml:"visit_limit"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gemini-1.5-pro").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls
	// (default 3). Parse failures are permanent and never retried.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AnalysisConfig holds settings for the relationship analyzer.
// Per prd003-analysis R1.1-R1.3.
type AnalysisConfig struct {
	AIConfig `yaml:",inline"`

	// BatchSize is the number of papers per inference call (default 10).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// BatchConcurrency caps concurrent inference calls (default 2).
	BatchConcurrency int `json:"batch_concurrency" yaml:"batch_concurrency"`
}

// GraphConfig holds thresholds for graph assembly.
// Per prd004-graph R2.1-R2.4.
type GraphConfig struct {
	// RelevanceThreshold admits a paper into the graph in basic mode
	// (default 0.3).
	RelevanceThreshold float64 `json:"relevance_threshold" yaml:"relevance_threshold"`

	// MappingRelevanceThreshold is the looser threshold used in mapping
	// mode, where results are pre-filtered by domain (default 0.1).
	MappingRelevanceThreshold float64 `json:"mapping_relevance_threshold" yaml:"mapping_relevance_threshold"`

	// SimilarityThreshold is the minimum pairwise keyword similarity for
	// a fallback edge (default 0.3).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
}

// ExportConfig holds settings for the run-export stage.
type ExportConfig struct {
	// OutputDir is the directory for exported run files (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Mapping   MappingConfig   `json:"mapping" yaml:"mapping"`
	Analysis  AnalysisConfig  `json:"analysis" yaml:"analysis"`
	Graph     GraphConfig     `json:"graph" yaml:"graph"`
	Export    ExportConfig    `json:"export" yaml:"export"`
}

// DefaultAcademicDomains is the fixed academic-domain list used by
// mapping mode when the configuration does not override it. Injected at
// construction; never mutated.
func DefaultAcademicDomains() []string {
	return []string{
		"arxiv.org",
		"semanticscholar.org",
		"dblp.org",
		"ieee.org",
		"acm.org",
		"openreview.net",
	}
}
