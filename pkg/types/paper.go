// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-graph pipeline.
// Implements: prd001-discovery (Paper, SearchResult, R3.1-R3.4);
//
//	prd002-mapping (MappingRun, R4.1-R4.3);
//	prd003-analysis (RelationshipKind, RelationshipEdge, R2.1-R2.6);
//	prd004-graph (GraphData, R1.1-R1.5).
//
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

// Paper holds the metadata record extracted for one discovered paper.
// Per prd001-discovery R3.1: identifier, title, authors, venue, year,
// citation estimate, credibility, abstract, keywords, and relevance.
// All fields except Relevance are read-only after extraction; Relevance
// is assigned once per discovery run.
type Paper struct {
	// ID is a response-scoped identifier (e.g. "p3"). Stable within one
	// discovery response; never persisted across runs.
	ID string `json:"id" yaml:"id"`

	// URL is the page the paper was extracted from.
	URL string `json:"url" yaml:"url"`

	// Title is the paper title, truncated to a display-safe length.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order. Empty when no
	// author pattern matched; that is not an error.
	Authors []string `json:"authors" yaml:"authors"`

	// Venue is the publication venue, derived from the source domain
	// ("Unknown" when no venue could be determined).
	Venue string `json:"venue" yaml:"venue"`

	// Year is the publication year, in [1990, current year].
	Year int `json:"year" yaml:"year"`

	// Citations is a deterministic citation-count estimate derived from
	// credibility and age. Never negative.
	Citations int `json:"citations" yaml:"citations"`

	// Credibility is a heuristic trustworthiness score in [1.0, 10.0].
	Credibility float64 `json:"credibility" yaml:"credibility"`

	// Abstract is the page content used as an abstract, truncated.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Keywords are topic labels matched in the content (at most 8).
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Source identifies the discovery method ("search", "map", "broadened").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Relevance is the topical match against the search topic in
	// [0.0, 1.0]. Zero until assigned by the orchestrator.
	Relevance float64 `json:"relevance,omitempty" yaml:"relevance,omitempty"`
}

// SearchResult is one raw hit returned by the external search service
// before metadata extraction. Per prd001-discovery R2.2.
type SearchResult struct {
	// URL is the result page URL.
	URL string `json:"url" yaml:"url"`

	// Title is the page title as reported by the search service.
	Title string `json:"title" yaml:"title"`

	// Content is the raw page text, used as extraction input.
	Content string `json:"content" yaml:"content"`

	// Score is the search service's own relevance score, when provided.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// MappingRun records the statistics of one enhanced-discovery request.
// Request-scoped: built fresh per call and discarded at response time.
// Per prd002-mapping R4.1-R4.3.
type MappingRun struct {
	// RunID identifies the run in progress output and exports.
	RunID string `json:"run_id" yaml:"run_id"`

	// Topic is the research topic that drove the run.
	Topic string `json:"topic" yaml:"topic"`

	// DomainsExplored lists the academic domains actually visited.
	DomainsExplored []string `json:"domains_explored" yaml:"domains_explored"`

	// URLsVisited counts pages visited across all traversals.
	URLsVisited int `json:"urls_visited" yaml:"urls_visited"`

	// PapersExtracted counts pages that yielded a Paper record.
	PapersExtracted int `json:"papers_extracted" yaml:"papers_extracted"`

	// ConnectionsFound counts inter-paper edges in the final graph.
	ConnectionsFound int `json:"connections_found" yaml:"connections_found"`

	// Shortfall is set when the run ended below the minimum-paper floor.
	// The floor is never met by fabricating papers (R4.3).
	Shortfall bool `json:"shortfall,omitempty" yaml:"shortfall,omitempty"`

	// Error carries a non-fatal error note (e.g. an unreachable domain).
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
