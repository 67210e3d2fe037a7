// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paper-graph/internal/analyze"
	"github.com/pdiddy/paper-graph/internal/mapper"
	"github.com/pdiddy/paper-graph/pkg/types"
)

var testNow = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

type fakeSearch struct {
	results map[string][]types.SearchResult // keyed by query substring
	err     error
	queries []string
}

func (s *fakeSearch) Search(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	for key, results := range s.results {
		if strings.Contains(query, key) {
			return results, nil
		}
	}
	return nil, nil
}

type erroringBackend struct{}

func (erroringBackend) Infer(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("inference service down")
}

func validResult(i int) types.SearchResult {
	return types.SearchResult{
		URL:     fmt.Sprintf("https://arxiv.org/abs/2301.%04d", i),
		Title:   fmt.Sprintf("Transformer Study Number %d", i),
		Content: fmt.Sprintf("# Transformer Study Number %d\n\nBy Jane Doe\n\nPublished 2021. We study transformer attention mechanisms on benchmark data.", i),
		Score:   0.9,
	}
}

func TestDiscoverSkipsMalformedResults(t *testing.T) {
	results := []types.SearchResult{
		validResult(1), validResult(2), validResult(3), validResult(4), validResult(5),
		{URL: "https://example.org/", Title: "", Content: ""},
		{URL: "https://example.org/", Title: "", Content: "no structure here"},
	}
	e := &Engine{
		Search: &fakeSearch{results: map[string][]types.SearchResult{"transformer": results}},
		Now:    testNow,
	}
	resp, err := e.Discover(context.Background(), "transformer attention")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(resp.Papers) != 5 {
		t.Fatalf("Papers = %d, want 5 (malformed results skipped, not fatal)", len(resp.Papers))
	}
	for i, p := range resp.Papers {
		if want := fmt.Sprintf("p%d", i+1); p.ID != want {
			t.Errorf("Papers[%d].ID = %q, want %q", i, p.ID, want)
		}
		if p.Source != "search" {
			t.Errorf("Source = %q, want search", p.Source)
		}
	}
	if resp.TotalFound != 5 {
		t.Errorf("TotalFound = %d", resp.TotalFound)
	}
}

func TestDiscoverNoPapersIsError(t *testing.T) {
	e := &Engine{Search: &fakeSearch{}, Now: testNow}
	_, err := e.Discover(context.Background(), "nonexistent topic")
	if err == nil {
		t.Fatal("expected error when nothing is found")
	}
}

func TestDiscoverSearchErrorPropagates(t *testing.T) {
	e := &Engine{Search: &fakeSearch{err: errors.New("service down")}, Now: testNow}
	_, err := e.Discover(context.Background(), "topic")
	if err == nil || !strings.Contains(err.Error(), "service down") {
		t.Errorf("err = %v, want wrapped search error", err)
	}
}

func TestDiscoverEmptyTopic(t *testing.T) {
	e := &Engine{Search: &fakeSearch{}, Now: testNow}
	if _, err := e.Discover(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestDedupeKeepsHigherCredibility(t *testing.T) {
	papers := []*types.Paper{
		{Title: "Attention Is All You Need", Credibility: 6.0},
		{Title: "attention is all you need!!", Credibility: 8.5},
		{Title: "A Different Paper", Credibility: 5.0},
	}
	got := dedupe(papers)
	if len(got) != 2 {
		t.Fatalf("dedupe = %d papers, want 2", len(got))
	}
	if got[0].Credibility != 8.5 {
		t.Errorf("survivor credibility = %f, want the higher 8.5", got[0].Credibility)
	}

	// Idempotent.
	again := dedupe(got)
	if len(again) != len(got) {
		t.Errorf("dedupe is not idempotent: %d then %d", len(got), len(again))
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Attention Is All You Need", "attention is all you need"},
		{"  Attention -- Is: All You Need?! ", "attention is all you need"},
		{"BERT (2018)", "bert 2018"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeTitle(tt.in); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDiscoverWithAnalysisDegradesGracefully(t *testing.T) {
	results := make([]types.SearchResult, 5)
	for i := range results {
		results[i] = validResult(i + 1)
	}
	var buf bytes.Buffer
	e := &Engine{
		Search:   &fakeSearch{results: map[string][]types.SearchResult{"transformer": results}},
		Analyzer: &analyze.Analyzer{Backend: erroringBackend{}, MaxRetries: 1, W: &buf},
		Now:      testNow,
		W:        &buf,
	}
	resp, err := e.DiscoverWithAnalysis(context.Background(), "transformer attention")
	if err != nil {
		t.Fatalf("DiscoverWithAnalysis: %v", err)
	}
	if !resp.AnalysisUnavailable {
		t.Error("expected AnalysisUnavailable when inference always fails")
	}
	if len(resp.Papers) != 5 {
		t.Errorf("Papers = %d, want 5 despite analysis failure", len(resp.Papers))
	}
	// The near-identical papers should still be linked by similarity.
	var pairEdges int
	for _, edge := range resp.GraphData.Edges {
		if edge.Source != "topic" && edge.Target != "topic" {
			pairEdges++
			if edge.Relationship != "Similar_To" {
				t.Errorf("Relationship = %q, want Similar_To", edge.Relationship)
			}
		}
	}
	if pairEdges == 0 {
		t.Error("expected similarity edges between near-identical papers")
	}
}

// mappedSite yields a fixed number of papers for any domain.
type mappedSite struct {
	papersPerDomain int
}

func (s *mappedSite) Links(ctx context.Context, pageURL string) ([]string, error) {
	if !strings.Contains(pageURL, "/search?query=") {
		return nil, nil
	}
	u := strings.Split(pageURL, "/search")[0]
	var links []string
	for i := 0; i < s.papersPerDomain; i++ {
		links = append(links, fmt.Sprintf("%s/abs/%d", u, i))
	}
	return links, nil
}

func (s *mappedSite) Fetch(ctx context.Context, pageURL string) (mapper.Page, error) {
	if strings.Contains(pageURL, "/abs/") {
		host := strings.TrimPrefix(strings.Split(pageURL, "/abs/")[0], "https://")
		id := strings.Split(pageURL, "/abs/")[1]
		return mapper.Page{
			URL:     pageURL,
			Content: fmt.Sprintf("# Mapped Paper %s From %s\n\nBy Jane Doe\n\nPublished 2022. Transformer attention research on benchmark data.", id, host),
		}, nil
	}
	return mapper.Page{URL: pageURL}, nil
}

func TestDiscoverWithMapping(t *testing.T) {
	searchResults := make([]types.SearchResult, 3)
	for i := range searchResults {
		searchResults[i] = validResult(i + 1)
	}
	var buf bytes.Buffer
	e := &Engine{
		Search: &fakeSearch{results: map[string][]types.SearchResult{"transformer": searchResults}},
		Source: &mappedSite{papersPerDomain: 8},
		Config: types.PipelineConfig{
			Discovery: types.DiscoveryConfig{
				AcademicDomains: []string{"arxiv.example", "dblp.example"},
			},
		},
		Now: testNow,
		W:   &buf,
	}
	resp, err := e.DiscoverWithMapping(context.Background(), "transformer attention")
	if err != nil {
		t.Fatalf("DiscoverWithMapping: %v", err)
	}
	if resp.MappingStats.RunID == "" {
		t.Error("expected a run ID")
	}
	// 3 search papers + 8 per domain across 2 configured domains plus
	// the seed papers' own domain (arxiv.org).
	if resp.TotalFound < 15 {
		t.Errorf("TotalFound = %d, want at least the 15 floor", resp.TotalFound)
	}
	if resp.MappingStats.Shortfall {
		t.Error("floor met, Shortfall should be false")
	}
	if len(resp.MappedPapers) == 0 {
		t.Error("expected mapped papers in the response")
	}
	if len(resp.MappingStats.DomainsExplored) != 3 {
		t.Errorf("DomainsExplored = %v, want 2 configured + 1 seed domain", resp.MappingStats.DomainsExplored)
	}
	if resp.MappingStats.URLsVisited == 0 {
		t.Error("expected visited URL count")
	}
	for _, p := range resp.Papers {
		if p.ID == "" {
			t.Error("every paper should have an ID")
		}
	}
}

func TestDiscoverWithMappingShortfall(t *testing.T) {
	var buf bytes.Buffer
	e := &Engine{
		Search: &fakeSearch{results: map[string][]types.SearchResult{"transformer": {validResult(1), validResult(2)}}},
		Source: &mappedSite{papersPerDomain: 1},
		Config: types.PipelineConfig{
			Discovery: types.DiscoveryConfig{
				AcademicDomains: []string{"arxiv.example"},
			},
		},
		Now: testNow,
		W:   &buf,
	}
	resp, err := e.DiscoverWithMapping(context.Background(), "transformer attention")
	if err != nil {
		t.Fatalf("DiscoverWithMapping: %v", err)
	}
	if !resp.MappingStats.Shortfall {
		t.Errorf("TotalFound = %d, expected Shortfall below the floor", resp.TotalFound)
	}
	if !strings.Contains(buf.String(), "below the") {
		t.Errorf("expected shortfall warning, got %q", buf.String())
	}
	// Broadened queries were attempted before giving up.
	var broadened bool
	for _, q := range e.Search.(*fakeSearch).queries {
		if strings.Contains(q, "survey") {
			broadened = true
		}
	}
	if !broadened {
		t.Error("expected broadened queries before declaring a shortfall")
	}
}

func TestDiscoverWithMappingBroadeningFillsFloor(t *testing.T) {
	broadened := make([]types.SearchResult, 20)
	for i := range broadened {
		broadened[i] = types.SearchResult{
			URL:     fmt.Sprintf("https://acm.org/article/%d", i),
			Title:   fmt.Sprintf("Broadened Survey Paper %d", i),
			Content: "Published 2020. Survey of transformer methods.",
		}
	}
	e := &Engine{
		Search: &fakeSearch{results: map[string][]types.SearchResult{"survey": broadened}},
		Source: &mappedSite{papersPerDomain: 2},
		Config: types.PipelineConfig{
			Discovery: types.DiscoveryConfig{AcademicDomains: []string{"arxiv.example"}},
		},
		Now: testNow,
	}
	resp, err := e.DiscoverWithMapping(context.Background(), "transformer attention")
	if err != nil {
		t.Fatalf("DiscoverWithMapping: %v", err)
	}
	if resp.MappingStats.Shortfall {
		t.Errorf("TotalFound = %d, broadening should have met the floor", resp.TotalFound)
	}
	var fromBroadened int
	for _, p := range resp.Papers {
		if p.Source == "broadened" {
			fromBroadened++
		}
	}
	if fromBroadened == 0 {
		t.Error("expected papers sourced from broadened queries")
	}
}

// brokenDomainSite fails every fetch on one domain and behaves like
// mappedSite everywhere else.
type brokenDomainSite struct {
	mappedSite
	broken string
}

func (s *brokenDomainSite) Fetch(ctx context.Context, pageURL string) (mapper.Page, error) {
	if strings.Contains(pageURL, s.broken) {
		return mapper.Page{}, errors.New("connection refused")
	}
	return s.mappedSite.Fetch(ctx, pageURL)
}

func TestDiscoverWithMappingRecordsUnreachableDomain(t *testing.T) {
	var buf bytes.Buffer
	e := &Engine{
		Search: &fakeSearch{results: map[string][]types.SearchResult{"transformer": {validResult(1), validResult(2)}}},
		Source: &brokenDomainSite{mappedSite: mappedSite{papersPerDomain: 8}, broken: "dead.example"},
		Config: types.PipelineConfig{
			Discovery: types.DiscoveryConfig{AcademicDomains: []string{"arxiv.example", "dead.example"}},
		},
		Now: testNow,
		W:   &buf,
	}
	resp, err := e.DiscoverWithMapping(context.Background(), "transformer attention")
	if err != nil {
		t.Fatalf("DiscoverWithMapping: %v", err)
	}
	if !strings.Contains(resp.MappingStats.Error, "dead.example") ||
		!strings.Contains(resp.MappingStats.Error, "unreachable") {
		t.Errorf("Error = %q, want the unreachable domain recorded", resp.MappingStats.Error)
	}
	// The dead domain does not abort the others; all three still count
	// as explored (two configured plus the seed papers' domain).
	if len(resp.MappingStats.DomainsExplored) != 3 {
		t.Errorf("DomainsExplored = %v, want 3", resp.MappingStats.DomainsExplored)
	}
	if !strings.Contains(buf.String(), "warning: traversal of dead.example") {
		t.Errorf("expected traversal warning, got %q", buf.String())
	}
}

func TestDiscoverWithMappingNothingFound(t *testing.T) {
	e := &Engine{
		Search: &fakeSearch{},
		Source: &mappedSite{papersPerDomain: 0},
		Config: types.PipelineConfig{
			Discovery: types.DiscoveryConfig{AcademicDomains: []string{"arxiv.example"}},
		},
		Now: testNow,
	}
	if _, err := e.DiscoverWithMapping(context.Background(), "topic"); err == nil {
		t.Fatal("expected error when nothing at all is found")
	}
}

func TestDiscoverWithMappingTimeoutSkipsAnalysis(t *testing.T) {
	e := &Engine{
		Search:   &fakeSearch{results: map[string][]types.SearchResult{"transformer": {validResult(1), validResult(2)}}},
		Source:   &mappedSite{papersPerDomain: 3},
		Analyzer: &analyze.Analyzer{Backend: erroringBackend{}, MaxRetries: 1},
		Config: types.PipelineConfig{
			Discovery: types.DiscoveryConfig{AcademicDomains: []string{"arxiv.example"}},
		},
		Now: testNow,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := e.DiscoverWithMapping(ctx, "transformer attention")
	if err == nil {
		if !resp.AnalysisUnavailable {
			t.Error("expected analysis skipped after cancellation")
		}
	}
	// With a cancelled context the traversals return nothing, the seed
	// search still supplies papers, and the response is best-effort.
}

func TestTraversalDomains(t *testing.T) {
	e := &Engine{Config: types.PipelineConfig{
		Discovery: types.DiscoveryConfig{AcademicDomains: []string{"arxiv.org"}},
	}}
	seeds := []*types.Paper{
		{URL: "https://www.nature.com/articles/x"},
		{URL: "https://arxiv.org/abs/1"}, // already configured
		{URL: "not a url"},
	}
	got := e.traversalDomains(seeds)
	want := []string{"arxiv.org", "nature.com"}
	if len(got) != len(want) {
		t.Fatalf("traversalDomains = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("traversalDomains[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
