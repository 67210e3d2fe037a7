// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover orchestrates the paper-discovery pipeline: search,
// domain mapping, metadata extraction, relationship analysis, and graph
// assembly. Implements prd001-discovery R1-R5.
package discover

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-graph/internal/analyze"
	"github.com/pdiddy/paper-graph/internal/extract"
	"github.com/pdiddy/paper-graph/internal/graph"
	"github.com/pdiddy/paper-graph/internal/mapper"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// SearchOptions narrow one search call.
type SearchOptions struct {
	MaxResults int
	Domains    []string
}

// SearchClient is the external search service. The production
// implementation is the Tavily client; tests supply canned results.
type SearchClient interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error)
}

// Engine runs discovery requests. Now and W exist for tests; both have
// working defaults.
type Engine struct {
	Search   SearchClient
	Source   mapper.PageSource
	Analyzer *analyze.Analyzer
	Config   types.PipelineConfig
	Now      func() time.Time
	W        io.Writer
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) w() io.Writer {
	if e.W != nil {
		return e.W
	}
	return io.Discard
}

func (e *Engine) maxResults() int {
	if e.Config.Discovery.MaxResults > 0 {
		return e.Config.Discovery.MaxResults
	}
	return 10
}

func (e *Engine) minPapers() int {
	if e.Config.Discovery.MinPapers > 0 {
		return e.Config.Discovery.MinPapers
	}
	return 15
}

func (e *Engine) broadenSuffixes() []string {
	if len(e.Config.Discovery.BroadenSuffixes) > 0 {
		return e.Config.Discovery.BroadenSuffixes
	}
	return []string{"survey", "review", "state of the art"}
}

func (e *Engine) domains() []string {
	if len(e.Config.Discovery.AcademicDomains) > 0 {
		return e.Config.Discovery.AcademicDomains
	}
	return types.DefaultAcademicDomains()
}

// Discover runs a basic search request: query the search service,
// extract metadata, score relevance, deduplicate, and rank by
// credibility. Returns an error when no papers can be found; an empty
// result is never silently returned.
func (e *Engine) Discover(ctx context.Context, topic string) (*types.SearchResponse, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("empty topic")
	}
	if e.Search == nil {
		return nil, fmt.Errorf("no search client configured")
	}

	query := fmt.Sprintf("research papers on %q", topic)
	results, err := e.Search.Search(ctx, query, SearchOptions{
		MaxResults: e.maxResults() * 2,
		Domains:    e.domains(),
	})
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", topic, err)
	}

	papers := e.extractAll(results, topic, "search")
	papers = dedupe(papers)
	sortByCredibility(papers)
	if len(papers) > e.maxResults() {
		papers = papers[:e.maxResults()]
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("no papers found for topic %q", topic)
	}
	assignIDs(papers)

	return &types.SearchResponse{
		Papers:     papers,
		TotalFound: len(papers),
		Query:      query,
	}, nil
}

// DiscoverWithAnalysis runs a search request and then infers
// relationships between the returned papers. Analysis failure degrades
// to a similarity-based graph; it never fails the request.
func (e *Engine) DiscoverWithAnalysis(ctx context.Context, topic string) (*types.AnalysisResponse, error) {
	search, err := e.Discover(ctx, topic)
	if err != nil {
		return nil, err
	}

	output := e.analyze(ctx, topic, search.Papers)
	data := graph.Build(graph.Input{
		Topic:               topic,
		Papers:              search.Papers,
		Edges:               output.Edges,
		AnalysisUnavailable: output.Unavailable,
	}, e.Config.Graph)

	return &types.AnalysisResponse{
		SearchResponse:      *search,
		GraphData:           data,
		AnalysisUnavailable: output.Unavailable,
	}, nil
}

// DiscoverWithMapping runs enhanced discovery: seed search, concurrent
// domain traversals, floor-guaranteed broadened searches, analysis, and
// graph assembly. Partial failure of individual domains or of analysis
// degrades the response; only finding nothing at all is an error.
func (e *Engine) DiscoverWithMapping(ctx context.Context, topic string) (*types.MappingResponse, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("empty topic")
	}
	if e.Source == nil {
		return nil, fmt.Errorf("no page source configured")
	}

	run := types.MappingRun{
		RunID: uuid.NewString(),
		Topic: topic,
	}
	fmt.Fprintf(e.w(), "mapping run %s: %q\n", run.RunID, topic)

	// Seed search. A failed seed search is non-fatal; mapping can still
	// find papers on its own.
	var seedPapers []*types.Paper
	if e.Search != nil {
		search, err := e.Discover(ctx, topic)
		if err != nil {
			fmt.Fprintf(e.w(), "warning: seed search failed: %v\n", err)
			run.Error = err.Error()
		} else {
			seedPapers = search.Papers
		}
	}

	mapped, visited, explored, problems := e.mapDomains(ctx, topic, e.traversalDomains(seedPapers))
	run.URLsVisited = visited
	run.DomainsExplored = explored
	if len(problems) > 0 {
		note := strings.Join(problems, "; ")
		if run.Error != "" {
			run.Error += "; " + note
		} else {
			run.Error = note
		}
	}

	papers := dedupe(append(append([]*types.Paper{}, seedPapers...), mapped...))
	e.scoreRelevance(topic, papers)

	// Floor guarantee: broaden the query rather than fabricate papers.
	papers = e.broaden(ctx, topic, papers, &run)
	if len(papers) == 0 {
		return nil, fmt.Errorf("no papers found for topic %q", topic)
	}
	sortByCredibility(papers)
	assignIDs(papers)
	run.PapersExtracted = len(papers)
	if len(papers) < e.minPapers() {
		run.Shortfall = true
		fmt.Fprintf(e.w(), "warning: found %d papers, below the %d floor\n", len(papers), e.minPapers())
	}

	// Best-effort on timeout: return what mapping gathered and skip
	// analysis rather than burning the deadline on inference.
	output := analyze.Output{Unavailable: true}
	if ctx.Err() == nil {
		output = e.analyze(ctx, topic, papers)
	}

	data := graph.Build(graph.Input{
		Topic:               topic,
		Papers:              papers,
		Edges:               output.Edges,
		AnalysisUnavailable: output.Unavailable,
		MappingMode:         true,
	}, e.Config.Graph)
	run.ConnectionsFound = interPaperEdges(data)

	return &types.MappingResponse{
		Papers:              papers,
		MappedPapers:        onlySource(papers, "map"),
		TotalFound:          len(papers),
		MappingStats:        run,
		Query:               topic,
		GraphData:           data,
		AnalysisUnavailable: output.Unavailable,
	}, nil
}

// traversalDomains returns the configured academic domains plus the
// domains of the top seed papers, preserving order and uniqueness.
func (e *Engine) traversalDomains(seedPapers []*types.Paper) []string {
	domains := append([]string{}, e.domains()...)
	seen := make(map[string]bool, len(domains))
	for _, d := range domains {
		seen[d] = true
	}

	seedLimit := e.Config.Discovery.SeedPapers
	if seedLimit <= 0 {
		seedLimit = 5
	}
	for i, p := range seedPapers {
		if i >= seedLimit {
			break
		}
		u, err := url.Parse(p.URL)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.TrimPrefix(u.Host, "www.")
		if !seen[host] {
			seen[host] = true
			domains = append(domains, host)
		}
	}
	return domains
}

// mapDomains traverses domains concurrently, bounded by the configured
// concurrency. A failed traversal contributes its partial papers; each
// unreachable or cut-short domain is returned as a problem note so the
// run records which domains could not be explored fully.
func (e *Engine) mapDomains(ctx context.Context, topic string, domains []string) ([]*types.Paper, int, []string, []string) {
	concurrency := e.Config.Discovery.DomainConcurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	bounds := mapper.Bounds{
		MaxDepth:   e.Config.Mapping.MaxDepth,
		MaxBreadth: e.Config.Mapping.MaxBreadth,
		VisitLimit: e.Config.Mapping.VisitLimit,
	}

	var mu sync.Mutex
	var papers []*types.Paper
	var visited int
	var explored []string
	var problems []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, domain := range domains {
		domain := domain
		g.Go(func() error {
			res := mapper.MapDomain(gctx, e.Source, domain, topic, bounds, e.now(), e.w())
			mu.Lock()
			defer mu.Unlock()
			papers = append(papers, res.Papers...)
			visited += res.URLsVisited
			explored = append(explored, domain)
			if res.Err != nil {
				fmt.Fprintf(e.w(), "warning: traversal of %s: %v\n", domain, res.Err)
				problems = append(problems, fmt.Sprintf("%s: %v", domain, res.Err))
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(explored)
	sort.Strings(problems)
	return papers, visited, explored, problems
}

// broaden issues relaxed queries until the paper floor is met or the
// suffixes and attempts run out.
func (e *Engine) broaden(ctx context.Context, topic string, papers []*types.Paper, run *types.MappingRun) []*types.Paper {
	if e.Search == nil {
		return papers
	}
	attempts := e.Config.Discovery.MaxFloorAttempts
	if attempts <= 0 {
		attempts = 3
	}
	suffixes := e.broadenSuffixes()
	if len(suffixes) < attempts {
		attempts = len(suffixes)
	}

	for i := 0; i < attempts && len(papers) < e.minPapers(); i++ {
		if ctx.Err() != nil {
			return papers
		}
		query := topic + " " + suffixes[i]
		fmt.Fprintf(e.w(), "broadening search: %q\n", query)
		results, err := e.Search.Search(ctx, query, SearchOptions{
			MaxResults: e.minPapers(),
			Domains:    e.domains(),
		})
		if err != nil {
			fmt.Fprintf(e.w(), "warning: broadened search failed: %v\n", err)
			run.Error = err.Error()
			continue
		}
		papers = dedupe(append(papers, e.extractAll(results, topic, "broadened")...))
	}
	return papers
}

// analyze runs relationship inference when an analyzer is configured.
func (e *Engine) analyze(ctx context.Context, topic string, papers []*types.Paper) analyze.Output {
	if e.Analyzer == nil {
		return analyze.Output{Unavailable: true}
	}
	return e.Analyzer.Analyze(ctx, topic, papers)
}

// extractAll converts raw search results to papers, skipping results
// that yield nothing.
func (e *Engine) extractAll(results []types.SearchResult, topic, source string) []*types.Paper {
	now := e.now()
	var papers []*types.Paper
	for _, r := range results {
		p, ok := extract.FromSearchResult(r, topic, now)
		if !ok {
			continue
		}
		p.Source = source
		p.Relevance = extract.Relevance(topic, p)
		papers = append(papers, p)
	}
	return papers
}

func (e *Engine) scoreRelevance(topic string, papers []*types.Paper) {
	for _, p := range papers {
		if p.Relevance == 0 {
			p.Relevance = extract.Relevance(topic, p)
		}
	}
}

// normalizeTitle maps a title to its deduplication key: lowercase
// alphanumerics and single spaces.
func normalizeTitle(title string) string {
	var sb strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				sb.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// dedupe collapses papers with the same normalized title, keeping the
// more credible record. Input order is preserved for survivors, so
// deduplication is idempotent.
func dedupe(papers []*types.Paper) []*types.Paper {
	index := make(map[string]int, len(papers))
	var out []*types.Paper
	for _, p := range papers {
		key := normalizeTitle(p.Title)
		if key == "" {
			continue
		}
		if at, ok := index[key]; ok {
			if p.Credibility > out[at].Credibility {
				out[at] = p
			}
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

// sortByCredibility orders papers best-first, with title as a
// deterministic tiebreak.
func sortByCredibility(papers []*types.Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		if papers[i].Credibility != papers[j].Credibility {
			return papers[i].Credibility > papers[j].Credibility
		}
		return papers[i].Title < papers[j].Title
	})
}

// assignIDs gives papers their response-scoped IDs ("p1", "p2", ...)
// after the final ordering is fixed.
func assignIDs(papers []*types.Paper) {
	for i, p := range papers {
		p.ID = fmt.Sprintf("p%d", i+1)
	}
}

func onlySource(papers []*types.Paper, source string) []*types.Paper {
	var out []*types.Paper
	for _, p := range papers {
		if p.Source == source {
			out = append(out, p)
		}
	}
	return out
}

// interPaperEdges counts edges that connect two papers, excluding
// topic edges.
func interPaperEdges(data types.GraphData) int {
	n := 0
	for _, e := range data.Edges {
		if e.Source != graph.TopicNodeID && e.Target != graph.TopicNodeID {
			n++
		}
	}
	return n
}
