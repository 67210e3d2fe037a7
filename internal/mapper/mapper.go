// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mapper walks an academic domain breadth-first, collecting
// papers from pages that look like publications. Implements
// prd002-mapping R1-R4.
package mapper

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/paper-graph/internal/extract"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// Page is one fetched page of a domain traversal.
type Page struct {
	URL     string
	Title   string
	Content string
}

// PageSource lists outgoing links and fetches page content. The
// production implementation is backed by the Tavily map and extract
// endpoints; tests supply an in-memory site.
type PageSource interface {
	Links(ctx context.Context, pageURL string) ([]string, error)
	Fetch(ctx context.Context, pageURL string) (Page, error)
}

// Bounds limit a single domain traversal.
type Bounds struct {
	MaxDepth   int // link hops from the entry point
	MaxBreadth int // links followed per page
	VisitLimit int // total pages fetched
}

// Result is the outcome of one domain traversal. Err records a
// traversal cut short (context cancellation) or a domain that proved
// unreachable; the papers gathered up to that point are still valid.
type Result struct {
	Papers        []*types.Paper
	URLsVisited   int
	FetchFailures int
	Err           error
}

// Paths that signal publication content. Links matching these are
// followed before anything else on the page.
var academicPaths = []string{
	"/paper", "/publication", "/abs/", "/pdf/", "/article",
	"/research", "/proceedings", "/journal", "/document", "/doi/",
	"/pubs", "/forum",
}

// Paths that never lead to papers.
var excludedPaths = []string{
	"/admin", "/login", "/signup", "/account", "/cart",
	"/privacy", "/terms", "/careers", "/about", "/contact",
	"/press", "/jobs",
}

type queueItem struct {
	url   string
	depth int
}

// MapDomain traverses one domain breadth-first from its search entry
// point, extracting a paper from every page that yields one. Pages that
// cannot be fetched or do not look like publications are skipped; the
// traversal never fails because of a single bad page. On context
// cancellation, or when no page of the domain could be fetched at all,
// the partial result is returned with Err set.
func MapDomain(ctx context.Context, src PageSource, domain, topic string, bounds Bounds, now time.Time, w io.Writer) Result {
	if bounds.MaxDepth <= 0 {
		bounds.MaxDepth = 2
	}
	if bounds.MaxBreadth <= 0 {
		bounds.MaxBreadth = 30
	}
	if bounds.VisitLimit <= 0 {
		bounds.VisitLimit = 75
	}
	if w == nil {
		w = io.Discard
	}

	res := Result{}
	visited := map[string]bool{}
	queue := []queueItem{{url: entryPoint(domain, topic), depth: 0}}

	for len(queue) > 0 && res.URLsVisited < bounds.VisitLimit {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		item := queue[0]
		queue = queue[1:]
		if visited[item.url] {
			continue
		}
		visited[item.url] = true
		res.URLsVisited++

		page, err := src.Fetch(ctx, item.url)
		if err != nil {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
				return res
			}
			res.FetchFailures++
			fmt.Fprintf(w, "warning: could not fetch %s: %v\n", item.url, err)
			continue
		}

		// Only publication-looking URLs are extracted; index and
		// search pages contribute links, not papers.
		if isAcademicPath(item.url) {
			if paper, ok := extract.FromPage(page.Content, page.URL, topic, now); ok {
				if page.Title != "" {
					paper.Title = page.Title
				}
				paper.Source = "map"
				res.Papers = append(res.Papers, paper)
			}
		}

		if item.depth >= bounds.MaxDepth {
			continue
		}

		links, err := src.Links(ctx, item.url)
		if err != nil {
			fmt.Fprintf(w, "warning: could not list links on %s: %v\n", item.url, err)
			continue
		}
		for _, link := range prioritize(filterLinks(links, domain), bounds.MaxBreadth) {
			if !visited[link] {
				queue = append(queue, queueItem{url: link, depth: item.depth + 1})
			}
		}
	}

	// Every fetch failing means the domain itself is unreachable, not
	// just the odd bad page.
	if res.URLsVisited > 0 && res.FetchFailures == res.URLsVisited {
		res.Err = fmt.Errorf("unreachable: all %d fetches failed", res.FetchFailures)
	}
	return res
}

// entryPoint builds the search URL used as the traversal root.
func entryPoint(domain, topic string) string {
	return fmt.Sprintf("https://%s/search?query=%s", domain, url.QueryEscape(topic))
}

// filterLinks keeps same-domain links that do not match an excluded
// path. Relative links and other schemes are dropped.
func filterLinks(links []string, domain string) []string {
	var kept []string
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if !strings.HasSuffix(u.Host, domain) {
			continue
		}
		if excluded(u.Path) {
			continue
		}
		kept = append(kept, link)
	}
	return kept
}

// prioritize orders publication-looking links first, then truncates to
// the breadth bound.
func prioritize(links []string, maxBreadth int) []string {
	var academic, other []string
	for _, link := range links {
		if isAcademicPath(link) {
			academic = append(academic, link)
		} else {
			other = append(other, link)
		}
	}
	ordered := append(academic, other...)
	if len(ordered) > maxBreadth {
		ordered = ordered[:maxBreadth]
	}
	return ordered
}

func isAcademicPath(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, p := range academicPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func excluded(path string) bool {
	path = strings.ToLower(path)
	for _, p := range excludedPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
