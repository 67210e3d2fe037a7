// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"

	"github.com/pdiddy/paper-graph/internal/mapper"
	"github.com/pdiddy/paper-graph/internal/tavily"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// TavilySearch adapts the Tavily client to the SearchClient interface.
type TavilySearch struct {
	Client *tavily.Client
}

func (s *TavilySearch) Search(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error) {
	return s.Client.Search(ctx, tavily.SearchRequest{
		Query:             query,
		MaxResults:        opts.MaxResults,
		SearchDepth:       "advanced",
		IncludeDomains:    opts.Domains,
		IncludeRawContent: true,
	})
}

// TavilySource adapts the Tavily map and extract endpoints to the
// mapper's PageSource. Bounds mirrors the traversal bounds so the
// remote map call does not fan out wider than the local walk would.
type TavilySource struct {
	Client *tavily.Client
	Bounds mapper.Bounds
}

func (s *TavilySource) Links(ctx context.Context, pageURL string) ([]string, error) {
	return s.Client.Map(ctx, tavily.MapRequest{
		URL:        pageURL,
		MaxDepth:   1,
		MaxBreadth: s.Bounds.MaxBreadth,
		Limit:      s.Bounds.MaxBreadth,
	})
}

func (s *TavilySource) Fetch(ctx context.Context, pageURL string) (mapper.Page, error) {
	content, err := s.Client.Extract(ctx, pageURL)
	if err != nil {
		return mapper.Page{}, err
	}
	return mapper.Page{URL: pageURL, Content: content}, nil
}
