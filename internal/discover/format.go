// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// FormatTable writes papers as a ranked table.
func FormatTable(papers []*types.Paper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-5s  %-5s  %s\n",
		"Rank", "Title", "Authors", "Year", "Cred", "Rel", "Venue")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for i, p := range papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4d  %-5.1f  %-5.2f  %s\n",
			i+1, title, formatAuthors(p.Authors), p.Year, p.Credibility, p.Relevance, p.Venue)
	}

	fmt.Fprintf(w, "\n%d papers\n", len(papers))
}

// FormatJSON writes any response as indented JSON.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatMappingStats writes the run summary that follows the paper
// table in mapping mode.
func FormatMappingStats(resp *types.MappingResponse, w io.Writer) {
	stats := resp.MappingStats
	fmt.Fprintf(w, "\nRun %s\n", stats.RunID)
	fmt.Fprintf(w, "  domains explored: %s\n", strings.Join(stats.DomainsExplored, ", "))
	fmt.Fprintf(w, "  pages visited:    %d\n", stats.URLsVisited)
	fmt.Fprintf(w, "  papers extracted: %d\n", stats.PapersExtracted)
	fmt.Fprintf(w, "  connections:      %d\n", stats.ConnectionsFound)
	if stats.Shortfall {
		fmt.Fprintf(w, "  shortfall: fewer papers than the configured floor\n")
	}
	if resp.AnalysisUnavailable {
		fmt.Fprintf(w, "  analysis unavailable: edges are similarity-based\n")
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
