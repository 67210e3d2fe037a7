// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"strings"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// Weights for the similarity components. Keywords dominate because they
// are the most topic-specific signal an extracted paper carries.
const (
	keywordWeight = 0.4
	authorWeight  = 0.2
	venueWeight   = 0.1
	yearWeight    = 0.1
	titleWeight   = 0.2
)

// yearWindow is the largest publication gap still counted as
// contemporaneous.
const yearWindow = 5

// Jaccard returns |a ∩ b| / |a ∪ b| over lowercased string sets.
// Two empty sets have similarity 0, not 1.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	setA := toSet(a)
	setB := toSet(b)
	intersection := 0
	for s := range setA {
		if setB[s] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// PaperSimilarity scores two papers on [0.0, 1.0] from metadata alone.
// Used when model-based analysis is unavailable (prd004-graph R3.2).
func PaperSimilarity(a, b *types.Paper) float64 {
	score := keywordWeight * Jaccard(a.Keywords, b.Keywords)
	score += authorWeight * Jaccard(a.Authors, b.Authors)
	score += titleWeight * Jaccard(strings.Fields(a.Title), strings.Fields(b.Title))

	if a.Venue != "" && a.Venue != "Unknown" && a.Venue == b.Venue {
		score += venueWeight
	}
	if a.Year > 0 && b.Year > 0 && abs(a.Year-b.Year) <= yearWindow {
		score += yearWeight
	}
	return score
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}
	return set
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
