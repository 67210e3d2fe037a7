// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph assembles the knowledge graph from papers and inferred
// relationships. Implements prd004-graph R1-R4.
package graph

import (
	"sort"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// TopicNodeID is the fixed ID of the central topic node.
const TopicNodeID = "topic"

// SimilarityRelationship labels edges produced by the metadata
// fallback, to keep them distinguishable from model-inferred kinds.
const SimilarityRelationship = "Similar_To"

// Input is everything the assembler needs for one graph.
type Input struct {
	Topic               string
	Papers              []*types.Paper
	Edges               []types.RelationshipEdge
	AnalysisUnavailable bool
	MappingMode         bool // mapped papers use the looser relevance threshold
}

// Build assembles a graph: one topic node, one node per paper passing
// the relevance threshold, a topic edge per included paper, and
// paper-to-paper edges from the analyzer or, when analysis is
// unavailable, from metadata similarity. Output ordering is
// deterministic.
func Build(input Input, cfg types.GraphConfig) types.GraphData {
	relevanceThreshold := cfg.RelevanceThreshold
	if relevanceThreshold <= 0 {
		relevanceThreshold = 0.3
	}
	if input.MappingMode {
		relevanceThreshold = cfg.MappingRelevanceThreshold
		if relevanceThreshold <= 0 {
			relevanceThreshold = 0.1
		}
	}
	similarityThreshold := cfg.SimilarityThreshold
	if similarityThreshold <= 0 {
		similarityThreshold = 0.3
	}

	data := types.GraphData{
		Nodes: []types.GraphNode{{
			ID:    TopicNodeID,
			Label: input.Topic,
			Type:  types.NodeTopic,
		}},
	}

	var included []*types.Paper
	known := make(map[string]*types.Paper, len(input.Papers))
	for _, p := range input.Papers {
		if p.Relevance < relevanceThreshold {
			continue
		}
		included = append(included, p)
		known[p.ID] = p
		data.Nodes = append(data.Nodes, types.GraphNode{
			ID:          p.ID,
			Label:       p.Title,
			Type:        types.NodePaper,
			Credibility: p.Credibility,
			Relevance:   p.Relevance,
		})
		data.Edges = append(data.Edges, types.GraphEdge{
			Source:       TopicNodeID,
			Target:       p.ID,
			Relationship: "Relevant_To",
			Weight:       p.Relevance,
		})
	}

	if !input.AnalysisUnavailable && len(input.Edges) > 0 {
		data.Edges = append(data.Edges, analysisEdges(input.Edges, known)...)
	} else {
		data.Edges = append(data.Edges, similarityEdges(included, similarityThreshold)...)
	}

	data.EntityClusters = entityClusters(included, input.Edges, known)
	return data
}

// analysisEdges converts analyzer edges, dropping any that reference a
// paper not in the graph. The analyzer validates per batch; this guard
// covers papers the relevance threshold filtered out afterward.
func analysisEdges(edges []types.RelationshipEdge, known map[string]*types.Paper) []types.GraphEdge {
	var out []types.GraphEdge
	for _, e := range edges {
		if known[e.Source] == nil || known[e.Target] == nil {
			continue
		}
		out = append(out, types.GraphEdge{
			Source:         e.Source,
			Target:         e.Target,
			Relationship:   string(e.Kind),
			Weight:         e.Normalized(),
			Description:    e.Description,
			SharedEntities: e.SharedEntities,
		})
	}
	return out
}

// similarityEdges links every pair of papers whose metadata similarity
// clears the threshold.
func similarityEdges(papers []*types.Paper, threshold float64) []types.GraphEdge {
	var out []types.GraphEdge
	for i := 0; i < len(papers); i++ {
		for j := i + 1; j < len(papers); j++ {
			score := PaperSimilarity(papers[i], papers[j])
			if score < threshold {
				continue
			}
			out = append(out, types.GraphEdge{
				Source:       papers[i].ID,
				Target:       papers[j].ID,
				Relationship: SimilarityRelationship,
				Weight:       score,
				Description:  "metadata similarity",
			})
		}
	}
	return out
}

// entityClusters groups papers by the entities the analyzer saw them
// share, supplemented by extracted keywords. Only entities spanning at
// least two included papers form a cluster.
func entityClusters(papers []*types.Paper, edges []types.RelationshipEdge, known map[string]*types.Paper) []types.EntityCluster {
	members := map[string]map[string]bool{}
	add := func(entity, paperID string) {
		if entity == "" || known[paperID] == nil {
			return
		}
		if members[entity] == nil {
			members[entity] = map[string]bool{}
		}
		members[entity][paperID] = true
	}

	for _, e := range edges {
		for _, entity := range e.SharedEntities {
			add(entity, e.Source)
			add(entity, e.Target)
		}
	}
	for _, p := range papers {
		for _, kw := range p.Keywords {
			add(kw, p.ID)
		}
	}

	var clusters []types.EntityCluster
	for entity, ids := range members {
		if len(ids) < 2 {
			continue
		}
		paperIDs := make([]string, 0, len(ids))
		for id := range ids {
			paperIDs = append(paperIDs, id)
		}
		sort.Strings(paperIDs)
		clusters = append(clusters, types.EntityCluster{
			EntityName: entity,
			EntityType: "concept",
			Papers:     paperIDs,
		})
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i].Papers) != len(clusters[j].Papers) {
			return len(clusters[i].Papers) > len(clusters[j].Papers)
		}
		return clusters[i].EntityName < clusters[j].EntityName
	})
	return clusters
}
