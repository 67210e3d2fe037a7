// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// NodeType distinguishes the synthetic topic node from paper nodes.
type NodeType string

const (
	NodeTopic NodeType = "topic"
	NodePaper NodeType = "paper"
)

// GraphNode is one node in the assembled knowledge graph.
// Per prd004-graph R1.1-R1.2.
type GraphNode struct {
	ID          string   `json:"id" yaml:"id"`
	Label       string   `json:"label" yaml:"label"`
	Type        NodeType `json:"type" yaml:"type"`
	Credibility float64  `json:"credibility,omitempty" yaml:"credibility,omitempty"`
	Relevance   float64  `json:"relevance,omitempty" yaml:"relevance,omitempty"`
}

// GraphEdge is one weighted edge in the assembled graph. Weight is the
// relevance score for topic edges and the normalized relationship
// strength (or keyword similarity) for inter-paper edges.
type GraphEdge struct {
	Source         string   `json:"source" yaml:"source"`
	Target         string   `json:"target" yaml:"target"`
	Relationship   string   `json:"relationship_type" yaml:"relationship_type"`
	Weight         float64  `json:"weight" yaml:"weight"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	SharedEntities []string `json:"shared_entities,omitempty" yaml:"shared_entities,omitempty"`
}

// EntityCluster groups papers that share a named entity or keyword.
type EntityCluster struct {
	EntityName string   `json:"entity_name" yaml:"entity_name"`
	EntityType string   `json:"entity_type" yaml:"entity_type"`
	Papers     []string `json:"papers" yaml:"papers"`
}

// GraphData is the assembled graph handed to the visualization layer.
// Invariant (prd004-graph R1.5): every edge endpoint references a node
// present in Nodes; edges that would dangle are dropped, not errored.
type GraphData struct {
	Nodes          []GraphNode     `json:"nodes" yaml:"nodes"`
	Edges          []GraphEdge     `json:"edges" yaml:"edges"`
	EntityClusters []EntityCluster `json:"entity_clusters" yaml:"entity_clusters"`
}

// SearchResponse is the result of a basic discovery call.
type SearchResponse struct {
	Papers     []*Paper `json:"papers" yaml:"papers"`
	TotalFound int      `json:"total_found" yaml:"total_found"`
	Query      string   `json:"query" yaml:"query"`
}

// AnalysisResponse is the result of discovery with relationship analysis.
// AnalysisUnavailable marks that the inference service could not be used
// and Edges are similarity-based (or empty).
type AnalysisResponse struct {
	SearchResponse      `yaml:",inline"`
	GraphData           GraphData `json:"graph_data" yaml:"graph_data"`
	AnalysisUnavailable bool      `json:"analysis_unavailable,omitempty" yaml:"analysis_unavailable,omitempty"`
}

// MappingResponse is the result of enhanced discovery with domain mapping.
type MappingResponse struct {
	Papers              []*Paper   `json:"papers" yaml:"papers"`
	MappedPapers        []*Paper   `json:"mapped_papers" yaml:"mapped_papers"`
	TotalFound          int        `json:"total_found" yaml:"total_found"`
	MappingStats        MappingRun `json:"mapping_stats" yaml:"mapping_stats"`
	Query               string     `json:"query" yaml:"query"`
	GraphData           GraphData  `json:"graph_data" yaml:"graph_data"`
	AnalysisUnavailable bool       `json:"analysis_unavailable,omitempty" yaml:"analysis_unavailable,omitempty"`
}
