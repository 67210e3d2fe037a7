// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RelationshipKind classifies how one paper relates to another.
// Per prd003-analysis R2.1, the set is fixed; edges with any other
// kind are rejected during validation.
type RelationshipKind string

const (
	KindCites        RelationshipKind = "Cites"
	KindBuildsUpon   RelationshipKind = "Builds_Upon"
	KindValidates    RelationshipKind = "Validates"
	KindApplies      RelationshipKind = "Applies"
	KindCompares     RelationshipKind = "Compares"
	KindContradicts  RelationshipKind = "Contradicts"
	KindSharesMethod RelationshipKind = "Shares_Method"
)

// kindWeights is the fixed priority table (prd003-analysis R2.3).
// Cites carries the highest weight; ties across batches resolve to the
// heavier kind.
var kindWeights = map[RelationshipKind]int{
	KindCites:        5,
	KindBuildsUpon:   4,
	KindValidates:    4,
	KindApplies:      3,
	KindCompares:     3,
	KindContradicts:  2,
	KindSharesMethod: 2,
}

// Weight returns the kind's priority weight, or 0 for an unknown kind.
func (k RelationshipKind) Weight() int {
	return kindWeights[k]
}

// Valid reports whether k is one of the seven allowed kinds.
func (k RelationshipKind) Valid() bool {
	_, ok := kindWeights[k]
	return ok
}

// MaxStrength is the upper bound of the raw strength scale.
const MaxStrength = 5

// NormalizeStrength maps a raw integer strength onto [0.0, 1.0].
// Out-of-range input is clamped, never rejected here; rejection of
// malformed strengths happens at parse time (R2.5).
func NormalizeStrength(strength int) float64 {
	if strength < 0 {
		return 0.0
	}
	if strength > MaxStrength {
		return 1.0
	}
	return float64(strength) / float64(MaxStrength)
}

// RelationshipEdge is a typed, weighted relationship between two papers,
// produced by the relationship analyzer. Relationships are probabilistic
// estimates, not verified citations.
type RelationshipEdge struct {
	// Source and Target are response-scoped paper IDs.
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// Kind is one of the seven allowed relationship kinds.
	Kind RelationshipKind `json:"relationship_type" yaml:"relationship_type"`

	// Strength is the raw integer weight in [1, 5].
	Strength int `json:"strength" yaml:"strength"`

	// Description is the analyzer's free-text justification.
	Description string `json:"description" yaml:"description"`

	// SharedEntities lists concepts both papers mention.
	SharedEntities []string `json:"shared_entities" yaml:"shared_entities"`
}

// Normalized returns the edge strength mapped onto [0.0, 1.0].
func (e RelationshipEdge) Normalized() float64 {
	return NormalizeStrength(e.Strength)
}
