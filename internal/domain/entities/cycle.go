package entities

// RelationshipKind classifies the edges a circular chain traverses.
type RelationshipKind string

const (
	RelationshipRequires    RelationshipKind = "requires"
	RelationshipMixed       RelationshipKind = "mixed"
	RelationshipParentChild RelationshipKind = "parent_child"
)

// ChainLink is one node in a circular chain.
type ChainLink struct {
	ID   string      `json:"id"`
	Kind ElementKind `json:"kind"`
	Name string      `json:"name"`
}

// CircularChain is one discovered dependency cycle. Elements lists the
// nodes in traversal order; the last link closes back on the first. A
// self-reference is a valid chain of length one.
type CircularChain struct {
	Elements         []ChainLink      `json:"elements"`
	RelationshipType RelationshipKind `json:"relationship_type"`
	Severity         Severity         `json:"severity"`
	Message          string           `json:"message"`
}

// ChainResolution is a suggested fix for an element caught in cycles.
type ChainResolution struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// AffectedElement aggregates, per element, how many circular chains
// involve it, with a default resolution.
type AffectedElement struct {
	ID             string          `json:"id"`
	Kind           ElementKind     `json:"kind"`
	Name           string          `json:"name"`
	ChainsInvolved int             `json:"circular_chains_involved"`
	Resolution     ChainResolution `json:"suggested_resolution"`
}

// CycleReport is the full output of circular-reference detection.
type CycleReport struct {
	HasCircularReferences bool              `json:"has_circular_references"`
	CircularChains        []CircularChain   `json:"circular_chains"`
	AffectedElements      []AffectedElement `json:"affected_elements"`
}
