package domain

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// NewEdge creates an edge whose id is derived from its endpoints,
// so the same pair always maps to the same edge.
func NewEdge(source, target string) Edge {
	return Edge{
		ID:     EdgeID(source, target),
		Source: source,
		Target: target,
	}
}

// EdgeID returns the deterministic identifier of the source→target edge.
func EdgeID(source, target string) string {
	return "edge-" + source + "-" + target
}
