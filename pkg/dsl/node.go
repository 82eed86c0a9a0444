package dsl

import "github.com/aretw0/openagi/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// At sets the canvas position of the node.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// To connects this node to target. The pair is checked when the Builder is built.
func (n *NodeBuilder) To(target *NodeBuilder) *NodeBuilder {
	n.builder.edges = append(n.builder.edges, [2]*NodeBuilder{n, target})
	return n
}

// ID returns the generated node id.
func (n *NodeBuilder) ID() string {
	return n.node.ID
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
