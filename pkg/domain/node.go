package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NodeKind identifies one of the three fixed node types of the canvas.
type NodeKind string

const (
	// KindInput holds the user text that feeds the chain.
	KindInput NodeKind = "input"
	// KindLLM configures the model call.
	KindLLM NodeKind = "llm"
	// KindOutput displays the generated text (or the error) of the last run.
	KindOutput NodeKind = "output"
)

// Kinds lists the node kinds in chain order.
var Kinds = []NodeKind{KindInput, KindLLM, KindOutput}

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindInput, KindLLM, KindOutput:
		return true
	}
	return false
}

// Position is the canvas coordinate a node was dropped at.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData is the kind-specific payload of a node.
// Only output nodes carry data, written once per run.
type NodeData struct {
	GeneratedOutput string `json:"generatedOutput,omitempty" yaml:"generated_output,omitempty"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Node represents a placed unit on the canvas.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Kind     NodeKind `json:"kind" yaml:"kind"`
	Position Position `json:"position" yaml:"position"`
	Data     NodeData `json:"data" yaml:"data"`
}

// NewNode creates a node of the given kind with a fresh identifier.
func NewNode(kind NodeKind, pos Position) Node {
	return Node{
		ID:       NewNodeID(kind),
		Kind:     kind,
		Position: pos,
	}
}

// NewNodeID returns "<kind>-<uuid>". The prefix keeps the kind recoverable from the id alone.
func NewNodeID(kind NodeKind) string {
	return string(kind) + "-" + uuid.NewString()
}

// KindFromID extracts the kind prefix of an identifier produced by NewNodeID.
// Returns false if the prefix is not a known kind.
func KindFromID(id string) (NodeKind, bool) {
	prefix, _, _ := strings.Cut(id, "-")
	kind := NodeKind(prefix)
	return kind, kind.Valid()
}
