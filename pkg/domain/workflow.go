package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Workflow is the server-side copy of one canvas: the placed nodes, their connections
// and the values typed into the Input and LLM Engine forms.
type Workflow struct {
	ID        string    `json:"id" yaml:"id"`
	Nodes     []Node    `json:"nodes" yaml:"nodes"`
	Edges     []Edge    `json:"edges" yaml:"edges"`
	InputText string    `json:"inputText" yaml:"input_text"`
	LLMConfig LLMConfig `json:"llmConfig" yaml:"llm_config"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// NewWorkflow creates an empty canvas.
func NewWorkflow() *Workflow {
	now := time.Now().UTC()
	return &Workflow{
		ID:        uuid.NewString(),
		Nodes:     []Node{},
		Edges:     []Edge{},
		LLMConfig: DefaultLLMConfig(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Snapshot returns a deep copy of the workflow.
func (w *Workflow) Snapshot() *Workflow {
	if w == nil {
		return nil
	}
	out := *w
	out.Nodes = append(make([]Node, 0, len(w.Nodes)), w.Nodes...)
	out.Edges = append(make([]Edge, 0, len(w.Edges)), w.Edges...)
	return &out
}

// Touch marks the workflow as modified.
func (w *Workflow) Touch() {
	w.UpdatedAt = time.Now().UTC()
}

// Node returns the node with the given id.
func (w *Workflow) Node(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// FirstOfKind returns the first node of the given kind, in drop order.
// Later duplicates are ignored by runs.
func (w *Workflow) FirstOfKind(kind NodeKind) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].Kind == kind {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// AddNode places a node of the given kind at pos.
func (w *Workflow) AddNode(kind NodeKind, pos Position) (Node, error) {
	if !kind.Valid() {
		return Node{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	node := NewNode(kind, pos)
	w.Nodes = append(w.Nodes, node)
	w.Touch()
	return node, nil
}

// RemoveNode deletes a node and every edge touching it.
func (w *Workflow) RemoveNode(id string) error {
	idx := -1
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	w.Nodes = append(w.Nodes[:idx], w.Nodes[idx+1:]...)

	kept := w.Edges[:0]
	for _, e := range w.Edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	w.Edges = kept
	w.Touch()
	return nil
}

// Edge returns the edge with the given id.
func (w *Workflow) Edge(id string) (*Edge, bool) {
	for i := range w.Edges {
		if w.Edges[i].ID == id {
			return &w.Edges[i], true
		}
	}
	return nil, false
}

// AddEdge appends the source→target edge unless it already exists.
// Legality is checked by the topology package, not here.
func (w *Workflow) AddEdge(source, target string) Edge {
	id := EdgeID(source, target)
	if e, ok := w.Edge(id); ok {
		return *e
	}
	edge := NewEdge(source, target)
	w.Edges = append(w.Edges, edge)
	w.Touch()
	return edge
}

// RemoveEdge deletes an edge by id.
func (w *Workflow) RemoveEdge(id string) error {
	for i := range w.Edges {
		if w.Edges[i].ID == id {
			w.Edges = append(w.Edges[:i], w.Edges[i+1:]...)
			w.Touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
}

// KindOf resolves the kind of a node id, first from the canvas, then from the id prefix.
func (w *Workflow) KindOf(id string) (NodeKind, bool) {
	if n, ok := w.Node(id); ok {
		return n.Kind, true
	}
	return KindFromID(id)
}
