package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestWorkflow_AddNode(t *testing.T) {
	w := NewWorkflow()

	n, err := w.AddNode(KindLLM, Position{X: 10, Y: 20})
	if err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if !strings.HasPrefix(n.ID, "llm-") {
		t.Errorf("expected id with llm- prefix, got %q", n.ID)
	}
	if n.Position.X != 10 || n.Position.Y != 20 {
		t.Errorf("unexpected position %+v", n.Position)
	}

	if _, err := w.AddNode("router", Position{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if len(w.Nodes) != 1 {
		t.Errorf("expected 1 node, got %d", len(w.Nodes))
	}
}

func TestWorkflow_FirstOfKind(t *testing.T) {
	w := NewWorkflow()
	first, _ := w.AddNode(KindOutput, Position{})
	_, _ = w.AddNode(KindOutput, Position{})

	got, ok := w.FirstOfKind(KindOutput)
	if !ok || got.ID != first.ID {
		t.Errorf("expected first output %s, got %+v", first.ID, got)
	}
	if _, ok := w.FirstOfKind(KindInput); ok {
		t.Error("expected no input node")
	}
}

func TestWorkflow_RemoveNodeDropsIncidentEdges(t *testing.T) {
	w := NewWorkflow()
	in, _ := w.AddNode(KindInput, Position{})
	llm, _ := w.AddNode(KindLLM, Position{})
	out, _ := w.AddNode(KindOutput, Position{})
	w.AddEdge(in.ID, llm.ID)
	w.AddEdge(llm.ID, out.ID)

	if err := w.RemoveNode(llm.ID); err != nil {
		t.Fatalf("RemoveNode failed: %v", err)
	}
	if len(w.Edges) != 0 {
		t.Errorf("expected edges to be removed, got %v", w.Edges)
	}
	if err := w.RemoveNode(llm.ID); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestWorkflow_AddEdgeIsIdempotent(t *testing.T) {
	w := NewWorkflow()
	a := w.AddEdge("input-1", "llm-1")
	b := w.AddEdge("input-1", "llm-1")
	if a.ID != b.ID || len(w.Edges) != 1 {
		t.Errorf("expected a single edge, got %v", w.Edges)
	}
	if err := w.RemoveEdge(a.ID); err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}
	if err := w.RemoveEdge(a.ID); !errors.Is(err, ErrEdgeNotFound) {
		t.Errorf("expected ErrEdgeNotFound, got %v", err)
	}
}

func TestWorkflow_SnapshotIsolation(t *testing.T) {
	w := NewWorkflow()
	_, _ = w.AddNode(KindOutput, Position{})

	snap := w.Snapshot()
	snap.Nodes[0].Data.GeneratedOutput = "changed"
	snap.Edges = append(snap.Edges, NewEdge("a", "b"))

	if w.Nodes[0].Data.GeneratedOutput != "" {
		t.Error("snapshot mutation leaked into original nodes")
	}
	if len(w.Edges) != 0 {
		t.Error("snapshot mutation leaked into original edges")
	}
}

func TestKindFromID(t *testing.T) {
	tests := []struct {
		id   string
		want NodeKind
		ok   bool
	}{
		{"input-1700000000", KindInput, true},
		{NewNodeID(KindOutput), KindOutput, true},
		{"llm", KindLLM, true},
		{"prompt-123", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := KindFromID(tt.id)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("KindFromID(%q) = %q, %v; want %q, %v", tt.id, got, ok, tt.want, tt.ok)
		}
	}
}
