package domain

import (
	"testing"
)

func TestDiff(t *testing.T) {
	base := NewWorkflow()
	in, _ := base.AddNode(KindInput, Position{})
	llm, _ := base.AddNode(KindLLM, Position{})

	t.Run("Initial Load (Old is Nil)", func(t *testing.T) {
		d := Diff(nil, base)
		if d == nil || d.Nodes == nil || len(d.Nodes.Added) != 2 {
			t.Fatalf("expected both nodes as added, got %+v", d)
		}
		if d.InputText == nil || d.LLMConfig == nil {
			t.Error("expected input text and config on initial load")
		}
	})

	t.Run("No Changes", func(t *testing.T) {
		if d := Diff(base, base.Snapshot()); d != nil {
			t.Errorf("expected nil diff, got %+v", d)
		}
	})

	t.Run("Edge Added And Output Written", func(t *testing.T) {
		next := base.Snapshot()
		next.AddEdge(in.ID, llm.ID)
		n, _ := next.Node(llm.ID)
		n.Position.X = 42

		d := Diff(base, next)
		if d == nil || d.Edges == nil || len(d.Edges.Added) != 1 {
			t.Fatalf("expected one added edge, got %+v", d)
		}
		if d.Nodes == nil || len(d.Nodes.Updated) != 1 || d.Nodes.Updated[0].ID != llm.ID {
			t.Errorf("expected llm node as updated, got %+v", d.Nodes)
		}
		if d.InputText != nil || d.LLMConfig != nil {
			t.Error("unexpected form changes in diff")
		}
	})

	t.Run("Config Is Redacted", func(t *testing.T) {
		next := base.Snapshot()
		next.LLMConfig.APIKey = "secret"

		d := Diff(base, next)
		if d == nil || d.LLMConfig == nil {
			t.Fatal("expected config diff")
		}
		if d.LLMConfig.APIKey == "secret" {
			t.Error("api key leaked into diff")
		}
	})

	t.Run("Node Removed", func(t *testing.T) {
		next := base.Snapshot()
		if err := next.RemoveNode(in.ID); err != nil {
			t.Fatal(err)
		}
		d := Diff(base, next)
		if d == nil || d.Nodes == nil || len(d.Nodes.Removed) != 1 || d.Nodes.Removed[0] != in.ID {
			t.Errorf("expected removed input node, got %+v", d)
		}
	})
}
