package domain

import (
	"reflect"
)

// WorkflowDiff represents the changes between two workflow snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type WorkflowDiff struct {
	// WorkflowID is always present to identify the target.
	WorkflowID string `json:"workflow_id"`

	Nodes *NodesDelta `json:"nodes,omitempty"`
	Edges *EdgesDelta `json:"edges,omitempty"`

	InputText *string `json:"input_text,omitempty"`

	// LLMConfig carries the full (redacted) config when any field changed.
	LLMConfig *LLMConfig `json:"llm_config,omitempty"`
}

// NodesDelta lists added, changed and removed nodes.
type NodesDelta struct {
	Added   []Node   `json:"added,omitempty"`
	Updated []Node   `json:"updated,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// EdgesDelta lists added and removed edges. Edges are immutable once created.
type EdgesDelta struct {
	Added   []Edge   `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Diff calculates the difference between oldWf and newWf.
// If oldWf is nil, it returns a diff representing the entire newWf (initial load).
// Returns nil when nothing changed.
func Diff(oldWf, newWf *Workflow) *WorkflowDiff {
	if newWf == nil {
		return nil
	}

	diff := &WorkflowDiff{WorkflowID: newWf.ID}

	diff.Nodes = diffNodes(oldWf, newWf)
	diff.Edges = diffEdges(oldWf, newWf)

	if oldWf == nil || oldWf.InputText != newWf.InputText {
		text := newWf.InputText
		diff.InputText = &text
	}
	if oldWf == nil || oldWf.LLMConfig != newWf.LLMConfig {
		cfg := newWf.LLMConfig.Redacted()
		diff.LLMConfig = &cfg
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffNodes(old, new *Workflow) *NodesDelta {
	delta := &NodesDelta{}

	oldByID := make(map[string]Node)
	if old != nil {
		for _, n := range old.Nodes {
			oldByID[n.ID] = n
		}
	}

	seen := make(map[string]bool, len(new.Nodes))
	for _, n := range new.Nodes {
		seen[n.ID] = true
		prev, exists := oldByID[n.ID]
		switch {
		case !exists:
			delta.Added = append(delta.Added, n)
		case !reflect.DeepEqual(prev, n):
			delta.Updated = append(delta.Updated, n)
		}
	}

	if old != nil {
		for _, n := range old.Nodes {
			if !seen[n.ID] {
				delta.Removed = append(delta.Removed, n.ID)
			}
		}
	}

	if len(delta.Added) == 0 && len(delta.Updated) == 0 && len(delta.Removed) == 0 {
		return nil
	}
	return delta
}

func diffEdges(old, new *Workflow) *EdgesDelta {
	delta := &EdgesDelta{}

	oldIDs := make(map[string]bool)
	if old != nil {
		for _, e := range old.Edges {
			oldIDs[e.ID] = true
		}
	}

	newIDs := make(map[string]bool, len(new.Edges))
	for _, e := range new.Edges {
		newIDs[e.ID] = true
		if !oldIDs[e.ID] {
			delta.Added = append(delta.Added, e)
		}
	}

	if old != nil {
		for _, e := range old.Edges {
			if !newIDs[e.ID] {
				delta.Removed = append(delta.Removed, e.ID)
			}
		}
	}

	if len(delta.Added) == 0 && len(delta.Removed) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *WorkflowDiff) IsEmpty() bool {
	return d.Nodes == nil &&
		d.Edges == nil &&
		d.InputText == nil &&
		d.LLMConfig == nil
}
