package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/topology"
)

// Directions accepted by GenerateMermaid.
const (
	DirectionLR = "LR"
	DirectionTD = "TD"
)

// GraphOverlay contains run state to visualize on the graph.
type GraphOverlay struct {
	// Chain highlights the nodes a run would use.
	Chain *topology.Chain
	// Failed marks output nodes whose last run ended in an error.
	Failed bool
}

// GenerateMermaid produces a Mermaid flowchart of the canvas.
// It applies semantic styling:
// - Input: [/Parallelogram/]
// - LLM: [[Subroutine]]
// - Output: ([Stadium])
// Edges the topology rules would reject are drawn dotted.
func GenerateMermaid(wf *domain.Workflow, direction string, overlay *GraphOverlay) string {
	if direction != DirectionTD {
		direction = DirectionLR
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "graph %s\n", direction)
	if wf == nil {
		return sb.String()
	}

	for _, node := range wf.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		label := string(node.Kind)
		switch node.Kind {
		case domain.KindInput:
			opener, closer = "[/", "/]"
			label = "Input"
		case domain.KindLLM:
			opener, closer = "[[", "]]"
			label = "LLM Engine"
		case domain.KindOutput:
			opener, closer = "([", "])"
			label = "Output"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	legal := make(map[string]bool)
	for _, e := range topology.LegalEdges(wf) {
		legal[e.ID] = true
	}
	for _, e := range wf.Edges {
		arrow := "-->"
		if !legal[e.ID] {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil && overlay.Chain != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef chain fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:2px,color:#000;\n")
		for _, id := range []string{overlay.Chain.Input, overlay.Chain.LLM} {
			if id != "" {
				fmt.Fprintf(&sb, "    class %s chain;\n", sanitizeMermaidID(id))
			}
		}
		if overlay.Chain.Output != "" {
			class := "chain"
			if overlay.Failed {
				class = "failed"
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(overlay.Chain.Output), class)
		}
	}

	return sb.String()
}

// Overlay resolves the chain of wf for highlighting. Returns nil when the canvas has no complete chain.
func Overlay(wf *domain.Workflow) *GraphOverlay {
	chain, err := topology.Resolve(wf)
	if err != nil {
		return nil
	}
	ov := &GraphOverlay{Chain: &chain}
	if out, ok := wf.Node(chain.Output); ok && out.Data.Error != "" {
		ov.Failed = true
	}
	return ov
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
