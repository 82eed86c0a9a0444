// Package topology decides which connections the canvas accepts and resolves the
// Input → LLM → Output chain a run executes.
package topology

import (
	"fmt"

	"github.com/aretw0/openagi/pkg/domain"
)

// IsLegalEdge reports whether a connection from a node of kind source to a node of
// kind target is allowed. Only Input → LLM and LLM → Output are.
func IsLegalEdge(source, target domain.NodeKind) bool {
	return (source == domain.KindInput && target == domain.KindLLM) ||
		(source == domain.KindLLM && target == domain.KindOutput)
}

// CheckConnection validates a proposed source → target connection on w.
func CheckConnection(w *domain.Workflow, sourceID, targetID string) error {
	src, ok := w.Node(sourceID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, sourceID)
	}
	dst, ok := w.Node(targetID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, targetID)
	}
	if !IsLegalEdge(src.Kind, dst.Kind) {
		return domain.ErrIllegalEdge
	}
	return nil
}

// LegalEdges returns the edges of w whose endpoint kinds form a legal pair.
func LegalEdges(w *domain.Workflow) []domain.Edge {
	var out []domain.Edge
	for _, e := range w.Edges {
		sk, ok := w.KindOf(e.Source)
		if !ok {
			continue
		}
		tk, ok := w.KindOf(e.Target)
		if !ok {
			continue
		}
		if IsLegalEdge(sk, tk) {
			out = append(out, e)
		}
	}
	return out
}

// Chain identifies the three nodes a run uses.
type Chain struct {
	Input  string `json:"input"`
	LLM    string `json:"llm"`
	Output string `json:"output"`
}

// Resolve picks the first node of each kind and checks that both chain edges
// connect them. Returns domain.ErrMissingNode or domain.ErrIncompleteTopology.
func Resolve(w *domain.Workflow) (Chain, error) {
	in, okIn := w.FirstOfKind(domain.KindInput)
	llm, okLLM := w.FirstOfKind(domain.KindLLM)
	out, okOut := w.FirstOfKind(domain.KindOutput)
	if !okIn || !okLLM || !okOut {
		return Chain{}, domain.ErrMissingNode
	}

	var inToLLM, llmToOut bool
	for _, e := range LegalEdges(w) {
		if e.Source == in.ID && e.Target == llm.ID {
			inToLLM = true
		}
		if e.Source == llm.ID && e.Target == out.ID {
			llmToOut = true
		}
	}
	if !inToLLM || !llmToOut {
		return Chain{}, domain.ErrIncompleteTopology
	}

	return Chain{Input: in.ID, LLM: llm.ID, Output: out.ID}, nil
}
