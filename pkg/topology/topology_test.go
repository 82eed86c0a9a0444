package topology

import (
	"errors"
	"testing"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLegalEdge_AllPairs(t *testing.T) {
	legal := map[[2]domain.NodeKind]bool{
		{domain.KindInput, domain.KindLLM}:  true,
		{domain.KindLLM, domain.KindOutput}: true,
	}
	kinds := append([]domain.NodeKind{"", "router"}, domain.Kinds...)
	for _, s := range kinds {
		for _, d := range kinds {
			want := legal[[2]domain.NodeKind{s, d}]
			assert.Equal(t, want, IsLegalEdge(s, d), "IsLegalEdge(%q, %q)", s, d)
		}
	}
}

func newCanvas(t *testing.T) (*domain.Workflow, domain.Node, domain.Node, domain.Node) {
	t.Helper()
	w := domain.NewWorkflow()
	in, err := w.AddNode(domain.KindInput, domain.Position{})
	require.NoError(t, err)
	llm, err := w.AddNode(domain.KindLLM, domain.Position{})
	require.NoError(t, err)
	out, err := w.AddNode(domain.KindOutput, domain.Position{})
	require.NoError(t, err)
	return w, in, llm, out
}

func TestCheckConnection(t *testing.T) {
	w, in, llm, out := newCanvas(t)

	assert.NoError(t, CheckConnection(w, in.ID, llm.ID))
	assert.NoError(t, CheckConnection(w, llm.ID, out.ID))
	assert.ErrorIs(t, CheckConnection(w, in.ID, out.ID), domain.ErrIllegalEdge)
	assert.ErrorIs(t, CheckConnection(w, llm.ID, in.ID), domain.ErrIllegalEdge)
	assert.ErrorIs(t, CheckConnection(w, "input-ghost", llm.ID), domain.ErrNodeNotFound)
	assert.ErrorIs(t, CheckConnection(w, in.ID, "llm-ghost"), domain.ErrNodeNotFound)
}

func TestResolve(t *testing.T) {
	t.Run("Complete Chain", func(t *testing.T) {
		w, in, llm, out := newCanvas(t)
		w.AddEdge(in.ID, llm.ID)
		w.AddEdge(llm.ID, out.ID)

		chain, err := Resolve(w)
		require.NoError(t, err)
		assert.Equal(t, Chain{Input: in.ID, LLM: llm.ID, Output: out.ID}, chain)
	})

	t.Run("Missing Each Kind", func(t *testing.T) {
		for _, kind := range domain.Kinds {
			w, _, _, _ := newCanvas(t)
			n, _ := w.FirstOfKind(kind)
			require.NoError(t, w.RemoveNode(n.ID))

			_, err := Resolve(w)
			assert.True(t, errors.Is(err, domain.ErrMissingNode), "missing %s: got %v", kind, err)
		}
	})

	t.Run("Missing Edge", func(t *testing.T) {
		w, in, llm, _ := newCanvas(t)
		w.AddEdge(in.ID, llm.ID)

		_, err := Resolve(w)
		assert.ErrorIs(t, err, domain.ErrIncompleteTopology)
	})

	t.Run("Reversed Edge", func(t *testing.T) {
		w, in, llm, out := newCanvas(t)
		w.AddEdge(llm.ID, in.ID)
		w.AddEdge(llm.ID, out.ID)

		_, err := Resolve(w)
		assert.ErrorIs(t, err, domain.ErrIncompleteTopology)
	})

	t.Run("Duplicate Kinds Use First", func(t *testing.T) {
		w, in, llm, out := newCanvas(t)
		second, _ := w.AddNode(domain.KindOutput, domain.Position{})
		w.AddEdge(in.ID, llm.ID)
		w.AddEdge(llm.ID, second.ID)

		_, err := Resolve(w)
		assert.ErrorIs(t, err, domain.ErrIncompleteTopology, "chain must end at the first output node")

		w.AddEdge(llm.ID, out.ID)
		chain, err := Resolve(w)
		require.NoError(t, err)
		assert.Equal(t, out.ID, chain.Output)
	})
}
