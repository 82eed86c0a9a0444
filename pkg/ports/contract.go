package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWorkspaceStoreContract runs a suite of tests to verify that a WorkspaceStore implementation
// adheres to the defined interface contract.
func RunWorkspaceStoreContract(t *testing.T, store WorkspaceStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000")

	newWorkspace := func(id string) *domain.Workflow {
		wf := domain.NewWorkflow()
		wf.ID = id
		return wf
	}

	t.Run("Save and Load", func(t *testing.T) {
		wf := newWorkspace("contract-" + suffix)
		in, err := wf.AddNode(domain.KindInput, domain.Position{X: 1, Y: 2})
		require.NoError(t, err)
		llm, err := wf.AddNode(domain.KindLLM, domain.Position{X: 3, Y: 4})
		require.NoError(t, err)
		wf.AddEdge(in.ID, llm.ID)
		wf.InputText = "Hello"
		wf.LLMConfig.APIKey = "sk-contract"
		wf.LLMConfig.Temperature = "0.7"

		require.NoError(t, store.Save(ctx, wf), "Save should not return error")

		loaded, err := store.Load(ctx, wf.ID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, wf.ID, loaded.ID)
		assert.Equal(t, wf.Nodes, loaded.Nodes)
		assert.Equal(t, wf.Edges, loaded.Edges)
		assert.Equal(t, "Hello", loaded.InputText)
		assert.Equal(t, wf.LLMConfig, loaded.LLMConfig)
		assert.True(t, wf.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Load Returns Isolated Copy", func(t *testing.T) {
		wf := newWorkspace("contract-copy-" + suffix)
		_, err := wf.AddNode(domain.KindOutput, domain.Position{})
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, wf))

		wf.Nodes[0].Data.GeneratedOutput = "mutated after save"

		loaded, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Nodes[0].Data.GeneratedOutput)

		loaded.Nodes[0].Data.Error = "mutated after load"
		again, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		assert.Empty(t, again.Nodes[0].Data.Error)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+suffix)
		assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		wf := newWorkspace("contract-delete-" + suffix)
		require.NoError(t, store.Save(ctx, wf))

		require.NoError(t, store.Delete(ctx, wf.ID), "Delete should not return error")

		_, err := store.Load(ctx, wf.ID)
		assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound, "Load after Delete should return ErrWorkspaceNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := "contract-list-1-" + suffix
		id2 := "contract-list-2-" + suffix
		require.NoError(t, store.Save(ctx, newWorkspace(id1)))
		require.NoError(t, store.Save(ctx, newWorkspace(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
