package openagi_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/openagi"
	redisAdapter "github.com/aretw0/openagi/pkg/adapters/redis"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() domain.LLMConfig {
	return domain.LLMConfig{
		APIKey:            "sk-test",
		Model:             "meta-llama/Llama-3.3-70B-Instruct-Turbo",
		MaxTokens:         "128",
		Temperature:       "0.7",
		TopK:              "50",
		RepetitionPenalty: "1",
	}
}

type chain struct {
	ws                *domain.Workflow
	in, llm, out      domain.Node
	inToLLM, llmToOut domain.Edge
}

// buildChain creates a ready-to-run workspace through the public API.
func buildChain(t *testing.T, wb *openagi.Workbench) chain {
	t.Helper()
	ctx := context.Background()

	ws, err := wb.Create(ctx)
	require.NoError(t, err)

	var c chain
	c.ws = ws
	c.in, err = wb.DropNode(ctx, ws.ID, domain.KindInput, domain.Position{X: 0, Y: 100})
	require.NoError(t, err)
	c.llm, err = wb.DropNode(ctx, ws.ID, domain.KindLLM, domain.Position{X: 250, Y: 100})
	require.NoError(t, err)
	c.out, err = wb.DropNode(ctx, ws.ID, domain.KindOutput, domain.Position{X: 500, Y: 100})
	require.NoError(t, err)

	c.inToLLM, err = wb.Connect(ctx, ws.ID, c.in.ID, c.llm.ID)
	require.NoError(t, err)
	c.llmToOut, err = wb.Connect(ctx, ws.ID, c.llm.ID, c.out.ID)
	require.NoError(t, err)

	require.NoError(t, wb.SetInputText(ctx, ws.ID, "Hello"))
	_, err = wb.UpdateLLMConfig(ctx, ws.ID, validConfig())
	require.NoError(t, err)
	return c
}

func TestWorkbench_RunWritesOutput(t *testing.T) {
	var calls atomic.Int32
	relay := ports.RelayFunc(func(_ context.Context, input string, cfg domain.LLMConfig) (string, error) {
		calls.Add(1)
		assert.Equal(t, "Hello", input)
		assert.Equal(t, "sk-test", cfg.APIKey)
		return "Hi!", nil
	})
	wb := openagi.New(openagi.WithRelay(relay))
	c := buildChain(t, wb)
	ctx := context.Background()

	got, err := wb.Run(ctx, c.ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", got)
	assert.EqualValues(t, 1, calls.Load())

	ws, err := wb.Get(ctx, c.ws.ID)
	require.NoError(t, err)
	out, ok := ws.Node(c.out.ID)
	require.True(t, ok)
	assert.Equal(t, "Hi!", out.Data.GeneratedOutput)
}

func TestWorkbench_RunRelayFailureWritesError(t *testing.T) {
	relay := ports.RelayFunc(func(context.Context, string, domain.LLMConfig) (string, error) {
		return "", errors.New("upstream down")
	})
	wb := openagi.New(openagi.WithRelay(relay))
	c := buildChain(t, wb)
	ctx := context.Background()

	_, err := wb.Run(ctx, c.ws.ID)
	assert.ErrorIs(t, err, domain.ErrRelayFailure)

	ws, _ := wb.Get(ctx, c.ws.ID)
	out, _ := ws.Node(c.out.ID)
	assert.Contains(t, out.Data.Error, "upstream down")
	assert.Empty(t, out.Data.GeneratedOutput)
}

func TestWorkbench_RunValidationSkipsRelay(t *testing.T) {
	var calls atomic.Int32
	relay := ports.RelayFunc(func(context.Context, string, domain.LLMConfig) (string, error) {
		calls.Add(1)
		return "", nil
	})
	wb := openagi.New(openagi.WithRelay(relay))
	c := buildChain(t, wb)
	ctx := context.Background()

	_, err := wb.SetLLMField(ctx, c.ws.ID, domain.FieldModel, domain.ModelUnselected)
	require.NoError(t, err)

	_, err = wb.Run(ctx, c.ws.ID)
	assert.ErrorIs(t, err, domain.ErrModelNotSelected)
	assert.Zero(t, calls.Load())

	_, err = wb.Check(ctx, c.ws.ID)
	assert.ErrorIs(t, err, domain.ErrModelNotSelected)
}

func TestWorkbench_SecondRunWhileBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	relay := ports.RelayFunc(func(context.Context, string, domain.LLMConfig) (string, error) {
		close(entered)
		<-release
		return "done", nil
	})
	wb := openagi.New(openagi.WithRelay(relay))
	c := buildChain(t, wb)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := wb.Run(ctx, c.ws.ID)
		assert.NoError(t, err)
	}()

	<-entered
	assert.True(t, wb.Running(c.ws.ID))
	_, err := wb.Run(ctx, c.ws.ID)
	assert.ErrorIs(t, err, domain.ErrRunInFlight)

	// Edits are allowed during a run and survive it.
	require.NoError(t, wb.SetInputText(ctx, c.ws.ID, "edited mid-run"))

	close(release)
	wg.Wait()

	ws, _ := wb.Get(ctx, c.ws.ID)
	assert.Equal(t, "edited mid-run", ws.InputText)
	out, _ := ws.Node(c.out.ID)
	assert.Equal(t, "done", out.Data.GeneratedOutput)
	assert.False(t, wb.Running(c.ws.ID))
}

func TestWorkbench_SecondRunOnAnotherReplica(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	release := make(chan struct{})
	entered := make(chan struct{})
	blocking := ports.RelayFunc(func(context.Context, string, domain.LLMConfig) (string, error) {
		close(entered)
		<-release
		return "done", nil
	})
	var otherCalls atomic.Int32
	counting := ports.RelayFunc(func(context.Context, string, domain.LLMConfig) (string, error) {
		otherCalls.Add(1)
		return "other", nil
	})

	replica := func(relay ports.Relay) *openagi.Workbench {
		return openagi.New(
			openagi.WithRelay(relay),
			openagi.WithStore(redisAdapter.NewFromClient(client, redisAdapter.WithPrefix("openagi:workspace:"))),
			openagi.WithLocker(redisAdapter.NewLocker(client, "openagi:")),
		)
	}
	a, b := replica(blocking), replica(counting)
	c := buildChain(t, a)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := a.Run(ctx, c.ws.ID)
		done <- err
	}()

	<-entered
	_, err := b.Run(ctx, c.ws.ID)
	assert.ErrorIs(t, err, domain.ErrRunInFlight)
	assert.Zero(t, otherCalls.Load())

	close(release)
	require.NoError(t, <-done)

	out, err := b.Run(ctx, c.ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "other", out)
}

func TestWorkbench_RedactedKeyWrittenBack(t *testing.T) {
	var gotKey string
	relay := ports.RelayFunc(func(_ context.Context, _ string, cfg domain.LLMConfig) (string, error) {
		gotKey = cfg.APIKey
		return "ok", nil
	})
	wb := openagi.New(openagi.WithRelay(relay))
	c := buildChain(t, wb)
	ctx := context.Background()

	// A form saved back after a redacted read.
	form := validConfig().Redacted()
	form.Temperature = "0.3"
	cfg, err := wb.UpdateLLMConfig(ctx, c.ws.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, domain.Field("0.3"), cfg.Temperature)

	cfg, err = wb.SetLLMField(ctx, c.ws.ID, domain.FieldAPIKey, domain.RedactionMask)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey)

	_, err = wb.Run(ctx, c.ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", gotKey)
}

func TestWorkbench_OutputRemovedDuringRun(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	relay := ports.RelayFunc(func(context.Context, string, domain.LLMConfig) (string, error) {
		close(entered)
		<-release
		return "orphan", nil
	})
	wb := openagi.New(openagi.WithRelay(relay))
	c := buildChain(t, wb)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := wb.Run(ctx, c.ws.ID)
		done <- err
	}()

	<-entered
	require.NoError(t, wb.RemoveNode(ctx, c.ws.ID, c.out.ID))
	close(release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}

	ws, _ := wb.Get(ctx, c.ws.ID)
	_, ok := ws.Node(c.out.ID)
	assert.False(t, ok)
}

func TestWorkbench_ConnectRejectsIllegalEdges(t *testing.T) {
	var events []*domain.ConnectEvent
	wb := openagi.New(
		openagi.WithRelay(ports.RelayFunc(func(context.Context, string, domain.LLMConfig) (string, error) { return "", nil })),
		openagi.WithLifecycleHooks(domain.LifecycleHooks{
			OnConnect: func(_ context.Context, e *domain.ConnectEvent) { events = append(events, e) },
		}),
	)
	c := buildChain(t, wb)
	ctx := context.Background()

	_, err := wb.Connect(ctx, c.ws.ID, c.in.ID, c.out.ID)
	assert.ErrorIs(t, err, domain.ErrIllegalEdge)
	assert.Equal(t, "Invalid connection! You can only connect Input → LLM → Output.", err.Error())

	_, err = wb.Connect(ctx, c.ws.ID, c.out.ID, c.llm.ID)
	assert.ErrorIs(t, err, domain.ErrIllegalEdge)

	_, err = wb.Connect(ctx, c.ws.ID, c.in.ID, "nope")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	ws, _ := wb.Get(ctx, c.ws.ID)
	assert.Len(t, ws.Edges, 2)

	// Two accepted during buildChain, then two rejected. The unknown node is not reported.
	require.Len(t, events, 4)
	assert.True(t, events[0].Accepted)
	assert.False(t, events[2].Accepted)
	assert.Equal(t, domain.KindInput, events[2].SourceKind)
	assert.Equal(t, domain.KindOutput, events[2].TargetKind)
}

func TestWorkbench_ConnectIsIdempotent(t *testing.T) {
	wb := openagi.New()
	c := buildChain(t, wb)
	ctx := context.Background()

	edge, err := wb.Connect(ctx, c.ws.ID, c.in.ID, c.llm.ID)
	require.NoError(t, err)
	assert.Equal(t, c.inToLLM.ID, edge.ID)

	ws, _ := wb.Get(ctx, c.ws.ID)
	assert.Len(t, ws.Edges, 2)
}

func TestWorkbench_DisconnectBreaksChain(t *testing.T) {
	wb := openagi.New()
	c := buildChain(t, wb)
	ctx := context.Background()

	require.NoError(t, wb.Disconnect(ctx, c.ws.ID, c.llmToOut.ID))
	_, err := wb.Check(ctx, c.ws.ID)
	assert.ErrorIs(t, err, domain.ErrIncompleteTopology)

	assert.ErrorIs(t, wb.Disconnect(ctx, c.ws.ID, c.llmToOut.ID), domain.ErrEdgeNotFound)
}

func TestWorkbench_ConfigStore(t *testing.T) {
	wb := openagi.New()
	ctx := context.Background()
	ws, err := wb.Create(ctx)
	require.NoError(t, err)

	cfg, err := wb.LLMConfig(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModelUnselected, cfg.Model)

	cfg, err = wb.SetLLMField(ctx, ws.ID, "repetition_penalty", "1.2")
	require.NoError(t, err)
	assert.Equal(t, domain.Field("1.2"), cfg.RepetitionPenalty)

	_, err = wb.SetLLMField(ctx, ws.ID, "color", "red")
	assert.ErrorIs(t, err, domain.ErrUnknownField)

	require.NoError(t, wb.SetInputText(ctx, ws.ID, "prompt"))
	text, err := wb.InputText(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "prompt", text)

	states, err := wb.Validate(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, states, len(domain.ConfigFields))
	for _, st := range states {
		if st.Field == domain.FieldRepetitionPenalty {
			assert.True(t, st.Valid)
		} else {
			assert.False(t, st.Valid, st.Field)
		}
	}
}

func TestWorkbench_ChangeListener(t *testing.T) {
	var diffs []*domain.WorkflowDiff
	wb := openagi.New(openagi.WithChangeListener(func(_ context.Context, d *domain.WorkflowDiff) {
		diffs = append(diffs, d)
	}))
	ctx := context.Background()
	ws, err := wb.Create(ctx)
	require.NoError(t, err)

	node, err := wb.DropNode(ctx, ws.ID, domain.KindInput, domain.Position{})
	require.NoError(t, err)
	_, err = wb.UpdateLLMConfig(ctx, ws.ID, validConfig())
	require.NoError(t, err)

	require.Len(t, diffs, 2)
	require.NotNil(t, diffs[0].Nodes)
	assert.Equal(t, node.ID, diffs[0].Nodes.Added[0].ID)
	require.NotNil(t, diffs[1].LLMConfig)
	assert.NotEqual(t, "sk-test", diffs[1].LLMConfig.APIKey, "api key must be redacted in diffs")
}

func TestWorkbench_Lifecycle(t *testing.T) {
	wb := openagi.New()
	ctx := context.Background()

	ws, err := wb.Create(ctx)
	require.NoError(t, err)

	ids, err := wb.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, ws.ID)

	_, err = wb.DropNode(ctx, ws.ID, domain.NodeKind("image"), domain.Position{})
	assert.ErrorIs(t, err, domain.ErrUnknownKind)

	require.NoError(t, wb.Delete(ctx, ws.ID))
	_, err = wb.Get(ctx, ws.ID)
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	assert.ErrorIs(t, wb.Delete(ctx, ws.ID), domain.ErrWorkspaceNotFound)
}
