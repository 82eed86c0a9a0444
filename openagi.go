package openagi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/openagi/internal/logging"
	"github.com/aretw0/openagi/internal/runtime"
	"github.com/aretw0/openagi/pkg/adapters/memory"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
	"github.com/aretw0/openagi/pkg/relay"
	"github.com/aretw0/openagi/pkg/schema"
	"github.com/aretw0/openagi/pkg/session"
	"github.com/aretw0/openagi/pkg/topology"
)

// ChangeListener is notified after every successful edit of a workspace.
type ChangeListener func(ctx context.Context, diff *domain.WorkflowDiff)

// Workbench is the high-level entry point of the library.
// It owns the workspaces and runs their chains.
type Workbench struct {
	sessions *session.Manager
	engine   *runtime.Engine

	store    ports.WorkspaceStore
	relay    ports.Relay
	locker   ports.DistributedLocker
	hooks    domain.LifecycleHooks
	listener ChangeListener
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Workbench.
type Option func(*Workbench)

// WithStore sets where workspaces live (default: in memory).
func WithStore(store ports.WorkspaceStore) Option {
	return func(w *Workbench) {
		w.store = store
	}
}

// WithRelay sets how prompts reach the model (default: an in-process relay to the hosted API).
func WithRelay(r ports.Relay) Option {
	return func(w *Workbench) {
		w.relay = r
	}
}

// WithLocker makes workspace locks span replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(w *Workbench) {
		w.locker = locker
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workbench) {
		w.hooks = hooks
	}
}

// WithChangeListener registers a callback for workspace edits.
func WithChangeListener(fn ChangeListener) Option {
	return func(w *Workbench) {
		w.listener = fn
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workbench) {
		w.logger = logger
	}
}

// New creates a Workbench.
func New(opts ...Option) *Workbench {
	w := &Workbench{}
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.store == nil {
		w.store = memory.NewStore()
	}
	if w.relay == nil {
		w.relay = relay.NewHandler(relay.WithLogger(w.logger), relay.WithLifecycleHooks(w.hooks))
	}

	sessionOpts := []session.Option{session.WithLogger(w.logger)}
	if w.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(w.locker))
	}
	w.sessions = session.NewManager(w.store, sessionOpts...)
	w.engine = runtime.NewEngine(w.relay,
		runtime.WithLifecycleHooks(w.hooks),
		runtime.WithLogger(w.logger),
	)
	return w
}

// errUnchanged aborts an update that has nothing to write.
var errUnchanged = errors.New("unchanged")

// update applies fn under the workspace lock and notifies the change listener.
func (w *Workbench) update(ctx context.Context, id string, fn func(*domain.Workflow) error) (*domain.Workflow, error) {
	before, after, err := w.sessions.Update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if w.listener != nil {
		if diff := domain.Diff(before, after); diff != nil {
			w.listener(ctx, diff)
		}
	}
	return after, nil
}

// Create starts an empty workspace.
func (w *Workbench) Create(ctx context.Context) (*domain.Workflow, error) {
	wf, err := w.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	w.logger.Info("workspace created", "workspace_id", wf.ID)
	return wf, nil
}

// Get returns a copy of the workspace.
func (w *Workbench) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	return w.sessions.Load(ctx, id)
}

// List returns the ids of the live workspaces.
func (w *Workbench) List(ctx context.Context) ([]string, error) {
	return w.sessions.List(ctx)
}

// Delete removes the workspace.
func (w *Workbench) Delete(ctx context.Context, id string) error {
	if err := w.sessions.Delete(ctx, id); err != nil {
		return err
	}
	w.logger.Info("workspace deleted", "workspace_id", id)
	return nil
}

// DropNode places a node of the given kind on the canvas. Duplicate kinds are allowed.
func (w *Workbench) DropNode(ctx context.Context, id string, kind domain.NodeKind, pos domain.Position) (domain.Node, error) {
	var node domain.Node
	_, err := w.update(ctx, id, func(wf *domain.Workflow) error {
		var err error
		node, err = wf.AddNode(kind, pos)
		return err
	})
	return node, err
}

// RemoveNode deletes a node and every edge touching it.
func (w *Workbench) RemoveNode(ctx context.Context, id, nodeID string) error {
	_, err := w.update(ctx, id, func(wf *domain.Workflow) error {
		return wf.RemoveNode(nodeID)
	})
	return err
}

// Connect draws an edge if the topology rules accept it.
// Rejected pairs return domain.ErrIllegalEdge and leave the workspace unchanged.
func (w *Workbench) Connect(ctx context.Context, id, sourceID, targetID string) (domain.Edge, error) {
	var edge domain.Edge
	_, err := w.update(ctx, id, func(wf *domain.Workflow) error {
		err := topology.CheckConnection(wf, sourceID, targetID)
		w.reportConnect(ctx, wf, sourceID, targetID, err == nil)
		if err != nil {
			return err
		}
		edge = wf.AddEdge(sourceID, targetID)
		return nil
	})
	if errors.Is(err, domain.ErrIllegalEdge) {
		w.logger.Debug("connection rejected", "workspace_id", id, "source", sourceID, "target", targetID)
	}
	return edge, err
}

func (w *Workbench) reportConnect(ctx context.Context, wf *domain.Workflow, sourceID, targetID string, accepted bool) {
	if w.hooks.OnConnect == nil {
		return
	}
	src, okSrc := wf.KindOf(sourceID)
	dst, okDst := wf.KindOf(targetID)
	if !okSrc || !okDst {
		return
	}
	w.hooks.OnConnect(ctx, &domain.ConnectEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventConnect},
		SourceKind: src,
		TargetKind: dst,
		Accepted:   accepted,
	})
}

// Disconnect removes an edge.
func (w *Workbench) Disconnect(ctx context.Context, id, edgeID string) error {
	_, err := w.update(ctx, id, func(wf *domain.Workflow) error {
		return wf.RemoveEdge(edgeID)
	})
	return err
}

// InputText returns the prompt of the workspace.
func (w *Workbench) InputText(ctx context.Context, id string) (string, error) {
	wf, err := w.sessions.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return wf.InputText, nil
}

// SetInputText replaces the prompt.
func (w *Workbench) SetInputText(ctx context.Context, id, text string) error {
	_, err := w.update(ctx, id, func(wf *domain.Workflow) error {
		wf.InputText = text
		return nil
	})
	return err
}

// LLMConfig returns the LLM Engine parameters of the workspace.
func (w *Workbench) LLMConfig(ctx context.Context, id string) (domain.LLMConfig, error) {
	wf, err := w.sessions.Load(ctx, id)
	if err != nil {
		return domain.LLMConfig{}, err
	}
	return wf.LLMConfig, nil
}

// UpdateLLMConfig replaces the whole config.
// An API key equal to domain.RedactionMask keeps the stored key.
func (w *Workbench) UpdateLLMConfig(ctx context.Context, id string, cfg domain.LLMConfig) (domain.LLMConfig, error) {
	wf, err := w.update(ctx, id, func(wf *domain.Workflow) error {
		wf.LLMConfig = cfg.Unmask(wf.LLMConfig)
		return nil
	})
	if err != nil {
		return domain.LLMConfig{}, err
	}
	return wf.LLMConfig, nil
}

// SetLLMField assigns one config field by its form name.
func (w *Workbench) SetLLMField(ctx context.Context, id, field, value string) (domain.LLMConfig, error) {
	wf, err := w.update(ctx, id, func(wf *domain.Workflow) error {
		stored := wf.LLMConfig
		if err := wf.LLMConfig.Set(field, value); err != nil {
			return err
		}
		wf.LLMConfig = wf.LLMConfig.Unmask(stored)
		return nil
	})
	if err != nil {
		return domain.LLMConfig{}, err
	}
	return wf.LLMConfig, nil
}

// Validate reports the state of every LLM form field.
func (w *Workbench) Validate(ctx context.Context, id string) ([]schema.FieldState, error) {
	wf, err := w.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return schema.FieldStates(wf.LLMConfig), nil
}

// Check runs the pre-run checks without calling the relay.
// It returns the first failing *domain.RunError, or nil when a run would reach the relay.
func (w *Workbench) Check(ctx context.Context, id string) (topology.Chain, error) {
	wf, err := w.sessions.Load(ctx, id)
	if err != nil {
		return topology.Chain{}, err
	}
	return w.engine.Preflight(wf)
}

// Run executes the chain of the workspace and returns the generated text.
// A second Run on the same workspace while one is in flight fails with domain.ErrRunInFlight.
// The result is written to the latest state of the workspace, so edits made during the run survive.
func (w *Workbench) Run(ctx context.Context, id string) (string, error) {
	if err := w.sessions.BeginRun(ctx, id); err != nil {
		return "", err
	}
	defer w.sessions.EndRun(ctx, id)

	ctx = context.WithoutCancel(ctx)

	wf, err := w.sessions.Load(ctx, id)
	if err != nil {
		return "", err
	}

	res, err := w.engine.Invoke(ctx, wf)
	if err != nil {
		return "", err
	}

	_, err = w.update(ctx, id, func(latest *domain.Workflow) error {
		if !runtime.Apply(latest, res) {
			return errUnchanged
		}
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		w.logger.Warn("output node removed during run, result dropped", "workspace_id", id, "node_id", res.Chain.Output)
	case errors.Is(err, domain.ErrWorkspaceNotFound):
		w.logger.Warn("workspace deleted during run, result dropped", "workspace_id", id)
	case err != nil:
		return "", fmt.Errorf("failed to store run result: %w", err)
	}

	return res.Output, res.Err
}

// Running reports whether a run is in flight for the workspace.
func (w *Workbench) Running(id string) bool {
	return w.sessions.Running(id)
}
