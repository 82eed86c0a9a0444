package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/openagi/internal/logging"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
	"github.com/aretw0/openagi/pkg/topology"
)

// Engine is the run orchestrator.
type Engine struct {
	relay  ports.Relay
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine that sends prompts through relay.
func NewEngine(relay ports.Relay, opts ...Option) *Engine {
	e := &Engine{
		relay:  relay,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of an Invoke that reached the relay.
type Result struct {
	Chain  topology.Chain
	Output string
	Err    error // relay failure, already wrapped as domain.RelayFailure
}

// Run executes the chain and writes the result into the output node of wf.
// Validation failures leave wf untouched.
func (e *Engine) Run(ctx context.Context, wf *domain.Workflow) (string, error) {
	res, err := e.Invoke(ctx, wf)
	if err != nil {
		return "", err
	}
	Apply(wf, res)
	return res.Output, res.Err
}

// Invoke runs the preflight checks and calls the relay, without touching wf.
// The returned error is non-nil only for preflight failures; relay failures are in Result.Err.
func (e *Engine) Invoke(ctx context.Context, wf *domain.Workflow) (Result, error) {
	// A run is never cancelled by its caller.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase:  domain.EventBase{Timestamp: start, Type: domain.EventRunStart},
			WorkflowID: wf.ID,
		})
	}

	chain, err := e.Preflight(wf)
	if err != nil {
		e.finish(ctx, wf.ID, start, err)
		e.logger.Debug("run rejected", "workspace_id", wf.ID, "err", err)
		return Result{}, err
	}

	res := Result{Chain: chain}
	out, err := e.relay.Complete(ctx, wf.InputText, wf.LLMConfig)
	if err != nil {
		res.Err = domain.RelayFailure(err)
		e.logger.Warn("relay call failed", "workspace_id", wf.ID, "model", wf.LLMConfig.Model, "err", err)
	} else {
		res.Output = out
	}

	e.finish(ctx, wf.ID, start, res.Err)
	return res, nil
}

func (e *Engine) finish(ctx context.Context, id string, start time.Time, err error) {
	if e.hooks.OnRunFinish == nil {
		return
	}
	e.hooks.OnRunFinish(ctx, &domain.RunEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunFinish},
		WorkflowID: id,
		Outcome:    domain.KindOf(err),
		Duration:   time.Since(start),
	})
}

// Apply replaces the data of the chain's output node with the result.
// It reports false when the output node no longer exists in wf.
func Apply(wf *domain.Workflow, res Result) bool {
	node, ok := wf.Node(res.Chain.Output)
	if !ok {
		return false
	}
	if res.Err != nil {
		node.Data = domain.NodeData{Error: res.Err.Error()}
	} else {
		node.Data = domain.NodeData{GeneratedOutput: res.Output}
	}
	return true
}
