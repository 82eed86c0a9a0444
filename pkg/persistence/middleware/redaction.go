package middleware

import (
	"context"
	"errors"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
)

type redactionMiddleware struct {
	next ports.WorkspaceStore
}

// NewRedactionMiddleware creates a read-side view of a store: Load masks the API key with
// domain.RedactionMask, and a Save still carrying the mask keeps the key already stored.
func NewRedactionMiddleware() Middleware {
	return func(next ports.WorkspaceStore) ports.WorkspaceStore {
		return &redactionMiddleware{next: next}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, wf *domain.Workflow) error {
	if wf.LLMConfig.APIKey != domain.RedactionMask {
		return m.next.Save(ctx, wf)
	}

	// Never mutate the caller's workspace.
	cloned := wf.Snapshot()
	stored, err := m.next.Load(ctx, wf.ID)
	switch {
	case err == nil:
		cloned.LLMConfig = cloned.LLMConfig.Unmask(stored.LLMConfig)
	case errors.Is(err, domain.ErrWorkspaceNotFound):
		cloned.LLMConfig.APIKey = ""
	default:
		return err
	}
	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return Redact(wf), nil
}

func (m *redactionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Redact returns a copy of wf with its API key masked.
func Redact(wf *domain.Workflow) *domain.Workflow {
	out := wf.Snapshot()
	out.LLMConfig = out.LLMConfig.Redacted()
	return out
}
