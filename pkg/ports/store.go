package ports

import (
	"context"

	"github.com/aretw0/openagi/pkg/domain"
)

// WorkspaceStore defines the interface for holding workspace state between requests.
// Implementations are caches for UI state, not durable workflow storage.
type WorkspaceStore interface {
	// Save stores the workspace under its ID.
	Save(ctx context.Context, wf *domain.Workflow) error

	// Load retrieves the workspace for a given ID.
	// Returns domain.ErrWorkspaceNotFound if the workspace does not exist.
	Load(ctx context.Context, id string) (*domain.Workflow, error)

	// Delete removes the workspace for a given ID.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of the live workspaces.
	List(ctx context.Context) ([]string, error)
}
