package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/openagi/pkg/domain"
)

// LoggingHooks logs every lifecycle event with logger.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.Debug("run_start", "workspace_id", e.WorkflowID)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			if e.Outcome == "" {
				logger.Info("run_finish", "workspace_id", e.WorkflowID, "duration", e.Duration)
				return
			}
			logger.Info("run_finish",
				"workspace_id", e.WorkflowID,
				"outcome", e.Outcome,
				"duration", e.Duration,
			)
		},
		OnRelayCall: func(ctx context.Context, e *domain.RelayEvent) {
			logger.Debug("relay_call", "model", e.Model)
		},
		OnRelayReturn: func(ctx context.Context, e *domain.RelayEvent) {
			logger.Info("relay_return",
				"model", e.Model,
				"status", e.StatusCode,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnConnect: func(ctx context.Context, e *domain.ConnectEvent) {
			logger.Debug("connect",
				"source_kind", e.SourceKind,
				"target_kind", e.TargetKind,
				"accepted", e.Accepted,
			)
		},
	}
}
