package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart    EventType = "run_start"
	EventRunFinish   EventType = "run_finish"
	EventRelayCall   EventType = "relay_call"
	EventRelayReturn EventType = "relay_return"
	EventConnect     EventType = "connect"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// RunEvent describes the start or the outcome of a run.
type RunEvent struct {
	EventBase
	WorkflowID string        `json:"workflow_id"`
	Outcome    ErrorKind     `json:"outcome,omitempty"` // empty on success
	Duration   time.Duration `json:"duration,omitempty"`
}

// RelayEvent describes one request forwarded towards the model API.
type RelayEvent struct {
	EventBase
	Model      string        `json:"model"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	IsError    bool          `json:"is_error,omitempty"`
}

// ConnectEvent describes a proposed connection and whether it was accepted.
type ConnectEvent struct {
	EventBase
	SourceKind NodeKind `json:"source_kind"`
	TargetKind NodeKind `json:"target_kind"`
	Accepted   bool     `json:"accepted"`
}

// LifecycleHooks defines callbacks for observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnRunStart    func(context.Context, *RunEvent)
	OnRunFinish   func(context.Context, *RunEvent)
	OnRelayCall   func(context.Context, *RelayEvent)
	OnRelayReturn func(context.Context, *RelayEvent)
	OnConnect     func(context.Context, *ConnectEvent)
}

// ChainHooks returns hooks that invoke each of the given hooks in order.
func ChainHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *RunEvent) {
			for _, h := range all {
				if h.OnRunStart != nil {
					h.OnRunStart(ctx, e)
				}
			}
		},
		OnRunFinish: func(ctx context.Context, e *RunEvent) {
			for _, h := range all {
				if h.OnRunFinish != nil {
					h.OnRunFinish(ctx, e)
				}
			}
		},
		OnRelayCall: func(ctx context.Context, e *RelayEvent) {
			for _, h := range all {
				if h.OnRelayCall != nil {
					h.OnRelayCall(ctx, e)
				}
			}
		},
		OnRelayReturn: func(ctx context.Context, e *RelayEvent) {
			for _, h := range all {
				if h.OnRelayReturn != nil {
					h.OnRelayReturn(ctx, e)
				}
			}
		},
		OnConnect: func(ctx context.Context, e *ConnectEvent) {
			for _, h := range all {
				if h.OnConnect != nil {
					h.OnConnect(ctx, e)
				}
			}
		},
	}
}
