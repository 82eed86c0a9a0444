package http

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/openagi/pkg/domain"
)

// Stream event names.
const (
	EventDiff = "diff"
	EventRun  = "run"
)

// Message is one server-sent event for a workspace.
type Message struct {
	Event string               `json:"-"`
	Diff  *domain.WorkflowDiff `json:"diff,omitempty"`
	Run   *domain.RunEvent     `json:"run,omitempty"`
}

// Matches reports whether the message touches any of the watched topics
// (nodes, edges, input, config, run). An empty watch list matches everything.
func (m Message) Matches(watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	for _, topic := range watch {
		switch strings.TrimSpace(topic) {
		case "nodes":
			if m.Diff != nil && m.Diff.Nodes != nil {
				return true
			}
		case "edges":
			if m.Diff != nil && m.Diff.Edges != nil {
				return true
			}
		case "input":
			if m.Diff != nil && m.Diff.InputText != nil {
				return true
			}
		case "config":
			if m.Diff != nil && m.Diff.LLMConfig != nil {
				return true
			}
		case "run":
			if m.Run != nil {
				return true
			}
		}
	}
	return false
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Message]struct{} // WorkspaceID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Message]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(workspaceID string) (chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 10)
	if _, ok := sm.subscribers[workspaceID]; !ok {
		sm.subscribers[workspaceID] = make(map[chan<- Message]struct{})
	}
	sm.subscribers[workspaceID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[workspaceID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, workspaceID)
				}
			}
		})
	}
}

// Subscribers returns the number of open streams for the workspace.
func (sm *StreamManager) Subscribers(workspaceID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[workspaceID])
}

func (sm *StreamManager) Broadcast(workspaceID string, msg Message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[workspaceID]
	if !ok {
		return
	}
	sm.logger.Debug("StreamManager: Broadcasting", "workspace_id", workspaceID, "event", msg.Event, "subscribers", len(subs))
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "workspace_id", workspaceID)
		}
	}
}

// OnChange forwards workspace diffs to subscribers.
// Its signature matches openagi.ChangeListener.
func (sm *StreamManager) OnChange(_ context.Context, diff *domain.WorkflowDiff) {
	if diff == nil {
		return
	}
	sm.Broadcast(diff.WorkflowID, Message{Event: EventDiff, Diff: diff})
}

// Hooks returns lifecycle hooks that publish run start and finish events.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	publish := func(_ context.Context, e *domain.RunEvent) {
		sm.Broadcast(e.WorkflowID, Message{Event: EventRun, Run: e})
	}
	return domain.LifecycleHooks{
		OnRunStart:  publish,
		OnRunFinish: publish,
	}
}
