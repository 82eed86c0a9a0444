package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/openagi/internal/logging"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// DefaultRunTTL bounds how long a shared run marker survives a crashed replica.
// The run itself is never cut short.
const DefaultRunTTL = 10 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates workspace access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.WorkspaceStore

	mu      sync.Mutex            // Global lock for the maps
	locks   map[string]*lockEntry // Map of active locks
	running map[string]ports.UnlockFunc // Workspaces with a run in flight, and the shared marker to release

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	runTTL  time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL passed to the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithRunTTL sets the TTL of the shared run marker.
func WithRunTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.runTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given workspace store.
func NewManager(store ports.WorkspaceStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		running: make(map[string]ports.UnlockFunc),
		lockTTL: DefaultLockTTL,
		runTTL:  DefaultRunTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Create initializes and persists a fresh workspace.
func (m *Manager) Create(ctx context.Context) (*domain.Workflow, error) {
	wf := domain.NewWorkflow()
	err := m.WithLock(ctx, wf.ID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, wf); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wf.Snapshot(), nil
}

// Load retrieves an existing workspace from the store.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	var wf *domain.Workflow
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		wf, err = m.store.Load(ctx, id)
		return err
	})
	return wf, err
}

// Save persists the workspace.
func (m *Manager) Save(ctx context.Context, wf *domain.Workflow) error {
	return m.WithLock(ctx, wf.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, wf)
	})
}

// Update loads the workspace, applies fn and saves the result, all under the lock.
// fn's error aborts the update without saving. It returns the state before and after.
func (m *Manager) Update(ctx context.Context, id string, fn func(*domain.Workflow) error) (before, after *domain.Workflow, err error) {
	err = m.WithLock(ctx, id, func(ctx context.Context) error {
		wf, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}
		before = wf.Snapshot()

		if err := fn(wf); err != nil {
			return err
		}
		wf.Touch()

		if err := m.store.Save(ctx, wf); err != nil {
			return fmt.Errorf("failed to save workspace: %w", err)
		}
		after = wf.Snapshot()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// Delete removes the workspace from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		if _, err := m.store.Load(ctx, id); err != nil {
			return err
		}
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying workspace store.
func (m *Manager) Store() ports.WorkspaceStore {
	return m.store
}

// BeginRun marks a run as in flight for the workspace.
// It returns domain.ErrRunInFlight if one already is; callers must pair it with EndRun.
// When the locker is a ports.TryLocker the mark is shared with every replica using it.
func (m *Manager) BeginRun(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, busy := m.running[id]; busy {
		m.mu.Unlock()
		return domain.ErrRunInFlight
	}
	m.running[id] = nil
	m.mu.Unlock()

	tl, ok := m.locker.(ports.TryLocker)
	if !ok {
		return nil
	}
	unlock, acquired, err := tl.TryLock(ctx, "run:"+id, m.runTTL)
	if err != nil || !acquired {
		m.mu.Lock()
		delete(m.running, id)
		m.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to mark run: %w", err)
		}
		return domain.ErrRunInFlight
	}

	m.mu.Lock()
	m.running[id] = unlock
	m.mu.Unlock()
	return nil
}

// EndRun clears the in-flight mark set by BeginRun.
func (m *Manager) EndRun(ctx context.Context, id string) {
	m.mu.Lock()
	unlock := m.running[id]
	delete(m.running, id)
	m.mu.Unlock()

	if unlock == nil {
		return
	}
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("Failed to release run marker (will expire via TTL)",
			"workspace_id", id,
			"err", err,
		)
	}
}

// Running reports whether a run is in flight for the workspace.
func (m *Manager) Running(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.running[id]
	return busy
}

// WithLock executes a function while holding the lock for the workspace.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"workspace_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
