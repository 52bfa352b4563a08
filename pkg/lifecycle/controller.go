package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentdrain/agentdrain/pkg/core"
)

// Controller is the process-wide singleton tracking every active agent
// execution. It owns the RUNNING -> DRAINING -> TERMINATED state machine,
// the active-execution table, and the drain waiter.
//
// ActiveTable mutators (Register, Unregister) are serialized by an internal
// mutex, which ActiveCount, FindByAgent and the force-checkpoint snapshot
// also take; IsAccepting and CurrentState read the atomic state field
// without taking the mutex. State transitions
// are monotonic and race-free with concurrent registrations: a Register
// that observes StateRunning either completes before InitiateDrain takes
// the lock, or observes StateDraining and fails — there is no window where
// a registration succeeds after drain has been initiated.
type Controller struct {
	mu     sync.Mutex
	active map[core.SessionKey]*core.RequestContext

	state atomic.Int32

	drainOnce sync.Once
	drainCh   chan struct{}
	closeOnce sync.Once

	metrics Metrics
	logger  *slog.Logger
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithMetrics attaches an observability sink. Nil (the default) disables
// metrics emission.
func WithMetrics(m Metrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger overrides the controller's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a standalone Controller. Most callers should use Global;
// New exists for tests and for processes that deliberately want more than
// one lifecycle domain (e.g. embedding this module twice in a single
// binary for integration tests).
func New(opts ...Option) *Controller {
	c := &Controller{
		active:  make(map[core.SessionKey]*core.RequestContext),
		drainCh: make(chan struct{}),
		metrics: noopMetrics{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	globalMu   sync.Mutex
	globalOnce sync.Once
	global     *Controller
)

// Global returns the process-wide Controller, constructing it with default
// options on first use. Business code should reach the controller through
// this explicit accessor rather than hidden package state.
func Global() *Controller {
	globalOnce.Do(func() {
		global = New()
	})
	return global
}

// ResetGlobalForTest replaces the process-wide Controller with a fresh one.
// Test-only: production code must never call this.
func ResetGlobalForTest() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalOnce = sync.Once{}
	global = nil
}

// Register inserts a new execution into the active table. It fails with
// core.ErrNotAccepting unless the controller is RUNNING.
//
// If sessionID is already registered, the previous RequestContext is
// overwritten and a warning is logged (see the Open Question in
// DESIGN.md: the source behavior is preserved for parity rather than
// rejecting with a conflict error).
func (c *Controller) Register(sessionID core.SessionKey, agent core.AgentHandle, store core.SessionStore) (*core.RequestContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if State(c.state.Load()) != StateRunning {
		return nil, core.ErrNotAccepting
	}

	if _, exists := c.active[sessionID]; exists {
		c.logger.Warn("lifecycle: duplicate registration, overwriting previous context",
			"session_id", sessionID.String())
	}

	rc := core.NewRequestContext(sessionID, agent, store, c.logger)
	c.active[sessionID] = rc

	active := len(c.active)
	c.logger.Debug("lifecycle: registered execution", "session_id", sessionID.String(), "active_count", active)
	c.metrics.ExecutionRegistered(active)
	return rc, nil
}

// Unregister removes sessionID from the active table. If the controller is
// DRAINING and the table becomes empty, the drain waiter is signaled.
// Unregistering an absent key is a no-op, which is what makes the orphaned
// side of a duplicate-registration safe (see Register).
func (c *Controller) Unregister(sessionID core.SessionKey) {
	c.mu.Lock()
	_, existed := c.active[sessionID]
	delete(c.active, sessionID)
	state := State(c.state.Load())
	empty := len(c.active) == 0
	active := len(c.active)
	c.mu.Unlock()

	if !existed {
		return
	}

	c.logger.Debug("lifecycle: unregistered execution", "session_id", sessionID.String(), "active_count", active)
	c.metrics.ExecutionUnregistered(active)

	if state == StateDraining && empty {
		c.signalDrainComplete()
	}
}

// IsAccepting reports whether the controller is RUNNING.
func (c *Controller) IsAccepting() bool {
	return State(c.state.Load()) == StateRunning
}

// CurrentState returns the controller's current lifecycle state.
func (c *Controller) CurrentState() State {
	return State(c.state.Load())
}

// ActiveCount returns the number of currently registered executions.
func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// FindByAgent performs a linear scan of the active table for the
// RequestContext wrapping agent, compared by identity. Used for edge-case
// reverse lookups (e.g. a hook that only has the agent handle in scope).
func (c *Controller) FindByAgent(agent core.AgentHandle) *core.RequestContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rc := range c.active {
		if rc.Agent == agent {
			return rc
		}
	}
	return nil
}

// InitiateDrain atomically transitions RUNNING -> DRAINING. Idempotent:
// subsequent calls are no-ops. Arms the drain waiter, signaling it
// immediately if the active table is already empty.
func (c *Controller) InitiateDrain() {
	c.drainOnce.Do(func() {
		c.mu.Lock()
		c.state.Store(int32(StateDraining))
		empty := len(c.active) == 0
		active := len(c.active)
		c.mu.Unlock()

		c.logger.Info("lifecycle: drain initiated", "active_count", active)
		if empty {
			c.signalDrainComplete()
		}
	})
}

func (c *Controller) signalDrainComplete() {
	c.closeOnce.Do(func() {
		close(c.drainCh)
	})
}

// AwaitDrain blocks until either the active table empties (returns true,
// transitions to TERMINATED) or deadline elapses (returns false,
// force-checkpoints all remaining executions, then transitions to
// TERMINATED). Must be called only after InitiateDrain, and only from the
// single shutdown-path goroutine.
func (c *Controller) AwaitDrain(deadline time.Duration) bool {
	start := time.Now()
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-c.drainCh:
		c.state.Store(int32(StateTerminated))
		c.logger.Info("lifecycle: drain completed, all executions finished")
		c.metrics.DrainCompleted(false, time.Since(start))
		return true
	case <-timer.C:
		c.logger.Warn("lifecycle: drain deadline elapsed, force-checkpointing remaining executions",
			"active_count", c.ActiveCount())
		c.forceCheckpointAll()
		c.state.Store(int32(StateTerminated))
		c.metrics.DrainCompleted(true, time.Since(start))
		return false
	}
}

// forceCheckpointAll snapshots the active table, clears it, and invokes
// InterruptAndSave on every context outside the lock. Per-context errors
// are caught inside InterruptAndSave and must never prevent the rest of
// the snapshot from being processed.
func (c *Controller) forceCheckpointAll() {
	c.mu.Lock()
	snapshot := make([]*core.RequestContext, 0, len(c.active))
	for _, rc := range c.active {
		snapshot = append(snapshot, rc)
	}
	c.active = make(map[core.SessionKey]*core.RequestContext)
	c.mu.Unlock()

	for _, rc := range snapshot {
		rc.InterruptAndSave(context.Background())
		c.metrics.ExecutionForceCheckpointed()
	}
}
