package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RequestContext links a session key to the agent handle executing it and
// the store it persists against. It is created lazily, on the agent's first
// PreReasoning hook event, not on request arrival (see pkg/hooks.Hook) — this keeps
// executions that never reach the agent from ever registering.
type RequestContext struct {
	SessionID SessionKey
	Agent     AgentHandle
	Store     SessionStore
	StartTime time.Time

	interrupted atomic.Bool
	once        sync.Once
	logger      *slog.Logger
}

// NewRequestContext constructs a RequestContext for a freshly registered
// execution. logger may be nil, in which case slog.Default() is used.
func NewRequestContext(sessionID SessionKey, agent AgentHandle, store SessionStore, logger *slog.Logger) *RequestContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestContext{
		SessionID: sessionID,
		Agent:     agent,
		Store:     store,
		StartTime: time.Now(),
		logger:    logger,
	}
}

// ForceCheckpointReason is the interrupted-marker reason recorded when an
// execution is checkpointed by InterruptAndSave rather than by the
// cooperative abort path in pkg/hooks — i.e. the execution never reached
// another hook event before the drain deadline elapsed.
const ForceCheckpointReason = "drain deadline elapsed, execution force-checkpointed"

// Interrupted reports whether InterruptAndSave has run.
func (rc *RequestContext) Interrupted() bool {
	return rc.interrupted.Load()
}

// InterruptAndSave is idempotent: calling it N times has the same effect as
// calling it once. It flips the interrupted flag, sends a best-effort
// cooperative interrupt to the agent, asks the agent to serialize its state
// into the session store, and records an InterruptedMarker so that a
// resumed execution finds the same marker a cooperative hook abort would
// have left (see pkg/hooks.Hook's resume injection). All three steps are
// best-effort: errors are logged and swallowed, never propagated, so a
// force-checkpoint loop over many executions cannot be stalled by one
// failing context.
func (rc *RequestContext) InterruptAndSave(ctx context.Context) {
	rc.once.Do(func() {
		rc.interrupted.Store(true)

		if err := rc.Agent.Interrupt(ctx); err != nil {
			rc.logger.Warn("agentdrain: agent interrupt failed, proceeding to checkpoint anyway",
				"session_id", rc.SessionID.String(), "error", err)
		}

		if err := rc.Agent.SerializeTo(ctx, rc.Store, rc.SessionID); err != nil {
			rc.logger.Error("agentdrain: checkpoint serialization failed",
				"session_id", rc.SessionID.String(), "error", err)
		}

		marker := NewInterruptedMarker(ForceCheckpointReason, time.Now())
		if err := SaveInterruptedMarker(ctx, rc.Store, rc.SessionID, marker); err != nil {
			rc.logger.Error("agentdrain: failed to persist interrupted marker on force-checkpoint",
				"session_id", rc.SessionID.String(), "error", err)
		}
	})
}
